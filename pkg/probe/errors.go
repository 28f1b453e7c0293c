package probe

import (
	"context"
	"errors"
	"net"
)

// TimeoutError is returned when the server did not answer in time.
type TimeoutError struct {
	Address string
	Err     error
}

func (e *TimeoutError) Error() string {
	return "timed out probing " + e.Address
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// ConnectionError is returned when the address cannot be resolved or reached.
type ConnectionError struct {
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return "cannot connect to " + e.Address + ": " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ProtocolError is returned when the server answers with something that is
// not a valid status exchange.
type ProtocolError struct {
	Address string
	Err     error
}

func (e *ProtocolError) Error() string {
	return "bad status response from " + e.Address + ": " + e.Err.Error()
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Reason turns a probe error into the short text shown as a failed status.
func Reason(err error) string {
	var (
		timeoutErr  *TimeoutError
		connErr     *ConnectionError
		protocolErr *ProtocolError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &timeoutErr):
		return "timed out"
	case errors.As(err, &connErr):
		return "can't connect to server"
	case errors.As(err, &protocolErr):
		return "invalid server response"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return err.Error()
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
