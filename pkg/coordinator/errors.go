package coordinator

import "errors"

var (
	// ErrNotFound is returned when no entry has the requested ID.
	ErrNotFound = errors.New("server not found")

	// ErrClosed is returned once the coordinator has been closed.
	ErrClosed = errors.New("server list is closed")
)
