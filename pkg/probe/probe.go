package probe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	pk "github.com/Tnze/go-mc/net/packet"

	"serverlist/pkg/address"
	"serverlist/pkg/log"
)

const (
	// DefaultTimeout bounds one whole status exchange.
	DefaultTimeout = 15 * time.Second
	// DefaultProtocolVersion is announced in the handshake.
	DefaultProtocolVersion = 760

	handshakePacketID      int32 = 0x00
	statusRequestPacketID  int32 = 0x00
	statusResponsePacketID int32 = 0x00
	pingPacketID           int32 = 0x01
	pongPacketID           int32 = 0x01

	statusIntent int32 = 1
)

var (
	errUnexpectedPacket = errors.New("unexpected packet id")
	errPongMismatch     = errors.New("pong payload does not match ping")
)

// Resolver turns a typed address into something dialable.
type Resolver interface {
	Resolve(ctx context.Context, addr address.Address) (address.Resolved, error)
}

// Prober runs the server list ping exchange against game servers.
type Prober struct {
	resolver Resolver
	protocol int32
	dialer   net.Dialer
	now      func() time.Time
}

// Option customizes a Prober.
type Option func(*Prober)

// WithResolver replaces the default DNS resolver.
func WithResolver(r Resolver) Option {
	return func(p *Prober) {
		p.resolver = r
	}
}

// WithProtocolVersion sets the protocol number sent in the handshake.
func WithProtocolVersion(v int) Option {
	return func(p *Prober) {
		p.protocol = int32(v)
	}
}

// New creates a Prober.
func New(opts ...Option) *Prober {
	p := &Prober{
		resolver: address.NewResolver(nil),
		protocol: DefaultProtocolVersion,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe connects to raw, asks for its status and measures the round trip of
// a ping. A zero timeout means DefaultTimeout. Cancelling ctx aborts the
// exchange immediately.
func (p *Prober) Probe(ctx context.Context, raw string, timeout time.Duration) (*Result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	addr, err := address.Parse(raw)
	if err != nil {
		return nil, &ConnectionError{Address: raw, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolved, err := p.resolver.Resolve(ctx, addr)
	if err != nil {
		return nil, p.classify(ctx, raw, err, false)
	}

	conn, err := p.dialer.DialContext(ctx, "tcp", resolved.DialAddr())
	if err != nil {
		return nil, p.classify(ctx, raw, err, false)
	}
	defer func() { _ = conn.Close() }()

	// Unblock reads and writes as soon as the caller gives up.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	result, err := p.exchange(conn, resolved)
	if err != nil {
		return nil, p.classify(ctx, raw, err, true)
	}

	log.Debug().
		Str("address", raw).
		Str("dial", resolved.DialAddr()).
		Int64("ping_ms", result.PingMs).
		Int("online", result.Online).
		Msg("Status probe finished")

	return result, nil
}

func (p *Prober) exchange(conn net.Conn, resolved address.Resolved) (*Result, error) {
	hello := handshakePacket(p.protocol, resolved.Host, uint16(resolved.Port), statusIntent)
	if err := writePackets(conn, hello, statusRequestPacket()); err != nil {
		return nil, err
	}

	reader := bufio.NewReader(conn)
	resp, err := readPacket(reader)
	if err != nil {
		return nil, protocolOrIO(err)
	}
	if resp.ID != statusResponsePacketID {
		return nil, protocolErr(fmt.Errorf("%w: %d", errUnexpectedPacket, resp.ID))
	}
	raw, err := readString(resp)
	if err != nil {
		return nil, protocolErr(err)
	}
	result, err := parseStatus(raw)
	if err != nil {
		return nil, protocolErr(err)
	}

	sent := p.now()
	token := sent.UnixMilli()
	if err := writePackets(conn, pingPacket(token)); err != nil {
		return nil, err
	}
	pong, err := readPacket(reader)
	if err != nil {
		return nil, protocolOrIO(err)
	}
	if pong.ID != pongPacketID {
		return nil, protocolErr(fmt.Errorf("%w: %d", errUnexpectedPacket, pong.ID))
	}
	var echoed pk.Long
	if err := pong.Scan(&echoed); err != nil {
		return nil, protocolErr(err)
	}
	if int64(echoed) != token {
		return nil, protocolErr(errPongMismatch)
	}
	result.PingMs = p.now().Sub(sent).Milliseconds()

	return result, nil
}

// wireError marks a decoding failure so classify can tell it from I/O.
type wireError struct {
	err error
}

func (e *wireError) Error() string { return e.err.Error() }
func (e *wireError) Unwrap() error { return e.err }

func protocolErr(err error) error {
	return &wireError{err: err}
}

// protocolOrIO keeps network failures and early hang-ups as they are and
// marks framing failures as protocol errors.
func protocolOrIO(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	return protocolErr(err)
}

func (p *Prober) classify(ctx context.Context, raw string, err error, connected bool) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return context.Canceled
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
		return &TimeoutError{Address: raw, Err: err}
	}

	var wire *wireError
	if errors.As(err, &wire) {
		return &ProtocolError{Address: raw, Err: wire.err}
	}
	if connected {
		// The server hung up in the middle of the exchange.
		return &ProtocolError{Address: raw, Err: err}
	}
	return &ConnectionError{Address: raw, Err: err}
}
