package address

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// DefaultPort is the game's default server port.
const DefaultPort = 25565

const maxPort = 65535

// ErrInvalidAddress is returned when a server address cannot be parsed.
var ErrInvalidAddress = errors.New("invalid server address")

// Address is a user supplied server address split into host and port.
type Address struct {
	Host string
	Port int
}

// Parse accepts "host", "host:port", "[v6]" and "[v6]:port".
func Parse(raw string) (Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Address{}, fmt.Errorf("%w: address cannot be empty", ErrInvalidAddress)
	}

	switch {
	case strings.HasPrefix(raw, "["):
		return parseBracketed(raw)
	case strings.Contains(raw, ":"):
		host, port, _ := strings.Cut(raw, ":")
		return withPort(raw, host, port)
	default:
		return Address{Host: raw, Port: DefaultPort}, nil
	}
}

func parseBracketed(raw string) (Address, error) {
	closing := strings.IndexByte(raw, ']')
	if closing < 0 {
		return Address{}, fmt.Errorf("%w: %s", ErrInvalidAddress, raw)
	}

	host := raw[1:closing]
	rest := raw[closing+1:]
	if rest == "" {
		return Address{Host: host, Port: DefaultPort}, nil
	}
	if !strings.HasPrefix(rest, ":") {
		return Address{}, fmt.Errorf("%w: expected colon after IPv6 address in %s", ErrInvalidAddress, raw)
	}
	return withPort(raw, host, rest[1:])
}

func withPort(raw, host, port string) (Address, error) {
	if host == "" {
		return Address{}, fmt.Errorf("%w: missing host in %s", ErrInvalidAddress, raw)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > maxPort {
		return Address{}, fmt.Errorf("%w: bad port in %s", ErrInvalidAddress, raw)
	}
	return Address{Host: host, Port: n}, nil
}

// ASCIIHost returns the IDNA ASCII form of the host, or the host itself when
// it cannot be converted.
func (a Address) ASCIIHost() string {
	ascii, err := idna.Lookup.ToASCII(a.Host)
	if err != nil || ascii == "" {
		return a.Host
	}
	return ascii
}

// HostPort joins host and port, bracketing IPv6 literals.
func (a Address) HostPort() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

func (a Address) String() string {
	return a.HostPort()
}
