package address

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"serverlist/pkg/log"
)

const (
	srvService = "minecraft"
	srvProto   = "tcp"
)

// Resolved is an address ready to dial.
type Resolved struct {
	// Host is the name sent in the handshake (the SRV target when redirected).
	Host string
	IP   string
	Port int
}

// DialAddr returns the ip:port pair to connect to.
func (r Resolved) DialAddr() string {
	return net.JoinHostPort(r.IP, strconv.Itoa(r.Port))
}

// Lookup is the subset of *net.Resolver used for resolution.
type Lookup interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
}

// Resolver turns parsed addresses into dialable ones, following SRV redirects.
type Resolver struct {
	lookup Lookup
}

// NewResolver creates a resolver. A nil lookup uses net.DefaultResolver.
func NewResolver(lookup Lookup) *Resolver {
	if lookup == nil {
		lookup = net.DefaultResolver
	}
	return &Resolver{lookup: lookup}
}

// Resolve resolves the address. On the default port the _minecraft._tcp SRV
// record wins when its target resolves; otherwise the plain host is used.
func (r *Resolver) Resolve(ctx context.Context, addr Address) (Resolved, error) {
	host := addr.ASCIIHost()
	direct, directErr := r.resolveHost(ctx, host, addr.Port)
	if directErr != nil {
		log.Debug().Err(directErr).Str("host", host).Msg("Direct host lookup failed")
	}

	if target, ok := r.redirect(ctx, addr, host); ok {
		redirected, err := r.resolveHost(ctx, target.Host, target.Port)
		if err == nil {
			return redirected, nil
		}
		log.Debug().Err(err).Str("target", target.HostPort()).Msg("SRV target did not resolve")
	}

	if directErr != nil {
		return Resolved{}, fmt.Errorf("couldn't resolve or redirect %s: %w", addr.Host, directErr)
	}
	return direct, nil
}

func (r *Resolver) resolveHost(ctx context.Context, host string, port int) (Resolved, error) {
	if ip := net.ParseIP(host); ip != nil {
		return Resolved{Host: host, IP: ip.String(), Port: port}, nil
	}

	addrs, err := r.lookup.LookupHost(ctx, host)
	if err != nil {
		return Resolved{}, err
	}
	if len(addrs) == 0 {
		return Resolved{}, &net.DNSError{Err: "no addresses", Name: host, IsNotFound: true}
	}
	return Resolved{Host: host, IP: addrs[0], Port: port}, nil
}

// redirect looks up the SRV record. Records come back ordered by priority
// and shuffled by weight, so the first one is the pick.
func (r *Resolver) redirect(ctx context.Context, addr Address, host string) (Address, bool) {
	if addr.Port != DefaultPort || net.ParseIP(host) != nil {
		return Address{}, false
	}

	_, records, err := r.lookup.LookupSRV(ctx, srvService, srvProto, host)
	if err != nil || len(records) == 0 {
		if err != nil {
			log.Debug().Err(err).Str("host", host).Msg("No SRV redirect")
		}
		return Address{}, false
	}

	target := strings.TrimSuffix(records[0].Target, ".")
	if target == "" {
		return Address{}, false
	}
	return Address{Host: target, Port: int(records[0].Port)}, true
}
