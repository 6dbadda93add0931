// Package resolver defines the pluggable DNS lookup seam (spec §1: "DNS
// resolution (a pluggable resolver returning an endpoint)"). The engine
// asks a Resolver for an endpoint instead of calling net.Dial directly,
// so service discovery or split-horizon DNS can be substituted in tests
// and deployments without touching the protocol engine.
package resolver

import (
	"context"
	"net"
)

// Resolver turns a host[:port] into a dialable endpoint.
type Resolver interface {
	// Resolve returns the address to dial for host. Implementations may
	// return host unchanged, a resolved IP literal (Default does this for
	// names and returns IP literals unchanged), or an endpoint from a
	// service registry.
	Resolve(ctx context.Context, host string) (string, error)
}

// Default resolves through the standard library's net.DefaultResolver,
// restricted to the address family named by PreferredFamily ("", "tcp4",
// or "tcp6").
type Default struct {
	// PreferredFamily selects the network passed to net.Resolver.LookupIP
	// ("ip4" for "tcp4", "ip6" for "tcp6"); "" means any family.
	PreferredFamily string
}

// Resolve implements Resolver using net.DefaultResolver. If host is
// already a literal IP it is returned unchanged.
func (d Default) Resolve(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	network := "ip"
	switch d.PreferredFamily {
	case "tcp4":
		network = "ip4"
	case "tcp6":
		network = "ip6"
	}

	addrs, err := net.DefaultResolver.LookupIP(ctx, network, host)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", &net.DNSError{Err: "no addresses found", Name: host}
	}
	return addrs[0].String(), nil
}
