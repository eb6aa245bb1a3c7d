// Package netguard enforces the network-boundary policy for ingestion:
// URLs resolving to loopback, link-local, or private address ranges are
// rejected unless private networks are explicitly allowed.
package netguard

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrBlockedHost is returned when a target resolves inside a blocked range.
var ErrBlockedHost = errors.New("blocked host")

// LookupFunc resolves a hostname to its addresses. Injectable for tests.
type LookupFunc func(ctx context.Context, host string) ([]net.IP, error)

// Guard validates ingestion targets against the boundary policy.
type Guard struct {
	AllowPrivateNetworks bool
	LookupIP             LookupFunc
}

// New returns a Guard using the default system resolver.
func New(allowPrivate bool) *Guard {
	return &Guard{
		AllowPrivateNetworks: allowPrivate,
		LookupIP: func(ctx context.Context, host string) ([]net.IP, error) {
			addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
			if err != nil {
				return nil, err
			}
			ips := make([]net.IP, len(addrs))
			for i, a := range addrs {
				ips[i] = a.IP
			}
			return ips, nil
		},
	}
}

// Check validates a raw URL. Non-network schemes pass without resolution:
// they never leave the process boundary. Every resolved address must be
// outside the blocked ranges; one bad address blocks the whole target.
func (g *Guard) Check(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}

	host := u.Hostname()
	if host == "" {
		return nil
	}

	if ip := net.ParseIP(host); ip != nil {
		return g.checkIP(host, ip)
	}

	ips, err := g.LookupIP(ctx, host)
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", host, err)
	}
	for _, ip := range ips {
		if err := g.checkIP(host, ip); err != nil {
			return err
		}
	}
	return nil
}

func (g *Guard) checkIP(host string, ip net.IP) error {
	if g.AllowPrivateNetworks {
		return nil
	}
	if Blocked(ip) {
		return fmt.Errorf("%w: %s resolves to %s", ErrBlockedHost, host, ip)
	}
	return nil
}

// Blocked reports whether an address sits in a range the policy denies by
// default: loopback, link-local, RFC1918/ULA private, or unspecified.
func Blocked(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsPrivate() ||
		ip.IsUnspecified()
}
