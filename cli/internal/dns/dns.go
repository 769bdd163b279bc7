// Package dns resolves the signaling host with a public resolver fallback.
package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

var errNoAddresses = errors.New("no addresses found")

// Resolver tries the system resolver first. When that fails it asks every
// fallback server at once and takes the first usable answer.
type Resolver struct {
	// Fallbacks are resolver addresses without a port; port 53 is used.
	Fallbacks    []string
	LocalTimeout time.Duration
	RaceTimeout  time.Duration

	system func(ctx context.Context, host string) ([]string, error)
	ask    func(ctx context.Context, host, server string) ([]string, error)
}

// Default is used by Lookup and Dialer.
var Default = &Resolver{
	Fallbacks: []string{
		"1.1.1.1", "1.0.0.1", "2606:4700:4700::1111",
		"8.8.8.8", "8.8.4.4", "2001:4860:4860::8888",
		"9.9.9.9", "149.112.112.112", "2620:fe::fe",
	},
	LocalTimeout: time.Second,
	RaceTimeout:  2 * time.Second,
}

func Lookup(ctx context.Context, host string) (string, error) {
	return Default.Lookup(ctx, host)
}

// Dialer returns a dial function for websocket.Dialer.NetDialContext that
// resolves through Default.
func Dialer() func(ctx context.Context, network, addr string) (net.Conn, error) {
	return Default.DialContext
}

// Lookup resolves host to one address, IPv4 preferred. IP literals are
// returned unchanged.
func (r *Resolver) Lookup(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil {
		return ip.String(), nil
	}

	local, cancel := context.WithTimeout(ctx, r.LocalTimeout)
	ips, err := r.systemLookup(local, host)
	cancel()
	if err == nil {
		if ip, err := preferIPv4(ips); err == nil {
			return ip, nil
		}
	}
	return r.race(ctx, host)
}

func (r *Resolver) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	ip, err := r.Lookup(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("dns lookup failed: %w", err)
	}
	var d net.Dialer
	return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
}

func (r *Resolver) race(ctx context.Context, host string) (string, error) {
	if len(r.Fallbacks) == 0 {
		return "", fmt.Errorf("resolve %s: %w", host, errNoAddresses)
	}

	ctx, cancel := context.WithTimeout(ctx, r.RaceTimeout)
	defer cancel()

	// An empty answer is a failed server.
	answers := make(chan string, len(r.Fallbacks))
	for _, server := range r.Fallbacks {
		go func() {
			var ip string
			if ips, err := r.askServer(ctx, host, server); err == nil {
				ip, _ = preferIPv4(ips)
			}
			answers <- ip
		}()
	}

	for range r.Fallbacks {
		select {
		case ip := <-answers:
			if ip != "" {
				return ip, nil
			}
		case <-ctx.Done():
			return "", fmt.Errorf("resolve %s: %w", host, ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("resolve %s: %w", host, err)
	}
	return "", fmt.Errorf("resolve %s: all %d fallback resolvers failed", host, len(r.Fallbacks))
}

func (r *Resolver) systemLookup(ctx context.Context, host string) ([]string, error) {
	if r.system != nil {
		return r.system(ctx, host)
	}
	return net.DefaultResolver.LookupHost(ctx, host)
}

func (r *Resolver) askServer(ctx context.Context, host, server string) ([]string, error) {
	if r.ask != nil {
		return r.ask(ctx, host, server)
	}
	res := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
		},
	}
	return res.LookupHost(ctx, host)
}

// preferIPv4 picks the first IPv4 address, falling back to the first entry.
func preferIPv4(ips []string) (string, error) {
	if len(ips) == 0 {
		return "", errNoAddresses
	}
	for _, ip := range ips {
		if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() != nil {
			return ip, nil
		}
	}
	return ips[0], nil
}
