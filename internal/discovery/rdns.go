package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// Resolver performs reverse DNS lookups. When a server is configured the
// PTR query goes straight to it; otherwise the system resolver is used.
type Resolver struct {
	server string
	client *dns.Client
}

// NewResolver creates a resolver. server may be empty, "host", or
// "host:port"; a missing port defaults to 53.
func NewResolver(server string) *Resolver {
	if server != "" && !strings.Contains(server, ":") {
		server += ":53"
	}
	return &Resolver{
		server: server,
		client: &dns.Client{Timeout: 2 * time.Second},
	}
}

// Reverse returns the PTR name for an address, without the trailing dot.
func (r *Resolver) Reverse(ctx context.Context, addr string) (string, error) {
	if r.server == "" {
		return r.reverseSystem(ctx, addr)
	}

	arpa, err := dns.ReverseAddr(addr)
	if err != nil {
		return "", fmt.Errorf("bad address %q: %w", addr, err)
	}

	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return "", fmt.Errorf("ptr query for %s: %w", addr, err)
	}

	for _, rr := range resp.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, "."), nil
		}
	}
	return "", fmt.Errorf("no ptr record for %s", addr)
}

func (r *Resolver) reverseSystem(ctx context.Context, addr string) (string, error) {
	var resolver net.Resolver
	names, err := resolver.LookupAddr(ctx, addr)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no ptr record for %s", addr)
	}
	return strings.TrimSuffix(names[0], "."), nil
}
