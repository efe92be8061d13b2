package probe

import (
	"context"
	"log/slog"
	"net"
	"time"
)

// lookupFunc matches net.Resolver.LookupHost.
type lookupFunc func(ctx context.Context, host string) ([]string, error)

// DNSResolver resolves hostnames through the system resolver.
type DNSResolver struct {
	timeout time.Duration
	lookup  lookupFunc // injectable for tests
}

// NewResolver returns a DNSResolver that gives up after timeout.
func NewResolver(timeout time.Duration) *DNSResolver {
	return &DNSResolver{timeout: timeout, lookup: net.DefaultResolver.LookupHost}
}

// Resolve reports whether host resolved to at least one address. NXDOMAIN,
// timeouts and network errors all yield false.
func (r *DNSResolver) Resolve(ctx context.Context, host string) bool {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addrs, err := r.lookup(ctx, host)
	if err != nil {
		slog.Debug("probe: dns lookup failed", "host", host, "err", err)
		return false
	}
	return len(addrs) > 0
}
