package probe

import (
	"context"
	"time"
)

// MaxBodyBytes caps how much of a response body the page probe keeps.
// Bytes beyond the cap are never read.
const MaxBodyBytes = 200_000

// HTTPSPort is the port the certificate probe dials by default.
const HTTPSPort = "443"

// Resolver reports whether a hostname resolves.
type Resolver interface {
	Resolve(ctx context.Context, host string) bool
}

// CertProber inspects the certificate served by host.
type CertProber interface {
	Probe(ctx context.Context, host string) CertResult
}

// PageFetcher fetches a page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) PageResult
}

// CertResult is the outcome of one certificate probe.
//
// OK is false only when no TLS session could be established; in that case
// every other field is nil. A session without certificate data has OK set
// and nil fields.
type CertResult struct {
	OK        bool
	ExpiresAt *time.Time
	Issuer    *string
	Serial    *string
}

// PageResult is the outcome of one page fetch.
//
// OK is false only on transport failure (timeout, refused connection, TLS
// error, aborted body). Status is nil when no response was received.
type PageResult struct {
	OK     bool
	Status *int
	Body   string
}
