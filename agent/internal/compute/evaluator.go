package compute

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/sitewatch/sitewatch/agent/internal/config"
	"github.com/sitewatch/sitewatch/agent/internal/probe"
	"github.com/sitewatch/sitewatch/pkg/types"
)

// Evaluator runs the probes for one site and assembles its SiteCheck.
//
// An Evaluator holds no per-site state; Evaluate is safe for concurrent use.
type Evaluator struct {
	resolver probe.Resolver
	certs    probe.CertProber
	pages    probe.PageFetcher
	policy   Policy
	phrases  []string
	now      func() time.Time // injectable for deterministic tests
}

// NewEvaluator wires the given probes. Tests pass fakes; production code
// uses NewDefaultEvaluator.
func NewEvaluator(r probe.Resolver, c probe.CertProber, p probe.PageFetcher, policy Policy, phrases []string) *Evaluator {
	return &Evaluator{
		resolver: r,
		certs:    c,
		pages:    p,
		policy:   policy,
		phrases:  phrases,
		now:      time.Now,
	}
}

// NewDefaultEvaluator builds an Evaluator with the network probes configured
// from cfg. All three probes share cfg.Timeout.
func NewDefaultEvaluator(cfg config.AgentConfig) *Evaluator {
	return NewEvaluator(
		probe.NewResolver(cfg.Timeout),
		probe.NewCertProber(cfg.Timeout),
		probe.NewPageFetcher(cfg),
		Policy{Intermediates: cfg.Classifier.Intermediates},
		cfg.Content.FailurePhrases,
	)
}

// Evaluate probes siteURL and classifies the result against prev, the
// same site's record from the previous snapshot (nil if none).
//
// Probes run in sequence: DNS, TLS, page. Each is bounded by its own
// timeout, so the wall time is at most three timeouts.
func (e *Evaluator) Evaluate(ctx context.Context, siteURL string, prev *types.SiteCheck) types.SiteCheck {
	rec := types.SiteCheck{URL: siteURL}

	u, err := url.Parse(siteURL)
	if err != nil || u.Hostname() == "" {
		slog.Warn("compute: unparseable site url", "url", siteURL, "err", err)
		rec.CheckedAt = e.now().UTC()
		rec.SSLState = Classify(&rec, prev, e.policy)
		return rec
	}
	host := u.Hostname()

	rec.DNSOk = e.resolver.Resolve(ctx, host)
	cert := e.certs.Probe(ctx, host)
	page := e.pages.Fetch(ctx, siteURL)

	now := e.now()
	rec.CheckedAt = now.UTC()
	rec.TLSOk = cert.OK
	rec.SetExpiry(cert.ExpiresAt, now)
	rec.SSLIssuer = cert.Issuer
	rec.SSLSerial = cert.Serial

	rec.HTTPStatus = page.Status
	rec.HTTPOk = page.OK && page.Status != nil && *page.Status < 400
	rec.PageOk = probe.PageLooksOK(page.Status, page.Body, e.phrases)

	rec.SSLState = Classify(&rec, prev, e.policy)

	slog.Debug("compute: site evaluated",
		"url", siteURL,
		"dns_ok", rec.DNSOk,
		"tls_ok", rec.TLSOk,
		"http_ok", rec.HTTPOk,
		"page_ok", rec.PageOk,
		"ssl_state", rec.SSLState,
	)
	return rec
}
