package probe

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sitewatch/sitewatch/agent/internal/config"
)

// HTTPFetcher issues page GETs with a shared client.
type HTTPFetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// NewPageFetcher builds the HTTP client once from the agent config and
// reuses it for every fetch.
func NewPageFetcher(cfg config.AgentConfig) *HTTPFetcher {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
		},
		// One request per connection; the socket is released with the body.
		DisableKeepAlives: true,
	}
	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
	if !cfg.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return &HTTPFetcher{client: client, timeout: cfg.Timeout, userAgent: cfg.UserAgent}
}

// Fetch GETs url and keeps at most MaxBodyBytes of the body. Any status
// code is a successful fetch; judging the status is PageLooksOK's job.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) PageResult {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		slog.Debug("probe: build request failed", "url", url, "err", err)
		return PageResult{}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		slog.Debug("probe: http get failed", "url", url, "err", err)
		return PageResult{}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		slog.Debug("probe: read body failed", "url", url, "err", err)
		return PageResult{}
	}

	status := resp.StatusCode
	return PageResult{OK: true, Status: &status, Body: string(body)}
}

// PageLooksOK is the content heuristic. It fails when there is no status,
// when the status is 400 or above, or when the lower-cased body contains
// any of phrases. Phrases are compared lower-cased.
func PageLooksOK(status *int, body string, phrases []string) bool {
	if status == nil || *status >= 400 {
		return false
	}
	lower := strings.ToLower(body)
	for _, p := range phrases {
		if p == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(p)) {
			return false
		}
	}
	return true
}
