package api

import (
	"fmt"
	"sort"

	"github.com/sitewatch/sitewatch/pkg/types"
)

// DiagnosticHint is one human-readable insight about a site's health.
// The UI displays these as chips on the site card; clicking one shows Detail.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip (≤ 5 words).
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint (e.g. days left).
	Value *float64 `json:"value,omitempty"`
}

var levelRank = map[string]int{"critical": 0, "warning": 1, "info": 2, "ok": 3}

// computeDiagnostics derives human-readable diagnostic hints from a site record.
// Diagnostics are ordered: critical first, then warnings, then info.
func computeDiagnostics(s *types.SiteCheck) []DiagnosticHint {
	var hints []DiagnosticHint

	// ── Name resolution ──────────────────────────────────────────────────────
	if !s.DNSOk {
		hints = append(hints, DiagnosticHint{
			Key:   "dns_failed",
			Level: "critical",
			Title: "DNS lookup failed",
			Detail: "The hostname did not resolve to any address when the site was last checked. " +
				"Every other probe depends on this, so their failures are a consequence. " +
				"Check that the DNS record exists and has not expired, and that the domain " +
				"registration is still active.",
		})
		return hints // no point computing further without an address
	}

	// ── TLS handshake ────────────────────────────────────────────────────────
	if !s.TLSOk {
		hints = append(hints, DiagnosticHint{
			Key:   "tls_failed",
			Level: "critical",
			Title: "TLS handshake failed",
			Detail: "The hostname resolved but a TLS session on port 443 could not be " +
				"established within the timeout. The server may be down, a firewall may be " +
				"dropping connections, or nothing is listening on 443 any more. " +
				"Certificate details are unavailable until this succeeds.",
		})
	}

	// ── HTTP response ────────────────────────────────────────────────────────
	switch {
	case s.HTTPStatus == nil:
		hints = append(hints, DiagnosticHint{
			Key:   "http_no_response",
			Level: "critical",
			Title: "No HTTP response",
			Detail: "The page request did not produce a response: the connection failed, " +
				"timed out, or was cut off while the body was being read.",
		})
	case *s.HTTPStatus >= 400:
		v := float64(*s.HTTPStatus)
		hints = append(hints, DiagnosticHint{
			Key:   "http_error",
			Level: "critical",
			Title: fmt.Sprintf("HTTP %d", *s.HTTPStatus),
			Detail: fmt.Sprintf(
				"The server answered with status %d. Status codes of 400 and above are "+
					"treated as a failed check. 5xx usually means the application or an "+
					"upstream behind the proxy is failing; 4xx usually means the URL moved "+
					"or access rules changed.",
				*s.HTTPStatus,
			),
			Value: &v,
		})
	case *s.HTTPStatus >= 300:
		v := float64(*s.HTTPStatus)
		hints = append(hints, DiagnosticHint{
			Key:   "http_redirect",
			Level: "info",
			Title: fmt.Sprintf("Redirect (%d)", *s.HTTPStatus),
			Detail: "The URL answers with a redirect, which counts as up. The redirect " +
				"target itself is not checked; add it to the site list if it matters.",
			Value: &v,
		})
	}

	// ── Page content ─────────────────────────────────────────────────────────
	if s.HTTPOk && !s.PageOk {
		hints = append(hints, DiagnosticHint{
			Key:   "page_soft_failure",
			Level: "critical",
			Title: "Error page served",
			Detail: "The server returned a successful status, but the page body contains " +
				"an error phrase such as \"bad gateway\" or \"application error\". This " +
				"usually means a proxy or platform is serving its own error page in front " +
				"of a broken application.",
		})
	}

	// ── Certificate ──────────────────────────────────────────────────────────
	hints = append(hints, certHints(s)...)

	// ── All clear ────────────────────────────────────────────────────────────
	if len(hints) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "healthy",
			Level: "ok",
			Title: "All clear",
			Detail: "DNS resolves, TLS connects, the page loads with a good status and " +
				"no error content, and the certificate has plenty of time left.",
		})
	}

	sort.SliceStable(hints, func(i, j int) bool {
		return levelRank[hints[i].Level] < levelRank[hints[j].Level]
	})
	return hints
}

// certHints returns certificate-related hints.
func certHints(s *types.SiteCheck) []DiagnosticHint {
	if !s.TLSOk {
		return nil
	}
	if s.SSLDaysLeft == nil {
		return []DiagnosticHint{{
			Key:   "cert_unknown",
			Level: "warning",
			Title: "Expiry unknown",
			Detail: "A TLS session was established but no certificate expiry could be read. " +
				"The expiry bar is shown in red until this is resolved.",
		}}
	}

	days := *s.SSLDaysLeft
	v := float64(days)
	var hints []DiagnosticHint

	switch {
	case days <= 0:
		hints = append(hints, DiagnosticHint{
			Key:   "cert_expired",
			Level: "critical",
			Title: "Certificate expired",
			Detail: "The certificate's validity period has ended. Browsers will refuse " +
				"the connection. Renew and deploy a new certificate now.",
			Value: &v,
		})
	case s.SSLState == types.SSLStateAction:
		hints = append(hints, DiagnosticHint{
			Key:   "cert_action",
			Level: "critical",
			Title: fmt.Sprintf("Expires in %d days", days),
			Detail: fmt.Sprintf(
				"The certificate expires in %d days. Automated renewal normally happens "+
					"well before this point, so it has probably failed. Check the ACME "+
					"client's logs and the HTTP/DNS challenge configuration.",
				days,
			),
			Value: &v,
		})
	case days <= 90:
		hints = append(hints, DiagnosticHint{
			Key:    "cert_expiring",
			Level:  "warning",
			Title:  fmt.Sprintf("Expires in %d days", days),
			Detail: fmt.Sprintf("The certificate expires in %d days. No action is needed yet if renewal is automated.", days),
			Value:  &v,
		})
	}

	if s.SSLState == types.SSLStateRenewal {
		hints = append(hints, DiagnosticHint{
			Key:   "cert_renewal",
			Level: "info",
			Title: "Renewal in progress",
			Detail: "The certificate serial changed since the previous check while inside " +
				"the renewal window, and the issuer is a known intermediate. This looks " +
				"like a routine automated rotation.",
		})
	}
	return hints
}
