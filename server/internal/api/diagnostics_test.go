package api

import (
	"testing"
	"time"

	"github.com/sitewatch/sitewatch/pkg/types"
)

func site(mut func(*types.SiteCheck)) *types.SiteCheck {
	status := 200
	days := 200
	exp := time.Now().Add(200 * 24 * time.Hour)
	s := &types.SiteCheck{
		URL: "https://a.example/", DNSOk: true, TLSOk: true, HTTPOk: true, PageOk: true,
		HTTPStatus: &status, SSLDaysLeft: &days, SSLExpiresAt: &exp,
		SSLState: types.SSLStateOK,
	}
	if mut != nil {
		mut(s)
	}
	return s
}

func keys(hints []DiagnosticHint) []string {
	out := make([]string, len(hints))
	for i, h := range hints {
		out[i] = h.Key
	}
	return out
}

func hasKey(hints []DiagnosticHint, key string) bool {
	for _, h := range hints {
		if h.Key == key {
			return true
		}
	}
	return false
}

func TestComputeDiagnostics(t *testing.T) {
	tests := []struct {
		name    string
		site    *types.SiteCheck
		want    []string
		notWant []string
	}{
		{
			name: "healthy",
			site: site(nil),
			want: []string{"healthy"},
		},
		{
			name: "dns failure short-circuits",
			site: site(func(s *types.SiteCheck) {
				s.DNSOk, s.TLSOk, s.HTTPOk, s.PageOk = false, false, false, false
				s.HTTPStatus, s.SSLDaysLeft = nil, nil
			}),
			want:    []string{"dns_failed"},
			notWant: []string{"tls_failed", "http_no_response"},
		},
		{
			name: "tls and http failures",
			site: site(func(s *types.SiteCheck) {
				s.TLSOk, s.HTTPOk, s.PageOk = false, false, false
				s.HTTPStatus, s.SSLDaysLeft = nil, nil
			}),
			want:    []string{"tls_failed", "http_no_response"},
			notWant: []string{"cert_unknown", "healthy"},
		},
		{
			name: "http 503",
			site: site(func(s *types.SiteCheck) {
				v := 503
				s.HTTPStatus, s.HTTPOk, s.PageOk = &v, false, false
			}),
			want:    []string{"http_error"},
			notWant: []string{"page_soft_failure"},
		},
		{
			name: "redirect is informational",
			site: site(func(s *types.SiteCheck) { v := 301; s.HTTPStatus = &v }),
			want: []string{"http_redirect"},
		},
		{
			name: "soft failure page",
			site: site(func(s *types.SiteCheck) { s.PageOk = false }),
			want: []string{"page_soft_failure"},
		},
		{
			name: "expiry unknown with tls ok",
			site: site(func(s *types.SiteCheck) { s.SSLDaysLeft, s.SSLExpiresAt = nil, nil }),
			want: []string{"cert_unknown"},
		},
		{
			name: "expired",
			site: site(func(s *types.SiteCheck) { d := -2; s.SSLDaysLeft = &d; s.SSLState = types.SSLStateAction }),
			want: []string{"cert_expired"},
		},
		{
			name: "action window",
			site: site(func(s *types.SiteCheck) { d := 12; s.SSLDaysLeft = &d; s.SSLState = types.SSLStateAction }),
			want: []string{"cert_action"},
		},
		{
			name: "renewal",
			site: site(func(s *types.SiteCheck) { d := 40; s.SSLDaysLeft = &d; s.SSLState = types.SSLStateRenewal }),
			want: []string{"cert_expiring", "cert_renewal"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hints := computeDiagnostics(tt.site)
			for _, k := range tt.want {
				if !hasKey(hints, k) {
					t.Errorf("missing %q in %v", k, keys(hints))
				}
			}
			for _, k := range tt.notWant {
				if hasKey(hints, k) {
					t.Errorf("unexpected %q in %v", k, keys(hints))
				}
			}
		})
	}
}

func TestComputeDiagnostics_OrderedBySeverity(t *testing.T) {
	hints := computeDiagnostics(site(func(s *types.SiteCheck) {
		v := 302
		d := 10
		s.HTTPStatus = &v
		s.SSLDaysLeft = &d
		s.SSLState = types.SSLStateAction
	}))
	for i := 1; i < len(hints); i++ {
		if levelRank[hints[i-1].Level] > levelRank[hints[i].Level] {
			t.Fatalf("hints not ordered by severity: %v", keys(hints))
		}
	}
	if hints[0].Key != "cert_action" {
		t.Errorf("first hint: got %q, want cert_action", hints[0].Key)
	}
}
