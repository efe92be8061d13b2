package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/sitewatch/sitewatch/pkg/types"
	"github.com/sitewatch/sitewatch/server/internal/store"
)

// Expiry bar thresholds, in days.
const (
	redMaxDays    = 30
	yellowMaxDays = 90
	barFullDays   = 365
	barMinPct     = 2
)

// Handler is the HTTP handler for /status.json and all /api/v1/* endpoints.
// It reads the loaded snapshot from the store and returns JSON responses.
type Handler struct {
	store *store.Store
	mux   *http.ServeMux
}

// New creates a Handler wired to the given snapshot store and registers all routes.
func New(st *store.Store) http.Handler {
	h := &Handler{store: st, mux: http.NewServeMux()}

	h.mux.HandleFunc("/status.json", h.rawSnapshot)
	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/sites", h.listSites)
	h.mux.HandleFunc("/api/v1/sites/lookup", h.lookupSite)
	h.mux.HandleFunc("/api/v1/certs", h.certs)
	h.mux.HandleFunc("/api/v1/snapshot", h.snapshot)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// rawSnapshot returns GET /status.json: the snapshot exactly as the agent wrote it.
func (h *Handler) rawSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	e, ok := h.store.Latest()
	if !ok {
		jsonErr(w, http.StatusNotFound, "no snapshot loaded")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	jsonResp(w, http.StatusOK, e.Snapshot)
}

// health returns GET /api/v1/health: per-state counts and staleness.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	e, ok := h.store.Latest()
	if !ok {
		jsonResp(w, http.StatusOK, HealthResponse{State: "unknown"})
		return
	}

	now := h.store.Now()
	resp := HealthResponse{
		SiteCount:   len(e.Snapshot.Sites),
		GeneratedAt: e.Snapshot.GeneratedAt.UTC().Format(time.RFC3339),
		AgeSeconds:  e.Age(now).Seconds(),
		Stale:       h.store.Stale(),
	}
	for i := range e.Snapshot.Sites {
		s := &e.Snapshot.Sites[i]
		if s.Healthy() {
			resp.HealthyCount++
		} else {
			resp.UnhealthyCount++
		}
		switch s.SSLState {
		case types.SSLStateRenewal:
			resp.SSLRenewal++
		case types.SSLStateAction:
			resp.SSLAction++
		default:
			resp.SSLOKCount++
		}
	}
	resp.State = overallState(resp)
	jsonResp(w, http.StatusOK, resp)
}

// listSites returns GET /api/v1/sites: one card per site in snapshot order.
func (h *Handler) listSites(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, toSiteResponses(h.store.List()))
}

// lookupSite returns GET /api/v1/sites/lookup?url=: a single site card.
func (h *Handler) lookupSite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	u := r.URL.Query().Get("url")
	if u == "" {
		jsonErr(w, http.StatusBadRequest, "url query parameter is required")
		return
	}
	s, ok := h.store.Get(u)
	if !ok {
		jsonErr(w, http.StatusNotFound, "site not found")
		return
	}
	jsonResp(w, http.StatusOK, toSiteResponse(s))
}

// certs returns GET /api/v1/certs: certificate status per site.
func (h *Handler) certs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sites := h.store.List()
	out := make([]CertResponse, 0, len(sites))
	for i := range sites {
		s := &sites[i]
		out = append(out, CertResponse{
			URL:       s.URL,
			TLSOk:     s.TLSOk,
			State:     string(s.SSLState),
			Class:     sslClass(s.SSLDaysLeft),
			DaysLeft:  s.SSLDaysLeft,
			ExpiresAt: formatTime(s.SSLExpiresAt),
			Issuer:    s.SSLIssuer,
			Serial:    s.SSLSerial,
		})
	}
	jsonResp(w, http.StatusOK, out)
}

// snapshot returns GET /api/v1/snapshot: the full dashboard view model.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildSnapshot(h.store))
}

// BuildSnapshot assembles the dashboard view model from the store. It is
// shared by the REST handler and the WebSocket hub.
func BuildSnapshot(st *store.Store) SnapshotResponse {
	e, ok := st.Latest()
	if !ok {
		return SnapshotResponse{Sites: []SiteResponse{}}
	}
	return SnapshotResponse{
		Sites:       toSiteResponses(e.Snapshot.Sites),
		GeneratedAt: e.Snapshot.GeneratedAt.UTC().Format(time.RFC3339),
		LoadedAt:    e.LoadedAt.UTC().Format(time.RFC3339),
		Stale:       st.Stale(),
	}
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// overallState summarises a health response.
func overallState(h HealthResponse) string {
	switch {
	case h.UnhealthyCount > 0 || h.SSLAction > 0:
		return "critical"
	case h.Stale || h.SSLRenewal > 0:
		return "warning"
	default:
		return "healthy"
	}
}

// sslClass colours the expiry bar. An unknown expiry is treated as urgent.
func sslClass(daysLeft *int) string {
	switch {
	case daysLeft == nil || *daysLeft <= redMaxDays:
		return "red"
	case *daysLeft <= yellowMaxDays:
		return "yellow"
	default:
		return "green"
	}
}

// expiryFraction is daysLeft over a year, capped at 1. Negative values are
// kept so an expired certificate is distinguishable from one expiring today.
func expiryFraction(daysLeft *int) *float64 {
	if daysLeft == nil {
		return nil
	}
	f := math.Min(float64(*daysLeft)/barFullDays, 1)
	return &f
}

// barWidth is the expiry bar fill in percent: full when unknown, otherwise
// the fraction with a small floor so the bar stays visible.
func barWidth(daysLeft *int) float64 {
	f := expiryFraction(daysLeft)
	if f == nil {
		return 100
	}
	return math.Max(*f*100, barMinPct)
}

func probeStatus(ok bool) ProbeStatus {
	if ok {
		return ProbeStatus{OK: true, Label: "OK"}
	}
	return ProbeStatus{OK: false, Label: "FAIL"}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func toSiteResponses(sites []types.SiteCheck) []SiteResponse {
	out := make([]SiteResponse, 0, len(sites))
	for i := range sites {
		out = append(out, toSiteResponse(&sites[i]))
	}
	return out
}

// toSiteResponse maps a site record to its dashboard card.
func toSiteResponse(s *types.SiteCheck) SiteResponse {
	badge := "ISSUE"
	if s.Healthy() {
		badge = "OK"
	}

	httpStatus := probeStatus(s.HTTPOk)
	if s.HTTPStatus != nil {
		httpStatus.Label = strconv.Itoa(*s.HTTPStatus)
	} else {
		httpStatus.Label = "n/a"
	}

	return SiteResponse{
		URL:        s.URL,
		Badge:      badge,
		Healthy:    s.Healthy(),
		CheckedAt:  s.CheckedAt.UTC().Format(time.RFC3339),
		HTTPStatus: s.HTTPStatus,
		DNS:        probeStatus(s.DNSOk),
		TLS:        probeStatus(s.TLSOk),
		HTTP:       httpStatus,
		Page:       probeStatus(s.PageOk),
		SSL: SSLView{
			State:          string(s.SSLState),
			DaysLeft:       s.SSLDaysLeft,
			ExpiresAt:      formatTime(s.SSLExpiresAt),
			Issuer:         s.SSLIssuer,
			Serial:         s.SSLSerial,
			Class:          sslClass(s.SSLDaysLeft),
			ExpiryFraction: expiryFraction(s.SSLDaysLeft),
			BarWidth:       barWidth(s.SSLDaysLeft),
		},
		Diagnostics: computeDiagnostics(s),
	}
}
