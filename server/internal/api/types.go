package api

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	// State is unknown (no snapshot), healthy, warning or critical.
	State          string  `json:"state"`
	SiteCount      int     `json:"site_count"`
	HealthyCount   int     `json:"healthy_count"`
	UnhealthyCount int     `json:"unhealthy_count"`
	SSLOKCount     int     `json:"ssl_ok_count"`
	SSLRenewal     int     `json:"ssl_renewal_count"`
	SSLAction      int     `json:"ssl_action_count"`
	GeneratedAt    string  `json:"generated_at,omitempty"` // RFC3339
	AgeSeconds     float64 `json:"age_seconds"`
	Stale          bool    `json:"stale"`
}

// ProbeStatus is the rendered outcome of one probe on a site card.
type ProbeStatus struct {
	OK    bool   `json:"ok"`
	Label string `json:"label"`
}

// SSLView is the certificate section of a site card.
type SSLView struct {
	State     string  `json:"state"`
	DaysLeft  *int    `json:"days_left"`
	ExpiresAt *string `json:"expires_at"` // RFC3339
	Issuer    *string `json:"issuer"`
	Serial    *string `json:"serial"`

	// Class colours the expiry bar: red, yellow or green.
	Class string `json:"class"`
	// ExpiryFraction is days_left/365 capped at 1; null when unknown.
	ExpiryFraction *float64 `json:"expiry_fraction"`
	// BarWidth is the bar fill in percent.
	BarWidth float64 `json:"bar_width"`
}

// SiteResponse is one site card in GET /api/v1/sites and GET /api/v1/snapshot.
type SiteResponse struct {
	URL         string           `json:"url"`
	Badge       string           `json:"badge"` // OK | ISSUE
	Healthy     bool             `json:"healthy"`
	CheckedAt   string           `json:"checked_at"` // RFC3339
	HTTPStatus  *int             `json:"http_status"`
	DNS         ProbeStatus      `json:"dns"`
	TLS         ProbeStatus      `json:"tls"`
	HTTP        ProbeStatus      `json:"http"`
	Page        ProbeStatus      `json:"page"`
	SSL         SSLView          `json:"ssl"`
	Diagnostics []DiagnosticHint `json:"diagnostics"`
}

// CertResponse is one row of GET /api/v1/certs.
type CertResponse struct {
	URL       string  `json:"url"`
	TLSOk     bool    `json:"tls_ok"`
	State     string  `json:"state"`
	Class     string  `json:"class"`
	DaysLeft  *int    `json:"days_left"`
	ExpiresAt *string `json:"expires_at"`
	Issuer    *string `json:"issuer"`
	Serial    *string `json:"serial"`
}

// SnapshotResponse is the payload for GET /api/v1/snapshot and the data of
// every WebSocket message.
type SnapshotResponse struct {
	Sites       []SiteResponse `json:"sites"`
	GeneratedAt string         `json:"generated_at,omitempty"` // RFC3339, from the agent
	LoadedAt    string         `json:"loaded_at,omitempty"`    // RFC3339
	Stale       bool           `json:"stale"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
