package types

import (
	"math"
	"time"
)

// SSLState is the derived certificate health classification.
type SSLState string

const (
	SSLStateOK      SSLState = "ok"
	SSLStateRenewal SSLState = "renewal"
	SSLStateAction  SSLState = "action"
)

// SiteCheck is the result of one probe run against one configured URL.
// Optional fields are pointers and encode as JSON null when absent.
type SiteCheck struct {
	URL       string    `json:"url"`
	CheckedAt time.Time `json:"checkedAt"`

	DNSOk bool `json:"dnsOk"`

	// TLSOk reports that a TLS session was established. It says nothing
	// about whether the certificate is valid or unexpired.
	TLSOk bool `json:"tlsOk"`

	HTTPOk     bool `json:"httpOk"`
	HTTPStatus *int `json:"httpStatus"`
	PageOk     bool `json:"pageOk"`

	SSLExpiresAt *time.Time `json:"sslExpiresAt"`
	SSLDaysLeft  *int       `json:"sslDaysLeft"`
	SSLIssuer    *string    `json:"sslIssuer"`
	SSLSerial    *string    `json:"sslSerial"`

	SSLState SSLState `json:"sslState"`
}

// Healthy reports whether every probe of the site passed.
func (s *SiteCheck) Healthy() bool {
	return s.DNSOk && s.TLSOk && s.HTTPOk && s.PageOk
}

// SetExpiry records the certificate expiry and the days remaining relative
// to now. Both fields are set or cleared together.
func (s *SiteCheck) SetExpiry(expiresAt *time.Time, now time.Time) {
	if expiresAt == nil {
		s.SSLExpiresAt = nil
		s.SSLDaysLeft = nil
		return
	}
	at := expiresAt.UTC()
	days := DaysUntil(at, now)
	s.SSLExpiresAt = &at
	s.SSLDaysLeft = &days
}

// DaysUntil returns the ceiling of whole days from now until t. The result
// is zero or negative once t has passed.
func DaysUntil(t, now time.Time) int {
	ms := t.Sub(now).Milliseconds()
	return int(math.Ceil(float64(ms) / float64(24*time.Hour/time.Millisecond)))
}

// Snapshot is the full result of one run, in configured site order.
type Snapshot struct {
	GeneratedAt time.Time   `json:"generatedAt"`
	Sites       []SiteCheck `json:"sites"`
}

// Site returns the record for url, if present.
func (s *Snapshot) Site(url string) (*SiteCheck, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Sites {
		if s.Sites[i].URL == url {
			return &s.Sites[i], true
		}
	}
	return nil, false
}

// Index returns the records keyed by URL. A nil snapshot yields an empty map.
func (s *Snapshot) Index() map[string]*SiteCheck {
	if s == nil {
		return map[string]*SiteCheck{}
	}
	idx := make(map[string]*SiteCheck, len(s.Sites))
	for i := range s.Sites {
		idx[s.Sites[i].URL] = &s.Sites[i]
	}
	return idx
}
