package compute

import (
	"slices"

	"github.com/sitewatch/sitewatch/pkg/types"
)

// Certificate-state thresholds, in days left.
//
// The renewal window (RenewalWindowLow, RenewalWindowHigh] sits directly
// above ActionThreshold. A rotation seen at exactly 30 days is reported as
// action, never renewal.
const (
	RenewalWindowLow  = 30
	RenewalWindowHigh = 45
	ActionThreshold   = 30
)

// Policy holds the data the classifier matches against.
type Policy struct {
	// Intermediates is the issuer allow-list for rotation detection.
	Intermediates []string
}

// Classify derives the certificate state of cur. prev is the record with
// the same URL from the previous snapshot, or nil on a first run.
//
// Rules, later overriding earlier:
//
//	ok      default
//	renewal issuer in Intermediates, 30 < days left <= 45, and the serial
//	        differs from a known previous serial
//	action  days left <= 30
func Classify(cur *types.SiteCheck, prev *types.SiteCheck, p Policy) types.SSLState {
	state := types.SSLStateOK

	if isRotation(cur, prev, p) {
		state = types.SSLStateRenewal
	}

	if cur.SSLDaysLeft != nil && *cur.SSLDaysLeft <= ActionThreshold {
		state = types.SSLStateAction
	}

	return state
}

func isRotation(cur, prev *types.SiteCheck, p Policy) bool {
	if cur.SSLIssuer == nil || !slices.Contains(p.Intermediates, *cur.SSLIssuer) {
		return false
	}
	if cur.SSLDaysLeft == nil {
		return false
	}
	days := *cur.SSLDaysLeft
	if days <= RenewalWindowLow || days > RenewalWindowHigh {
		return false
	}
	if prev == nil || prev.SSLSerial == nil || *prev.SSLSerial == "" {
		return false
	}
	if cur.SSLSerial == nil || *cur.SSLSerial == "" {
		return false
	}
	return *prev.SSLSerial != *cur.SSLSerial
}
