// Package exporter renders a snapshot as Prometheus metric families and
// writes them in the text exposition format, for pickup by the node
// exporter's textfile collector.
package exporter

import (
	"bytes"
	"fmt"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/sitewatch/sitewatch/pkg/snapshot"
	"github.com/sitewatch/sitewatch/pkg/types"
)

const namespace = "sitewatch"

var sslStates = []types.SSLState{types.SSLStateOK, types.SSLStateRenewal, types.SSLStateAction}

// Families converts snap into metric families, one per metric name, with
// samples in site order.
func Families(snap *types.Snapshot) []*dto.MetricFamily {
	up := gaugeFamily("site_up", "Whether every probe of the site passed.")
	probes := gaugeFamily("probe_success", "Outcome of one probe (dns, tls, http, page).")
	status := gaugeFamily("http_status_code", "Last HTTP status code; absent when no response was received.")
	days := gaugeFamily("ssl_days_left", "Days until the leaf certificate expires, rounded up.")
	expiry := gaugeFamily("ssl_expiry_timestamp_seconds", "Leaf certificate notAfter as a Unix timestamp.")
	state := gaugeFamily("ssl_state", "Certificate state; 1 for the current state of the site.")
	generated := gaugeFamily("snapshot_generated_timestamp_seconds", "When the snapshot was generated.")

	for i := range snap.Sites {
		s := &snap.Sites[i]
		site := label("url", s.URL)

		up.Metric = append(up.Metric, gauge(boolValue(s.Healthy()), site))
		for _, p := range []struct {
			name string
			ok   bool
		}{{"dns", s.DNSOk}, {"tls", s.TLSOk}, {"http", s.HTTPOk}, {"page", s.PageOk}} {
			probes.Metric = append(probes.Metric, gauge(boolValue(p.ok), site, label("probe", p.name)))
		}
		if s.HTTPStatus != nil {
			status.Metric = append(status.Metric, gauge(float64(*s.HTTPStatus), site))
		}
		if s.SSLDaysLeft != nil {
			days.Metric = append(days.Metric, gauge(float64(*s.SSLDaysLeft), site))
		}
		if s.SSLExpiresAt != nil {
			expiry.Metric = append(expiry.Metric, gauge(float64(s.SSLExpiresAt.Unix()), site))
		}
		for _, st := range sslStates {
			state.Metric = append(state.Metric, gauge(boolValue(s.SSLState == st), site, label("state", string(st))))
		}
	}
	generated.Metric = append(generated.Metric, gauge(float64(snap.GeneratedAt.Unix())))

	out := make([]*dto.MetricFamily, 0, 7)
	for _, mf := range []*dto.MetricFamily{up, probes, status, days, expiry, state, generated} {
		if len(mf.Metric) > 0 {
			out = append(out, mf)
		}
	}
	return out
}

// Encode writes the text exposition of snap.
func Encode(snap *types.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	for _, mf := range Families(snap) {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, fmt.Errorf("exporter: encode %s: %w", mf.GetName(), err)
		}
	}
	return buf.Bytes(), nil
}

// WriteTextfile atomically replaces path with the text exposition of snap.
func WriteTextfile(path string, snap *types.Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	if err := snapshot.WriteFile(path, data); err != nil {
		return fmt.Errorf("exporter: %w", err)
	}
	return nil
}

func gaugeFamily(name, help string) *dto.MetricFamily {
	fullName := namespace + "_" + name
	return &dto.MetricFamily{
		Name: &fullName,
		Help: &help,
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

func gauge(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{
		Label: labels,
		Gauge: &dto.Gauge{Value: &v},
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: &name, Value: &value}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
