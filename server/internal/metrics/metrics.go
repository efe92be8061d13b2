package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sitewatch/sitewatch/pkg/types"
	"github.com/sitewatch/sitewatch/server/internal/store"
)

// Namespace prefixes every metric exported by the server.
const Namespace = "sitewatch"

var sslStates = []types.SSLState{types.SSLStateOK, types.SSLStateRenewal, types.SSLStateAction}

// Metrics owns the server's registry and its process-level instruments.
type Metrics struct {
	Registry *prometheus.Registry

	// SnapshotReloads counts snapshot files picked up by the watcher.
	SnapshotReloads prometheus.Counter
}

// New creates a registry holding the snapshot collector, Go runtime and
// process collectors, and a gauge for connected dashboard clients.
// clients may be nil.
func New(st *store.Store, clients func() int) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		NewCollector(st),
	)

	factory := promauto.With(reg)
	m := &Metrics{
		Registry: reg,
		SnapshotReloads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "server",
			Name:      "snapshot_reloads_total",
			Help:      "Snapshot files loaded after a change on disk.",
		}),
	}
	if clients != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "server",
			Name:      "websocket_clients",
			Help:      "Connected dashboard WebSocket clients.",
		}, func() float64 { return float64(clients()) })
	}
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Collector exposes the stored snapshot as const metrics on every scrape.
type Collector struct {
	store *store.Store

	loaded    *prometheus.Desc
	stale     *prometheus.Desc
	age       *prometheus.Desc
	up        *prometheus.Desc
	probe     *prometheus.Desc
	status    *prometheus.Desc
	daysLeft  *prometheus.Desc
	expiresAt *prometheus.Desc
	sslState  *prometheus.Desc
}

// NewCollector returns a Collector reading from st.
func NewCollector(st *store.Store) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(Namespace, "", name), help, labels, nil)
	}
	return &Collector{
		store:     st,
		loaded:    desc("snapshot_loaded", "Whether a snapshot file is currently loaded."),
		stale:     desc("snapshot_stale", "Whether the loaded snapshot is older than stale_after."),
		age:       desc("snapshot_age_seconds", "Seconds since the loaded snapshot was generated."),
		up:        desc("site_up", "Whether every probe of the site passed.", "url"),
		probe:     desc("probe_success", "Outcome of one probe (dns, tls, http, page).", "url", "probe"),
		status:    desc("http_status_code", "Last HTTP status code; absent when no response was received.", "url"),
		daysLeft:  desc("ssl_days_left", "Days until the leaf certificate expires, rounded up.", "url"),
		expiresAt: desc("ssl_expiry_timestamp_seconds", "Leaf certificate notAfter as a Unix timestamp.", "url"),
		sslState:  desc("ssl_state", "Certificate state; 1 for the current state of the site.", "url", "state"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.loaded, c.stale, c.age, c.up, c.probe, c.status, c.daysLeft, c.expiresAt, c.sslState,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	e, ok := c.store.Latest()
	if !ok {
		ch <- prometheus.MustNewConstMetric(c.loaded, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.loaded, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(c.stale, prometheus.GaugeValue, boolValue(c.store.Stale()))
	ch <- prometheus.MustNewConstMetric(c.age, prometheus.GaugeValue, e.Age(c.store.Now()).Seconds())

	for i := range e.Snapshot.Sites {
		s := &e.Snapshot.Sites[i]
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, boolValue(s.Healthy()), s.URL)
		for _, p := range []struct {
			name string
			ok   bool
		}{{"dns", s.DNSOk}, {"tls", s.TLSOk}, {"http", s.HTTPOk}, {"page", s.PageOk}} {
			ch <- prometheus.MustNewConstMetric(c.probe, prometheus.GaugeValue, boolValue(p.ok), s.URL, p.name)
		}
		if s.HTTPStatus != nil {
			ch <- prometheus.MustNewConstMetric(c.status, prometheus.GaugeValue, float64(*s.HTTPStatus), s.URL)
		}
		if s.SSLDaysLeft != nil {
			ch <- prometheus.MustNewConstMetric(c.daysLeft, prometheus.GaugeValue, float64(*s.SSLDaysLeft), s.URL)
		}
		if s.SSLExpiresAt != nil {
			ch <- prometheus.MustNewConstMetric(c.expiresAt, prometheus.GaugeValue, float64(s.SSLExpiresAt.Unix()), s.URL)
		}
		for _, st := range sslStates {
			ch <- prometheus.MustNewConstMetric(c.sslState, prometheus.GaugeValue, boolValue(s.SSLState == st), s.URL, string(st))
		}
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
