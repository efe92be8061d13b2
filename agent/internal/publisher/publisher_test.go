package publisher

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sitewatch/sitewatch/agent/internal/compute"
	"github.com/sitewatch/sitewatch/agent/internal/config"
	"github.com/sitewatch/sitewatch/agent/internal/probe"
	"github.com/sitewatch/sitewatch/pkg/snapshot"
	"github.com/sitewatch/sitewatch/pkg/types"
)

var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeEvaluator records the previous record it was handed for each site
// and returns a deterministic result.
type fakeEvaluator struct {
	mu       sync.Mutex
	prevSeen map[string]*types.SiteCheck
	delay    func(i int) time.Duration
	sites    []string

	inFlight, maxInFlight atomic.Int32
}

func newFakeEvaluator(sites []string) *fakeEvaluator {
	return &fakeEvaluator{prevSeen: make(map[string]*types.SiteCheck), sites: sites}
}

func (f *fakeEvaluator) Evaluate(_ context.Context, site string, prev *types.SiteCheck) types.SiteCheck {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	if f.delay != nil {
		for i, s := range f.sites {
			if s == site {
				time.Sleep(f.delay(i))
			}
		}
	}

	f.mu.Lock()
	f.prevSeen[site] = prev
	f.mu.Unlock()

	serial := "A1"
	return types.SiteCheck{
		URL: site, CheckedAt: baseTime,
		DNSOk: true, TLSOk: true, HTTPOk: true, PageOk: true,
		SSLSerial: &serial, SSLState: types.SSLStateOK,
	}
}

func testConfig(t *testing.T, sites ...string) config.AgentConfig {
	t.Helper()
	return config.AgentConfig{
		Sites:   sites,
		Timeout: time.Second,
		Workers: 3,
		Output:  filepath.Join(t.TempDir(), "docs", "status.json"),
	}
}

func newTestPublisher(cfg config.AgentConfig, eval SiteEvaluator) *Publisher {
	p := New(cfg, eval)
	p.now = func() time.Time { return baseTime }
	return p
}

func TestRun_WritesSnapshotInConfigOrder(t *testing.T) {
	sites := []string{"https://a.example/", "https://b.example/", "https://c.example/", "https://d.example/", "https://e.example/"}
	cfg := testConfig(t, sites...)
	eval := newFakeEvaluator(sites)
	// Earlier sites finish last.
	eval.delay = func(i int) time.Duration { return time.Duration(len(sites)-i) * 10 * time.Millisecond }

	snap, err := newTestPublisher(cfg, eval).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	written, err := snapshot.Load(cfg.Output)
	if err != nil {
		t.Fatalf("Load written snapshot: %v", err)
	}
	for _, got := range []*types.Snapshot{snap, written} {
		if len(got.Sites) != len(sites) {
			t.Fatalf("Sites len = %d, want %d", len(got.Sites), len(sites))
		}
		for i, s := range got.Sites {
			if s.URL != sites[i] {
				t.Errorf("Sites[%d] = %q, want %q", i, s.URL, sites[i])
			}
		}
	}
	if !written.GeneratedAt.Equal(baseTime) {
		t.Errorf("GeneratedAt = %v, want %v", written.GeneratedAt, baseTime)
	}
}

func TestRun_BoundedWorkers(t *testing.T) {
	sites := make([]string, 12)
	for i := range sites {
		sites[i] = "https://s" + string(rune('a'+i)) + ".example/"
	}
	cfg := testConfig(t, sites...)
	cfg.Workers = 2
	eval := newFakeEvaluator(sites)
	eval.delay = func(int) time.Duration { return 5 * time.Millisecond }

	if _, err := newTestPublisher(cfg, eval).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := eval.maxInFlight.Load(); got > 2 {
		t.Errorf("max concurrent evaluations = %d, want <= 2", got)
	}
}

func TestRun_PassesPreviousRecords(t *testing.T) {
	cfg := testConfig(t, "https://a.example/", "https://new.example/")
	prevSerial := "OLD"
	prior := &types.Snapshot{
		GeneratedAt: baseTime.Add(-time.Hour),
		Sites: []types.SiteCheck{
			{URL: "https://a.example/", SSLSerial: &prevSerial},
			{URL: "https://gone.example/"},
		},
	}
	if err := snapshot.Write(cfg.Output, prior); err != nil {
		t.Fatal(err)
	}

	eval := newFakeEvaluator(cfg.Sites)
	if _, err := newTestPublisher(cfg, eval).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if p := eval.prevSeen["https://a.example/"]; p == nil || p.SSLSerial == nil || *p.SSLSerial != "OLD" {
		t.Errorf("previous record for a = %+v, want serial OLD", p)
	}
	if p := eval.prevSeen["https://new.example/"]; p != nil {
		t.Errorf("previous record for new site = %+v, want nil", p)
	}
}

func TestRun_CorruptPreviousIgnored(t *testing.T) {
	cfg := testConfig(t, "https://a.example/")
	if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.Output, []byte("{{{"), 0o600); err != nil {
		t.Fatal(err)
	}

	eval := newFakeEvaluator(cfg.Sites)
	if _, err := newTestPublisher(cfg, eval).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p, ok := eval.prevSeen["https://a.example/"]; !ok || p != nil {
		t.Errorf("previous record = %+v (seen %v), want nil", p, ok)
	}
	if _, err := snapshot.Load(cfg.Output); err != nil {
		t.Errorf("corrupt file not replaced: %v", err)
	}
}

func TestRun_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "docs")
	if err := os.WriteFile(blocker, []byte("not a dir"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig(t, "https://a.example/")
	cfg.Output = filepath.Join(blocker, "status.json")

	if _, err := newTestPublisher(cfg, newFakeEvaluator(cfg.Sites)).Run(context.Background()); err == nil {
		t.Fatal("expected error when output directory cannot be created")
	}
}

func TestRun_CancelledLeavesPreviousFile(t *testing.T) {
	cfg := testConfig(t, "https://a.example/")
	prior := &types.Snapshot{GeneratedAt: baseTime.Add(-time.Hour)}
	if err := snapshot.Write(cfg.Output, prior); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestPublisher(cfg, newFakeEvaluator(cfg.Sites)).Run(ctx); err == nil {
		t.Fatal("expected error for cancelled run")
	}

	got, err := snapshot.Load(cfg.Output)
	if err != nil {
		t.Fatal(err)
	}
	if !got.GeneratedAt.Equal(prior.GeneratedAt) {
		t.Errorf("previous snapshot overwritten: GeneratedAt = %v", got.GeneratedAt)
	}
}

func TestRun_MetricsTextfile(t *testing.T) {
	cfg := testConfig(t, "https://a.example/")
	cfg.MetricsTextfile = filepath.Join(t.TempDir(), "prom", "sitewatch.prom")

	if _, err := newTestPublisher(cfg, newFakeEvaluator(cfg.Sites)).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := os.ReadFile(cfg.MetricsTextfile)
	if err != nil {
		t.Fatalf("textfile: %v", err)
	}
	if !strings.Contains(string(data), `sitewatch_site_up{url="https://a.example/"} 1`) {
		t.Errorf("unexpected textfile content:\n%s", data)
	}
}

func TestRun_Idempotent(t *testing.T) {
	cfg := testConfig(t, "https://a.example/", "https://b.example/")
	p := newTestPublisher(cfg, newFakeEvaluator(cfg.Sites))

	first, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	p.now = func() time.Time { return baseTime.Add(time.Minute) }
	second, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	for i := range first.Sites {
		a, b := first.Sites[i], second.Sites[i]
		if a.DNSOk != b.DNSOk || a.TLSOk != b.TLSOk || a.HTTPOk != b.HTTPOk || a.PageOk != b.PageOk || a.SSLState != b.SSLState {
			t.Errorf("site %s changed between runs: %+v vs %+v", a.URL, a, b)
		}
	}
}

// TestRun_CertTimeoutStillPublishes drives the real evaluator and TLS probe
// against a listener that never completes a handshake.
func TestRun_CertTimeoutStillPublishes(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()
	_, port, _ := net.SplitHostPort(ln.Addr().String())

	certs := probe.NewCertProber(100 * time.Millisecond)
	certs.Port = port
	status := 200
	eval := compute.NewEvaluator(
		staticResolver(true),
		certs,
		staticPage{probe.PageResult{OK: true, Status: &status, Body: "ok"}},
		compute.Policy{Intermediates: config.DefaultIntermediates},
		config.DefaultFailurePhrases,
	)

	cfg := testConfig(t, "https://127.0.0.1/")
	snap, err := newTestPublisher(cfg, eval).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	rec := snap.Sites[0]
	if rec.TLSOk || rec.SSLExpiresAt != nil || rec.SSLDaysLeft != nil {
		t.Errorf("record = tls:%v expires:%v days:%v, want false/nil/nil", rec.TLSOk, rec.SSLExpiresAt, rec.SSLDaysLeft)
	}
	if _, err := os.Stat(cfg.Output); err != nil {
		t.Errorf("snapshot not written: %v", err)
	}
}

type staticResolver bool

func (s staticResolver) Resolve(context.Context, string) bool { return bool(s) }

type staticPage struct{ res probe.PageResult }

func (s staticPage) Fetch(context.Context, string) probe.PageResult { return s.res }
