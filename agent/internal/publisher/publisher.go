package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sitewatch/sitewatch/agent/internal/config"
	"github.com/sitewatch/sitewatch/agent/internal/exporter"
	"github.com/sitewatch/sitewatch/pkg/snapshot"
	"github.com/sitewatch/sitewatch/pkg/types"
)

// SiteEvaluator produces the record for one site given its previous record.
type SiteEvaluator interface {
	Evaluate(ctx context.Context, siteURL string, prev *types.SiteCheck) types.SiteCheck
}

// Publisher turns the configured site list into a snapshot file.
type Publisher struct {
	cfg  config.AgentConfig
	eval SiteEvaluator
	now  func() time.Time // injectable for deterministic tests
}

// New returns a Publisher for cfg. cfg is treated as immutable.
func New(cfg config.AgentConfig, eval SiteEvaluator) *Publisher {
	return &Publisher{cfg: cfg, eval: eval, now: time.Now}
}

// Run performs one full pass and writes the snapshot. It returns the
// written snapshot, or an error if the output could not be written or ctx
// was cancelled before the pass finished; in both cases the previous file
// is left untouched.
func (p *Publisher) Run(ctx context.Context) (*types.Snapshot, error) {
	start := p.now()
	prev := p.loadPrevious()

	snap := p.Collect(ctx, prev)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("publisher: run cancelled: %w", err)
	}

	if err := snapshot.Write(p.cfg.Output, snap); err != nil {
		return nil, fmt.Errorf("publisher: %w", err)
	}

	if p.cfg.MetricsTextfile != "" {
		if err := exporter.WriteTextfile(p.cfg.MetricsTextfile, snap); err != nil {
			slog.Warn("publisher: metrics textfile not written",
				"path", p.cfg.MetricsTextfile, "err", err)
		}
	}

	slog.Info("publisher: snapshot written",
		"path", p.cfg.Output,
		"sites", len(snap.Sites),
		"unhealthy", countUnhealthy(snap),
		"duration", p.now().Sub(start),
	)
	return snap, nil
}

// Collect evaluates every configured site against prev and returns the new
// snapshot. Sites run concurrently, at most cfg.Workers at a time; each
// result is stored at its site's index, so the output order is the config
// order regardless of completion order.
func (p *Publisher) Collect(ctx context.Context, prev *types.Snapshot) *types.Snapshot {
	prevByURL := prev.Index()
	results := make([]types.SiteCheck, len(p.cfg.Sites))

	var g errgroup.Group
	g.SetLimit(max(p.cfg.Workers, 1))
	for i, site := range p.cfg.Sites {
		g.Go(func() error {
			results[i] = p.eval.Evaluate(ctx, site, prevByURL[site])
			return nil
		})
	}
	_ = g.Wait() // workers never fail

	return &types.Snapshot{
		GeneratedAt: p.now().UTC(),
		Sites:       results,
	}
}

// loadPrevious reads the current output file. Any failure means there is
// no usable previous run.
func (p *Publisher) loadPrevious() *types.Snapshot {
	prev, err := snapshot.Load(p.cfg.Output)
	switch {
	case err == nil:
		return prev
	case errors.Is(err, os.ErrNotExist):
		slog.Info("publisher: no previous snapshot", "path", p.cfg.Output)
	default:
		slog.Warn("publisher: previous snapshot unreadable, ignoring", "path", p.cfg.Output, "err", err)
	}
	return nil
}

func countUnhealthy(snap *types.Snapshot) int {
	n := 0
	for i := range snap.Sites {
		if !snap.Sites[i].Healthy() {
			n++
		}
	}
	return n
}
