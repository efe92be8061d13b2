package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sitewatch/sitewatch/pkg/types"
)

// Entry is the loaded snapshot together with the time it was read.
type Entry struct {
	Snapshot *types.Snapshot
	LoadedAt time.Time
}

// Age returns how long ago the snapshot was generated.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.Snapshot.GeneratedAt)
}

// Store is a thread-safe holder for the most recently loaded snapshot.
// Site records are also indexed by URL for single-site lookups.
type Store struct {
	mu         sync.RWMutex
	entry      *Entry
	byURL      map[string]*types.SiteCheck
	staleAfter time.Duration
	now        func() time.Time // injectable for deterministic tests
}

// New creates an empty Store. A snapshot older than staleAfter is reported
// stale; zero disables the check.
func New(staleAfter time.Duration) *Store {
	return &Store{
		byURL:      map[string]*types.SiteCheck{},
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Put replaces the held snapshot.
// Callers must not modify snap after calling Put.
func (s *Store) Put(snap *types.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = &Entry{Snapshot: snap, LoadedAt: s.now()}
	s.byURL = snap.Index()
}

// Clear drops the held snapshot, e.g. after the file was removed.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = nil
	s.byURL = map[string]*types.SiteCheck{}
}

// Latest returns the held entry and whether one has been loaded.
func (s *Store) Latest() (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entry, s.entry != nil
}

// Get returns the record for the given site URL.
func (s *Store) Get(url string) (*types.SiteCheck, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.byURL[url]
	return sc, ok
}

// List returns the site records in snapshot order. The slice is shared with
// the stored snapshot and must not be modified.
func (s *Store) List() []types.SiteCheck {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entry == nil {
		return nil
	}
	return s.entry.Snapshot.Sites
}

// Count returns the number of sites in the held snapshot.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byURL)
}

// Stale reports whether the held snapshot was generated more than
// staleAfter ago. An empty store is not stale.
func (s *Store) Stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.staleLocked(s.now())
}

// StaleAfter returns the configured staleness threshold.
func (s *Store) StaleAfter() time.Duration { return s.staleAfter }

// Now returns the store's clock reading.
func (s *Store) Now() time.Time { return s.now() }

func (s *Store) staleLocked(now time.Time) bool {
	if s.entry == nil || s.staleAfter <= 0 {
		return false
	}
	return s.entry.Age(now) > s.staleAfter
}

// Run logs a warning each time the held snapshot becomes stale, checking
// every quarter of staleAfter (minimum 1 second). Run blocks until ctx is
// cancelled and returns immediately when the check is disabled.
func (s *Store) Run(ctx context.Context) {
	if s.staleAfter <= 0 {
		return
	}
	interval := s.staleAfter / 4
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	wasStale := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.mu.RLock()
			stale := s.staleLocked(s.now())
			var generated time.Time
			if s.entry != nil {
				generated = s.entry.Snapshot.GeneratedAt
			}
			s.mu.RUnlock()

			if stale && !wasStale {
				slog.Warn("store: snapshot is stale",
					"generated_at", generated, "stale_after", s.staleAfter)
			}
			wasStale = stale
		}
	}
}
