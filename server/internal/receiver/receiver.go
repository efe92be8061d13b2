package receiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/sitewatch/sitewatch/pkg/snapshot"
	"github.com/sitewatch/sitewatch/server/internal/store"
)

// Receiver keeps the store in sync with the snapshot file on disk.
type Receiver struct {
	path     string
	store    *store.Store
	onChange func()
}

// New creates a Receiver that loads path into st. onChange, if non-nil, is
// called after every successful reload or removal.
func New(path string, st *store.Store, onChange func()) *Receiver {
	return &Receiver{path: filepath.Clean(path), store: st, onChange: onChange}
}

// Load reads the snapshot file once. A missing file clears the store and is
// not an error. An unreadable or corrupt file leaves the store unchanged
// and returns the error.
func (r *Receiver) Load() error {
	snap, err := snapshot.Load(r.path)
	if errors.Is(err, os.ErrNotExist) {
		r.store.Clear()
		return nil
	}
	if err != nil {
		return err
	}

	r.store.Put(snap)
	slog.Debug("receiver: snapshot loaded",
		"path", r.path,
		"sites", len(snap.Sites),
		"generated_at", snap.GeneratedAt,
	)
	return nil
}

// Run loads the file and then watches its directory, reloading whenever the
// file is written, created or renamed into place. Watching the directory
// rather than the file survives the agent's replace-by-rename writes.
// Run blocks until ctx is cancelled.
func (r *Receiver) Run(ctx context.Context) error {
	if err := r.Load(); err != nil {
		slog.Warn("receiver: initial load failed", "path", r.path, "err", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("receiver: new watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("receiver: create %s: %w", dir, err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("receiver: watch %s: %w", dir, err)
	}

	slog.Info("receiver: watching snapshot file", "path", r.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			r.handle(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("receiver: watcher error", "err", err)
		}
	}
}

func (r *Receiver) handle(event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		if err := r.Load(); err != nil {
			slog.Error("receiver: reload failed, keeping previous snapshot",
				"path", r.path, "err", err)
			return
		}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// Rename reports the old name; the file is gone from r.path unless
		// something was renamed over it, which arrives as Create.
		if _, err := os.Stat(r.path); !errors.Is(err, os.ErrNotExist) {
			return
		}
		slog.Info("receiver: snapshot file removed", "path", r.path)
		r.store.Clear()
	default:
		return
	}

	if r.onChange != nil {
		r.onChange()
	}
}
