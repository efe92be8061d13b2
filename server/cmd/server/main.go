package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sitewatch/sitewatch/server/internal/api"
	"github.com/sitewatch/sitewatch/server/internal/config"
	"github.com/sitewatch/sitewatch/server/internal/metrics"
	"github.com/sitewatch/sitewatch/server/internal/receiver"
	"github.com/sitewatch/sitewatch/server/internal/store"
	"github.com/sitewatch/sitewatch/server/internal/ws"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		slog.Error("sitewatch-server failed", "err", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		uiDir      string
		debug      bool
	)
	cmd := &cobra.Command{
		Use:           "sitewatch-server",
		Short:         "Serve the site status dashboard API from the agent's snapshot file",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
			return run(cmd.Context(), configPath, uiDir)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	cmd.Flags().StringVar(&uiDir, "ui-dir", "", "serve dashboard static files from this directory (e.g. docs); leave empty to disable")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

func run(ctx context.Context, configPath, uiDir string) error {
	slog.Info("sitewatch-server starting", "config", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"snapshot_path", cfg.Server.SnapshotPath,
		"broadcast_interval", cfg.Server.BroadcastInterval,
		"stale_after", cfg.Server.StaleAfter,
	)

	st := store.New(cfg.Server.StaleAfter)
	go st.Run(ctx)

	// WebSocket hub: periodic broadcast plus a push on every file change.
	hub := ws.New(st, cfg.Server.BroadcastInterval)
	go hub.Run(ctx)

	m := metrics.New(st, hub.Count)

	rec := receiver.New(cfg.Server.SnapshotPath, st, func() {
		m.SnapshotReloads.Inc()
		hub.Notify()
	})
	go func() {
		if err := rec.Run(ctx); err != nil {
			slog.Error("snapshot watcher stopped", "err", err)
		}
	}()

	apiHandler := api.New(st)
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", apiHandler)
	httpMux.Handle("/status.json", apiHandler)
	httpMux.Handle("/ws/stream", hub)
	httpMux.Handle("/metrics", m.Handler())

	// Optional: serve the static dashboard. Unknown paths fall back to
	// index.html.
	if uiDir != "" {
		fs := http.FileServer(http.Dir(uiDir))
		httpMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := filepath.Join(uiDir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, filepath.Join(uiDir, "index.html"))
				return
			}
			fs.ServeHTTP(w, r)
		})
		slog.Info("serving UI static files", "dir", uiDir)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server: http: %w", err)
	}

	slog.Info("sitewatch-server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
