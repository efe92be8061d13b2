package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/sitewatch/sitewatch/agent/internal/compute"
	"github.com/sitewatch/sitewatch/agent/internal/config"
	"github.com/sitewatch/sitewatch/agent/internal/publisher"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		slog.Error("sitewatch-agent failed", "err", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	root := &cobra.Command{
		Use:           "sitewatch-agent",
		Short:         "Probe HTTPS sites and publish a status snapshot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	check := &cobra.Command{
		Use:   "check",
		Short: "Run one probe pass and write the snapshot (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), configPath)
		},
	}
	schedule := &cobra.Command{
		Use:   "schedule",
		Short: "Run probe passes on the configured cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(cmd.Context(), configPath)
		},
	}

	// A bare invocation behaves like `check`.
	root.RunE = check.RunE
	root.AddCommand(check, schedule)
	return root
}

func loadPublisher(configPath string) (*config.Config, *publisher.Publisher, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("config loaded",
		"config", configPath,
		"sites", len(cfg.Agent.Sites),
		"workers", cfg.Agent.Workers,
		"timeout", cfg.Agent.Timeout,
		"output", cfg.Agent.Output,
	)
	pub := publisher.New(cfg.Agent, compute.NewDefaultEvaluator(cfg.Agent))
	return cfg, pub, nil
}

func runCheck(ctx context.Context, configPath string) error {
	_, pub, err := loadPublisher(configPath)
	if err != nil {
		return err
	}
	_, err = pub.Run(ctx)
	return err
}

func runSchedule(ctx context.Context, configPath string) error {
	cfg, pub, err := loadPublisher(configPath)
	if err != nil {
		return err
	}

	// Passes write the same output file, so an overrunning pass makes the
	// next tick a no-op.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(cfg.Agent.Schedule, func() {
		if _, err := pub.Run(ctx); err != nil {
			slog.Error("scheduled pass failed", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("agent: schedule %q: %w", cfg.Agent.Schedule, err)
	}

	slog.Info("sitewatch-agent scheduled", "schedule", cfg.Agent.Schedule)
	c.Start()

	<-ctx.Done()
	slog.Info("sitewatch-agent shutting down")
	<-c.Stop().Done()
	return nil
}
