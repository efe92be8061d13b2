package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort          = 8080
	DefaultSnapshotPath      = "docs/status.json"
	DefaultBroadcastInterval = 60 * time.Second
	DefaultStaleAfter        = 2 * time.Hour
)

// EnvSnapshotPath overrides server.snapshot_path. It is the same variable
// the agent uses for its output file, so one .env serves both binaries.
const EnvSnapshotPath = "SITEWATCH_OUTPUT"

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml. The `agent:` key in the same file is ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket hub and /metrics listen on.
	HTTPPort int `yaml:"http_port"`

	// SnapshotPath is the status file written by sitewatch-agent.
	SnapshotPath string `yaml:"snapshot_path"`

	// BroadcastInterval is how often connected dashboards receive the
	// current snapshot even when the file has not changed.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`

	// StaleAfter marks the loaded snapshot as stale once its generatedAt is
	// older than this. Zero disables the check.
	StaleAfter time.Duration `yaml:"stale_after"`
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if v := os.Getenv(EnvSnapshotPath); v != "" {
		cfg.Server.SnapshotPath = v
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:          DefaultHTTPPort,
			SnapshotPath:      DefaultSnapshotPath,
			BroadcastInterval: DefaultBroadcastInterval,
			StaleAfter:        DefaultStaleAfter,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Server.SnapshotPath == "" {
		return fmt.Errorf("server.snapshot_path is required")
	}
	if cfg.Server.BroadcastInterval <= 0 {
		return fmt.Errorf("server.broadcast_interval must be positive")
	}
	if cfg.Server.StaleAfter < 0 {
		return fmt.Errorf("server.stale_after must not be negative")
	}
	return nil
}
