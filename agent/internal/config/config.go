package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultTimeout   = 12 * time.Second
	DefaultWorkers   = 4
	DefaultOutput    = "docs/status.json"
	DefaultSchedule  = "*/30 * * * *"
	DefaultUserAgent = "site-status-bot/1.0"
)

// Environment variables that override the file after it is parsed.
const (
	EnvOutput  = "SITEWATCH_OUTPUT"
	EnvTimeout = "SITEWATCH_TIMEOUT"
)

// DefaultIntermediates are the short names of Let's Encrypt intermediates
// whose rotations the classifier recognises.
var DefaultIntermediates = []string{"E7", "R3", "R10", "R11"}

// DefaultFailurePhrases are lower-case body fragments that mark a page as
// a soft failure even when it is served with a 2xx status.
var DefaultFailurePhrases = []string{
	"application error",
	"bad gateway",
	"service unavailable",
	"gateway timeout",
	"error 500",
	"error 502",
	"error 503",
	"error 504",
}

// Config is the top-level configuration file. The server section of the
// same file is parsed by the server binary and ignored here.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig holds all agent-side settings.
type AgentConfig struct {
	// Sites is the ordered list of monitored URLs. The order is preserved
	// in every snapshot.
	Sites []string `yaml:"sites"`

	// Timeout bounds each individual probe (DNS, TLS, HTTP).
	Timeout time.Duration `yaml:"timeout"`

	// Workers is the number of sites evaluated concurrently.
	Workers int `yaml:"workers"`

	// Output is the snapshot file path.
	Output string `yaml:"output"`

	// MetricsTextfile, when set, receives a Prometheus text exposition of
	// each new snapshot.
	MetricsTextfile string `yaml:"metrics_textfile"`

	// Schedule is a standard 5-field cron spec used by the schedule command.
	Schedule string `yaml:"schedule"`

	UserAgent       string `yaml:"user_agent"`
	FollowRedirects bool   `yaml:"follow_redirects"`

	// TLS applies to the page probe only. The certificate probe never
	// verifies, so expired certificates can still be inspected.
	TLS TLSConfig `yaml:"tls"`

	Classifier ClassifierConfig `yaml:"classifier"`
	Content    ContentConfig    `yaml:"content"`
}

// TLSConfig holds TLS dial options for the page probe.
type TLSConfig struct {
	// InsecureSkipVerify disables certificate verification on page fetches.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// ClassifierConfig configures the certificate-state classifier.
type ClassifierConfig struct {
	// Intermediates is the allow-list of issuer names for which a serial
	// change inside the renewal window counts as a rotation in progress.
	Intermediates []string `yaml:"intermediates"`
}

// ContentConfig configures the page content heuristic.
type ContentConfig struct {
	// FailurePhrases are matched case-insensitively against the page body.
	FailurePhrases []string `yaml:"failure_phrases"`
}

// Load reads and parses the YAML config file at path. A .env file in the
// working directory is loaded first so its variables can override the file.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			Timeout:   DefaultTimeout,
			Workers:   DefaultWorkers,
			Output:    DefaultOutput,
			Schedule:  DefaultSchedule,
			UserAgent: DefaultUserAgent,
			Classifier: ClassifierConfig{
				Intermediates: append([]string(nil), DefaultIntermediates...),
			},
			Content: ContentConfig{
				FailurePhrases: append([]string(nil), DefaultFailurePhrases...),
			},
		},
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvOutput); v != "" {
		cfg.Agent.Output = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		cfg.Agent.Timeout = d
	}
	return nil
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	a := cfg.Agent
	if a.Timeout <= 0 {
		return fmt.Errorf("agent.timeout must be positive")
	}
	if a.Workers <= 0 {
		return fmt.Errorf("agent.workers must be positive")
	}
	if a.Output == "" {
		return fmt.Errorf("agent.output is required")
	}
	if a.Schedule != "" {
		if _, err := cron.ParseStandard(a.Schedule); err != nil {
			return fmt.Errorf("agent.schedule %q: %w", a.Schedule, err)
		}
	}
	seen := make(map[string]struct{}, len(a.Sites))
	for i, site := range a.Sites {
		u, err := url.Parse(site)
		if err != nil {
			return fmt.Errorf("sites[%d] %q: %w", i, site, err)
		}
		if u.Scheme != "https" {
			return fmt.Errorf("sites[%d] %q: scheme must be https", i, site)
		}
		if u.Hostname() == "" {
			return fmt.Errorf("sites[%d] %q: host is required", i, site)
		}
		if _, dup := seen[site]; dup {
			return fmt.Errorf("sites[%d] %q: duplicate url", i, site)
		}
		seen[site] = struct{}{}
	}
	return nil
}
