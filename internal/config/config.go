package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/netwatch/internal/domain"
)

const envConfigPath = "NETWATCH_CONFIG"

type Config struct {
	IntervalSeconds     int `yaml:"interval_seconds"`
	ProbeTimeoutSeconds int `yaml:"probe_timeout_seconds"`
	MaxConcurrent       int `yaml:"max_concurrent"`
	DebounceCount       int `yaml:"debounce_count"`
	LossWindowSize      int `yaml:"loss_window_size"`

	Thresholds domain.Thresholds `yaml:"thresholds"`
	Targets    []domain.Target   `yaml:"targets"`

	LogDir      string `yaml:"log_dir"`
	DatabaseURL string `yaml:"database_url"` // empty means in-memory stores

	API       APIConfig    `yaml:"api"`
	ProbeRate RateConfig   `yaml:"probe_rate"`
	Notify    NotifyConfig `yaml:"notify"`
}

type APIConfig struct {
	Addr          string   `yaml:"addr"`
	PublicAPIKeys []string `yaml:"public_api_keys"`
	AdminAPIKeys  []string `yaml:"admin_api_keys"`
	RatePerMin    int      `yaml:"rate_per_min"`
	RateBurst     int      `yaml:"rate_burst"`
}

// RateConfig caps how fast probes are started across a sweep.
// PerSecond 0 disables the cap.
type RateConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

type NotifyConfig struct {
	SlackWebhook      string `yaml:"slack_webhook"`
	WebhookURL        string `yaml:"webhook_url"`
	OnRecovery        bool   `yaml:"on_recovery"`
	CooldownSeconds   int    `yaml:"cooldown_seconds"`
	MaxAttempts       int    `yaml:"max_attempts"`
	BackoffMS         int    `yaml:"backoff_ms"`
	MaxBackoffSeconds int    `yaml:"max_backoff_seconds"`
	RatePerMin        int    `yaml:"rate_per_min"`
}

func Default() Config {
	return Config{
		IntervalSeconds:     30,
		ProbeTimeoutSeconds: 5,
		MaxConcurrent:       8,
		DebounceCount:       1,
		LossWindowSize:      10,
		Thresholds: domain.Thresholds{
			LatencyMS:     200,
			PacketLossPct: 5,
		},
		LogDir: "logs",
		API: APIConfig{
			Addr:       "127.0.0.1:8080",
			RatePerMin: 120,
			RateBurst:  60,
		},
		Notify: NotifyConfig{
			OnRecovery:        true,
			CooldownSeconds:   300,
			MaxAttempts:       3,
			BackoffMS:         500,
			MaxBackoffSeconds: 30,
		},
	}
}

// Load reads the YAML config at path, falling back to $NETWATCH_CONFIG
// when path is empty and to pure defaults when neither names a file.
// Environment overrides are applied after the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(envConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets deploy-time settings override the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("NETWATCH_ADDR"); v != "" {
		c.API.Addr = v
	}
	if v := os.Getenv("NETWATCH_LOG_DIR"); v != "" {
		c.LogDir = v
	}
	if v := os.Getenv("NETWATCH_DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("NETWATCH_SLACK_WEBHOOK_URL"); v != "" {
		c.Notify.SlackWebhook = v
	}
}

// Validate reports every problem at once so an operator can fix the
// file in one pass. Any error is fatal to startup.
func (c Config) Validate() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}

	if c.IntervalSeconds <= 0 {
		add("interval_seconds must be > 0, got %d", c.IntervalSeconds)
	}
	if c.ProbeTimeoutSeconds <= 0 {
		add("probe_timeout_seconds must be > 0, got %d", c.ProbeTimeoutSeconds)
	}
	if c.MaxConcurrent < 1 {
		add("max_concurrent must be >= 1, got %d", c.MaxConcurrent)
	}
	if c.DebounceCount < 1 {
		add("debounce_count must be >= 1, got %d", c.DebounceCount)
	}
	if c.LossWindowSize < 1 {
		add("loss_window_size must be >= 1, got %d", c.LossWindowSize)
	}
	if c.Thresholds.LatencyMS < 0 {
		add("thresholds.latency_ms must be >= 0, got %v", c.Thresholds.LatencyMS)
	}
	if c.Thresholds.PacketLossPct < 0 || c.Thresholds.PacketLossPct > 100 {
		add("thresholds.packet_loss_pct must be within [0,100], got %v", c.Thresholds.PacketLossPct)
	}

	if len(c.Targets) == 0 {
		add("at least one target is required")
	}
	seen := make(map[string]bool, len(c.Targets))
	for i, t := range c.Targets {
		if strings.TrimSpace(t.Name) == "" {
			add("targets[%d]: name is required", i)
		}
		if strings.TrimSpace(t.Host) == "" {
			add("targets[%d] (%s): host is required", i, t.Name)
		}
		if seen[t.Name] {
			add("targets[%d]: duplicate name %q", i, t.Name)
		}
		seen[t.Name] = true
	}

	if c.API.Addr == "" {
		add("api.addr is required")
	}
	if c.Notify.MaxAttempts < 1 {
		add("notify.max_attempts must be >= 1, got %d", c.Notify.MaxAttempts)
	}
	if c.Notify.BackoffMS < 0 {
		add("notify.backoff_ms must be >= 0, got %d", c.Notify.BackoffMS)
	}
	if c.ProbeRate.PerSecond < 0 {
		add("probe_rate.per_second must be >= 0, got %v", c.ProbeRate.PerSecond)
	}

	if errs != nil {
		return fmt.Errorf("invalid config: %w", errs)
	}
	return nil
}

func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

func (n NotifyConfig) Cooldown() time.Duration {
	return time.Duration(n.CooldownSeconds) * time.Second
}

func (n NotifyConfig) Backoff() time.Duration {
	return time.Duration(n.BackoffMS) * time.Millisecond
}

func (n NotifyConfig) MaxBackoff() time.Duration {
	return time.Duration(n.MaxBackoffSeconds) * time.Second
}
