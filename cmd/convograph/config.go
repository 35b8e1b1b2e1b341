package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rendis/convograph/internal/client"
	"github.com/rendis/convograph/internal/layout"
	"github.com/rendis/convograph/internal/validation"
)

// Config holds all convograph configuration.
// Priority: flags > env vars > settings.json > defaults.
type Config struct {
	ListenAddr  string `json:"listen_addr"`
	BackendURL  string `json:"backend_url"`
	DBPath      string `json:"db_path"`
	LogLevel    string `json:"log_level"`
	Concurrency int    `json:"concurrency"`
	Metrics     bool   `json:"metrics"`

	// Tenant is the default tenant for fetches that name none.
	Tenant client.Tenant `json:"tenant"`
	// SchedulerInterval is how often due watches are checked. Zero disables
	// the scheduler.
	SchedulerInterval time.Duration     `json:"scheduler_interval"`
	Layout            layout.Config     `json:"layout"`
	LabelExpr         string            `json:"label_expr,omitempty"`
	LintRules         []validation.Rule `json:"lint_rules,omitempty"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:        ":4200",
		DBPath:            filepath.Join(convographDir(), "convograph.db"),
		LogLevel:          "info",
		Concurrency:       4,
		Metrics:           true,
		SchedulerInterval: 30 * time.Second,
		Layout:            layout.DefaultConfig(),
	}
}

func convographDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".convograph"
	}
	return filepath.Join(home, ".convograph")
}

func settingsPath() string {
	return filepath.Join(convographDir(), "settings.json")
}

// binDir holds optional helper binaries such as mermaid-ascii.
func binDir() string {
	return filepath.Join(convographDir(), "bin")
}

// loadConfig merges defaults, the settings file and the environment. Flags
// are applied on top by the root command.
func loadConfig(path string) Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("CONVOGRAPH_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("CONVOGRAPH_BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	}
	if v := os.Getenv("CONVOGRAPH_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CONVOGRAPH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CONVOGRAPH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Concurrency = n
		}
	}
	if v := os.Getenv("CONVOGRAPH_METRICS"); v != "" {
		cfg.Metrics = v == "true" || v == "1"
	}
	if v := os.Getenv("CONVOGRAPH_SCHEDULER_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SchedulerInterval = d
		}
	}
	if v := os.Getenv("CONVOGRAPH_TENANT_ID"); v != "" {
		cfg.Tenant.ID = v
	}
	if v := os.Getenv("CONVOGRAPH_REGION"); v != "" {
		cfg.Tenant.Region = v
	}
	if v := os.Getenv("CONVOGRAPH_MAJOR_VERSION"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 16); err == nil {
			cfg.Tenant.MajorVersion = uint16(n)
		}
	}
	if v := os.Getenv("CONVOGRAPH_MINOR_VERSION"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 16); err == nil {
			cfg.Tenant.MinorVersion = uint16(n)
		}
	}
	if v := os.Getenv("CONVOGRAPH_LABEL_EXPR"); v != "" {
		cfg.LabelExpr = v
	}

	return cfg
}

// configDiff describes what changed between two configurations.
type configDiff struct {
	MetricsChanged  bool
	LogLevelChanged bool
	RestartNeeded   []string // fields that require a server restart
}

func diffConfigs(old, new Config) configDiff {
	var d configDiff
	if old.Metrics != new.Metrics {
		d.MetricsChanged = true
	}
	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
	}
	if old.ListenAddr != new.ListenAddr {
		d.RestartNeeded = append(d.RestartNeeded, "listen_addr")
	}
	if old.BackendURL != new.BackendURL {
		d.RestartNeeded = append(d.RestartNeeded, "backend_url")
	}
	if old.DBPath != new.DBPath {
		d.RestartNeeded = append(d.RestartNeeded, "db_path")
	}
	if old.Concurrency != new.Concurrency {
		d.RestartNeeded = append(d.RestartNeeded, "concurrency")
	}
	if old.SchedulerInterval != new.SchedulerInterval {
		d.RestartNeeded = append(d.RestartNeeded, "scheduler_interval")
	}
	return d
}
