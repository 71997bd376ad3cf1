package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents configuration data for the monitoring service.
type Config struct {
	Addr           string       `yaml:"addr"`
	RegistryPath   string       `yaml:"registry_path"`
	FailureLogPath string       `yaml:"failure_log_path"`
	SettingsPath   string       `yaml:"settings_path"`
	DataDirectory  string       `yaml:"data_directory"`
	LogLevel       string       `yaml:"log_level"`
	LogFormat      string       `yaml:"log_format"`
	WatchRegistry  bool         `yaml:"watch_registry"`
	Probe          Probe        `yaml:"probe"`
	Connectivity   Connectivity `yaml:"connectivity"`
	Server         Server       `yaml:"server"`
}

// Probe tunes the per-site HTTP probe.
type Probe struct {
	TimeoutSeconds     int  `yaml:"timeout_seconds"`
	Attempts           int  `yaml:"attempts"`
	Concurrency        int  `yaml:"concurrency"`
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// Connectivity configures the network precondition check.
type Connectivity struct {
	Target         string `yaml:"target"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Server tunes the HTTP API.
type Server struct {
	CheckRatePerMinute   int `yaml:"check_rate_per_minute"`
	CheckDeadlineSeconds int `yaml:"check_deadline_seconds"`
	PushIntervalSeconds  int `yaml:"push_interval_seconds"`
}

// DefaultConfig returns sensible defaults in case no configuration file is provided.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8000",
		RegistryPath:   "urls.txt",
		FailureLogPath: "check_error.log",
		SettingsPath:   "settings.json",
		DataDirectory:  filepath.Join(".dist", "data"),
		LogLevel:       "info",
		LogFormat:      "text",
		WatchRegistry:  true,
		Probe: Probe{
			TimeoutSeconds:     15,
			Attempts:           2,
			Concurrency:        10,
			InsecureSkipVerify: true,
		},
		Connectivity: Connectivity{
			Target:         "8.8.8.8:53",
			TimeoutSeconds: 3,
		},
		Server: Server{
			CheckRatePerMinute:   6,
			CheckDeadlineSeconds: 90,
			PushIntervalSeconds:  30,
		},
	}
}

// Load reads configuration from yaml file. Missing files fall back to defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.RegistryPath) == "" {
		return errors.New("registry_path is required")
	}
	if cfg.Probe.Attempts > 5 {
		return fmt.Errorf("probe.attempts must be at most 5, got %d", cfg.Probe.Attempts)
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log_format %q", cfg.LogFormat)
	}
	return nil
}

// ProbeTimeout returns the per-attempt HTTP timeout.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutSeconds) * time.Second
}

// ConnectivityTimeout returns the dial timeout of the precondition check.
func (c Config) ConnectivityTimeout() time.Duration {
	return time.Duration(c.Connectivity.TimeoutSeconds) * time.Second
}

// ReportPath is where the latest report is persisted.
func (c Config) ReportPath() string {
	return filepath.Join(c.DataDirectory, "latest_report.json")
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.FailureLogPath == "" {
		cfg.FailureLogPath = def.FailureLogPath
	}
	if cfg.SettingsPath == "" {
		cfg.SettingsPath = def.SettingsPath
	}
	if cfg.DataDirectory == "" {
		cfg.DataDirectory = def.DataDirectory
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = def.LogFormat
	}
	if cfg.Probe.TimeoutSeconds <= 0 {
		cfg.Probe.TimeoutSeconds = def.Probe.TimeoutSeconds
	}
	if cfg.Probe.Attempts <= 0 {
		cfg.Probe.Attempts = def.Probe.Attempts
	}
	if cfg.Probe.Concurrency <= 0 {
		cfg.Probe.Concurrency = def.Probe.Concurrency
	}
	if strings.TrimSpace(cfg.Connectivity.Target) == "" {
		cfg.Connectivity.Target = def.Connectivity.Target
	}
	if cfg.Connectivity.TimeoutSeconds <= 0 {
		cfg.Connectivity.TimeoutSeconds = def.Connectivity.TimeoutSeconds
	}
	if cfg.Server.CheckRatePerMinute <= 0 {
		cfg.Server.CheckRatePerMinute = def.Server.CheckRatePerMinute
	}
	if cfg.Server.CheckDeadlineSeconds <= 0 {
		cfg.Server.CheckDeadlineSeconds = def.Server.CheckDeadlineSeconds
	}
	if cfg.Server.PushIntervalSeconds <= 0 {
		cfg.Server.PushIntervalSeconds = def.Server.PushIntervalSeconds
	}
}
