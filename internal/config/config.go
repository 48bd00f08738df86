package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the persistent application configuration
type Config struct {
	API     APIConfig     `json:"api"`
	Polling PollingConfig `json:"polling"`
	UI      UIConfig      `json:"ui"`
	Logging LoggingConfig `json:"logging"`

	// CatalogFile optionally replaces the built-in line catalog.
	CatalogFile string `json:"catalog_file,omitempty"`
}

// APIConfig describes how to reach the dashboard backend
type APIConfig struct {
	BaseURL           string  `json:"base_url"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"` // 0 disables the limiter
	Burst             int     `json:"burst"`
	AlertConcurrency  int     `json:"alert_concurrency"` // parallel per-line alert requests
}

// PollingConfig holds scheduler settings
type PollingConfig struct {
	IntervalSeconds int `json:"interval_seconds"`
	RecentLimit     int `json:"recent_limit"`
}

// UIConfig holds UI preferences
type UIConfig struct {
	ShowFeed bool `json:"show_feed"`
	Compact  bool `json:"compact"`
}

// LoggingConfig controls the operational log and the event log
type LoggingConfig struct {
	Level string `json:"level"`
	Dir   string `json:"dir,omitempty"` // default ~/.delayboard/logs
}

// DefaultBaseURL is the production backend.
const DefaultBaseURL = "https://web-production-2afb5.up.railway.app"

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:           DefaultBaseURL,
			TimeoutSeconds:    15,
			RequestsPerSecond: 20,
			Burst:             10,
			AlertConcurrency:  6,
		},
		Polling: PollingConfig{
			IntervalSeconds: 60,
			RecentLimit:     8,
		},
		UI: UIConfig{
			ShowFeed: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// PollInterval returns the poll period as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Polling.IntervalSeconds) * time.Second
}

// Timeout returns the per-request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// ConfigDir returns ~/.delayboard
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".delayboard")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// Load reads the default config file, then applies .env and environment
// overrides. A missing file yields defaults.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom is Load with an explicit path.
func LoadFrom(path string) (*Config, error) {
	// .env is optional; a missing file is fine.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	cfg.AutoPopulateFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to disk
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// AutoPopulateFromEnv applies DELAYBOARD_* environment overrides
func (c *Config) AutoPopulateFromEnv() {
	if v := os.Getenv("DELAYBOARD_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("DELAYBOARD_POLL_INTERVAL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Polling.IntervalSeconds = secs
		}
	}
	if v := os.Getenv("DELAYBOARD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DELAYBOARD_CATALOG"); v != "" {
		c.CatalogFile = v
	}
}

// Validate rejects configurations the client cannot run with
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: api.base_url %q is not an absolute URL", c.API.BaseURL)
	}
	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("config: api.timeout_seconds must be positive")
	}
	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("config: api.requests_per_second must not be negative")
	}
	if c.API.AlertConcurrency <= 0 {
		return fmt.Errorf("config: api.alert_concurrency must be positive")
	}
	if c.Polling.IntervalSeconds <= 0 {
		return fmt.Errorf("config: polling.interval_seconds must be positive")
	}
	if c.Polling.RecentLimit <= 0 {
		return fmt.Errorf("config: polling.recent_limit must be positive")
	}
	return nil
}
