// Package appconfig holds the file-backed configuration for both the
// capture agent and the collector service.
package appconfig

import (
	"os"
	"path/filepath"
	"runtime"
)

// Config is the top-level application configuration.
type Config struct {
	Collector CollectorConfig `mapstructure:"collector" yaml:"collector"`
	Capture   CaptureConfig   `mapstructure:"capture" yaml:"capture"`
	Batch     BatchConfig     `mapstructure:"batch" yaml:"batch"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
}

// CollectorConfig tells the agent where the collector lives.
type CollectorConfig struct {
	BaseURL               string `mapstructure:"base_url" yaml:"base_url"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" yaml:"request_timeout_seconds"`
}

// CaptureConfig controls the browser side of the agent.
type CaptureConfig struct {
	StartURL       string `mapstructure:"start_url" yaml:"start_url"`
	Headless       bool   `mapstructure:"headless" yaml:"headless"`
	ControlAddr    string `mapstructure:"control_addr" yaml:"control_addr"`
	SettleMillis   int    `mapstructure:"settle_ms" yaml:"settle_ms"`
	ThrottleMillis int    `mapstructure:"throttle_ms" yaml:"throttle_ms"`
	ExcerptCap     int    `mapstructure:"excerpt_cap" yaml:"excerpt_cap"`
	Highlight      bool   `mapstructure:"highlight" yaml:"highlight"`
}

// BatchConfig controls event batching between capture and transmission.
type BatchConfig struct {
	MaxEvents            int `mapstructure:"max_events" yaml:"max_events"`
	FlushTimeoutSeconds  int `mapstructure:"flush_timeout_seconds" yaml:"flush_timeout_seconds"`
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds" yaml:"sweep_interval_seconds"`
}

// SessionConfig controls session lifecycle behavior.
type SessionConfig struct {
	HeartbeatIntervalSeconds int `mapstructure:"heartbeat_interval_seconds" yaml:"heartbeat_interval_seconds"`
}

// ServerConfig configures the collector service.
type ServerConfig struct {
	Addr   string `mapstructure:"addr" yaml:"addr"`
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	dataDir, err := defaultDataDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Collector: CollectorConfig{
			BaseURL:               "http://127.0.0.1:27510",
			RequestTimeoutSeconds: 10,
		},
		Capture: CaptureConfig{
			StartURL:       "about:blank",
			Headless:       false,
			ControlAddr:    "127.0.0.1:27515",
			SettleMillis:   500,
			ThrottleMillis: 100,
			ExcerptCap:     500,
			Highlight:      true,
		},
		Batch: BatchConfig{
			MaxEvents:            10,
			FlushTimeoutSeconds:  3,
			SweepIntervalSeconds: 5,
		},
		Session: SessionConfig{
			HeartbeatIntervalSeconds: 6,
		},
		Server: ServerConfig{
			Addr:   ":27510",
			DBPath: filepath.Join(dataDir, "clicktrail.db"),
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".clicktrail", "config.yaml"), nil
}

// defaultDataDir is the platform application data directory for the
// collector database.
func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Clicktrail"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Clicktrail"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "Clicktrail"), nil
	default:
		return filepath.Join(home, ".local", "share", "clicktrail"), nil
	}
}
