package appconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses
// DefaultConfigPath. A missing file is not an error; defaults apply.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("collector.base_url", cfg.Collector.BaseURL)
	v.SetDefault("collector.request_timeout_seconds", cfg.Collector.RequestTimeoutSeconds)
	v.SetDefault("capture.start_url", cfg.Capture.StartURL)
	v.SetDefault("capture.headless", cfg.Capture.Headless)
	v.SetDefault("capture.control_addr", cfg.Capture.ControlAddr)
	v.SetDefault("capture.settle_ms", cfg.Capture.SettleMillis)
	v.SetDefault("capture.throttle_ms", cfg.Capture.ThrottleMillis)
	v.SetDefault("capture.excerpt_cap", cfg.Capture.ExcerptCap)
	v.SetDefault("capture.highlight", cfg.Capture.Highlight)
	v.SetDefault("batch.max_events", cfg.Batch.MaxEvents)
	v.SetDefault("batch.flush_timeout_seconds", cfg.Batch.FlushTimeoutSeconds)
	v.SetDefault("batch.sweep_interval_seconds", cfg.Batch.SweepIntervalSeconds)
	v.SetDefault("session.heartbeat_interval_seconds", cfg.Session.HeartbeatIntervalSeconds)
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.db_path", cfg.Server.DBPath)

	if err := v.ReadInConfig(); err != nil {
		// An absent config file means "run on defaults".
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Server.DBPath = expandEnv(cfg.Server.DBPath)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	baseURL := strings.TrimSpace(cfg.Collector.BaseURL)
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("collector.base_url must include scheme and host (e.g. http://127.0.0.1:27510)")
	}
	if cfg.Batch.MaxEvents < 1 {
		return fmt.Errorf("batch.max_events must be at least 1")
	}
	if cfg.Batch.FlushTimeoutSeconds < 1 {
		return fmt.Errorf("batch.flush_timeout_seconds must be at least 1")
	}
	if cfg.Session.HeartbeatIntervalSeconds < 1 {
		return fmt.Errorf("session.heartbeat_interval_seconds must be at least 1")
	}
	return nil
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
