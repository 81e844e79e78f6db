package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/nixlim/ids-top/internal/alerts"
)

// History window bounds, in samples.
const (
	MinHistoryWindow = 60
	MaxHistoryWindow = 3600
)

type Config struct {
	Channel       ChannelConfig       `toml:"channel"`
	Backend       BackendConfig       `toml:"backend"`
	Stats         StatsConfig         `toml:"stats"`
	Notifications NotificationsConfig `toml:"notifications"`
	Annotations   AnnotationsConfig   `toml:"annotations"`
	Display       DisplayConfig       `toml:"display"`
	Storage       StorageConfig       `toml:"storage"`
	Logging       LoggingConfig       `toml:"logging"`
	Metrics       MetricsConfig       `toml:"metrics"`
}

type ChannelConfig struct {
	URL                string `toml:"url"`
	ReconnectDelayMS   int    `toml:"reconnect_delay_ms"`
	HandshakeTimeoutMS int    `toml:"handshake_timeout_ms"`
}

type BackendConfig struct {
	BaseURL          string `toml:"base_url"`
	RequestTimeoutMS int    `toml:"request_timeout_ms"`
}

type StatsConfig struct {
	PollIntervalMS   int  `toml:"poll_interval_ms"`
	HistoryWindow    int  `toml:"history_window"`
	NormalizeElapsed bool `toml:"normalize_elapsed"`
}

type NotificationsConfig struct {
	Enabled      bool   `toml:"enabled"`
	SoundEnabled bool   `toml:"sound_enabled"`
	MinSeverity  string `toml:"min_severity"`
	MaxPerMinute int    `toml:"max_per_minute"`
}

type AnnotationsConfig struct {
	KeyPolicy string `toml:"key_policy"`
}

type DisplayConfig struct {
	BufferSize    int `toml:"buffer_size"`
	RefreshRateMS int `toml:"refresh_rate_ms"`
}

type StorageConfig struct {
	Backend     string `toml:"backend"`
	DBPath      string `toml:"db_path"`
	RedisAddr   string `toml:"redis_addr"`
	RedisDB     int    `toml:"redis_db"`
	RedisPrefix string `toml:"redis_prefix"`
}

type LoggingConfig struct {
	File       string `toml:"file"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

type MetricsConfig struct {
	Listen string `toml:"listen"`
}

type LoadResult struct {
	Config   Config
	Warnings []string
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Channel: ChannelConfig{
			URL:                "ws://127.0.0.1:3000/ws/alerts",
			ReconnectDelayMS:   3000,
			HandshakeTimeoutMS: 5000,
		},
		Backend: BackendConfig{
			BaseURL:          "http://127.0.0.1:3000",
			RequestTimeoutMS: 5000,
		},
		Stats: StatsConfig{
			PollIntervalMS: 1000,
			HistoryWindow:  MinHistoryWindow,
		},
		Notifications: NotificationsConfig{
			Enabled:      true,
			SoundEnabled: true,
			MinSeverity:  string(alerts.SeverityHigh),
		},
		Annotations: AnnotationsConfig{
			KeyPolicy: "class",
		},
		Display: DisplayConfig{
			BufferSize:    100,
			RefreshRateMS: 500,
		},
		Storage: StorageConfig{
			Backend:     "sqlite",
			DBPath:      "~/.local/share/ids-top/ids-top.db",
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: "ids-top:",
		},
		Logging: LoggingConfig{
			File:       "~/.local/state/ids-top/ids-top.log",
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ids-top", "config.toml")
}

func Load() (*LoadResult, error) {
	return LoadFrom(defaultConfigPath())
}

func LoadFrom(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &LoadResult{Config: DefaultConfig()}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromString(string(data))
}

// LoadFromString parses TOML on top of DefaultConfig. Keys absent from data
// keep their defaults; unknown keys are reported as warnings.
func LoadFromString(data string) (*LoadResult, error) {
	result := &LoadResult{Config: DefaultConfig()}

	if data == "" {
		return result, nil
	}

	md, err := toml.Decode(data, &result.Config)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	result.Warnings = unknownKeyWarnings(md.Undecoded())

	if err := validate(&result.Config); err != nil {
		return nil, err
	}

	return result, nil
}

// unknownKeyWarnings reports each undecoded key once. Children of an
// unknown table are folded into the table's warning.
func unknownKeyWarnings(keys []toml.Key) []string {
	var warnings []string
	reported := make(map[string]bool)
	for _, key := range keys {
		covered := false
		for i := 1; i < len(key); i++ {
			if reported[key[:i].String()] {
				covered = true
				break
			}
		}
		if covered {
			continue
		}
		reported[key.String()] = true
		warnings = append(warnings, fmt.Sprintf("unknown config key: %q", key.String()))
	}
	return warnings
}

// ReconnectDelay returns the fixed delay between reconnect attempts.
func (c ChannelConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMS) * time.Millisecond
}

// HandshakeTimeout returns the WebSocket handshake timeout.
func (c ChannelConfig) HandshakeTimeout() time.Duration {
	return time.Duration(c.HandshakeTimeoutMS) * time.Millisecond
}

// RequestTimeout returns the per-request HTTP timeout.
func (c BackendConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// PollInterval returns the stats polling cadence.
func (c StatsConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// RefreshRate returns the dashboard refresh interval.
func (c DisplayConfig) RefreshRate() time.Duration {
	return time.Duration(c.RefreshRateMS) * time.Millisecond
}

// ExpandTilde replaces a leading "~/" with the user's home directory.
func ExpandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func validate(cfg *Config) error {
	var errs []string

	if err := validateURL(cfg.Channel.URL, "ws", "wss"); err != nil {
		errs = append(errs, fmt.Sprintf("channel url %v", err))
	}
	if cfg.Channel.ReconnectDelayMS < 1 {
		errs = append(errs, fmt.Sprintf("reconnect_delay_ms must be positive, got %d", cfg.Channel.ReconnectDelayMS))
	}
	if cfg.Channel.HandshakeTimeoutMS < 1 {
		errs = append(errs, fmt.Sprintf("handshake_timeout_ms must be positive, got %d", cfg.Channel.HandshakeTimeoutMS))
	}

	if err := validateURL(cfg.Backend.BaseURL, "http", "https"); err != nil {
		errs = append(errs, fmt.Sprintf("backend base_url %v", err))
	}
	if cfg.Backend.RequestTimeoutMS < 1 {
		errs = append(errs, fmt.Sprintf("request_timeout_ms must be positive, got %d", cfg.Backend.RequestTimeoutMS))
	}

	if cfg.Stats.PollIntervalMS < 1 {
		errs = append(errs, fmt.Sprintf("poll_interval_ms must be positive, got %d", cfg.Stats.PollIntervalMS))
	}
	if cfg.Stats.HistoryWindow < MinHistoryWindow || cfg.Stats.HistoryWindow > MaxHistoryWindow {
		errs = append(errs, fmt.Sprintf("history_window must be %d-%d, got %d", MinHistoryWindow, MaxHistoryWindow, cfg.Stats.HistoryWindow))
	}

	if _, ok := alerts.ParseSeverity(cfg.Notifications.MinSeverity); !ok {
		errs = append(errs, fmt.Sprintf("min_severity must be one of Low, Medium, High, Critical, got %q", cfg.Notifications.MinSeverity))
	}
	if cfg.Notifications.MaxPerMinute < 0 {
		errs = append(errs, fmt.Sprintf("max_per_minute must not be negative, got %d", cfg.Notifications.MaxPerMinute))
	}

	switch cfg.Annotations.KeyPolicy {
	case "class", "occurrence":
	default:
		errs = append(errs, fmt.Sprintf("annotations key_policy must be \"class\" or \"occurrence\", got %q", cfg.Annotations.KeyPolicy))
	}

	if cfg.Display.BufferSize < 1 {
		errs = append(errs, fmt.Sprintf("buffer_size must be positive, got %d", cfg.Display.BufferSize))
	}
	if cfg.Display.RefreshRateMS < 1 {
		errs = append(errs, fmt.Sprintf("refresh_rate_ms must be positive, got %d", cfg.Display.RefreshRateMS))
	}

	switch cfg.Storage.Backend {
	case "sqlite", "memory":
	case "redis":
		if cfg.Storage.RedisAddr == "" {
			errs = append(errs, "storage redis_addr is required when backend is \"redis\"")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage backend must be sqlite, redis or memory, got %q", cfg.Storage.Backend))
	}
	if cfg.Storage.RedisDB < 0 {
		errs = append(errs, fmt.Sprintf("storage redis_db must not be negative, got %d", cfg.Storage.RedisDB))
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("logging level must be debug, info, warn or error, got %q", cfg.Logging.Level))
	}
	if cfg.Logging.MaxSizeMB < 1 {
		errs = append(errs, fmt.Sprintf("logging max_size_mb must be positive, got %d", cfg.Logging.MaxSizeMB))
	}
	if cfg.Logging.MaxBackups < 0 {
		errs = append(errs, fmt.Sprintf("logging max_backups must not be negative, got %d", cfg.Logging.MaxBackups))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation error: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is invalid: %v", err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("must be an absolute %s URL, got %q", strings.Join(schemes, "/"), raw)
}
