// Package config provides configuration management for reasonledger.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultWorkerPort is the default HTTP port of the ledger worker.
	DefaultWorkerPort = 37820
	// DefaultWorkerHost keeps the worker on loopback unless configured.
	DefaultWorkerHost = "127.0.0.1"
	// DefaultTTLMs is the idle time after which a session expires.
	DefaultTTLMs = 3600000
	// DefaultCleanupIntervalMs is how often expired sessions are swept.
	DefaultCleanupIntervalMs = 300000
	// DefaultMaxSessions is the session capacity before LRU eviction.
	DefaultMaxSessions = 1000
	// DefaultMaxThoughtBytes bounds a single thought accepted by the worker.
	DefaultMaxThoughtBytes = 65536
	// DefaultLogLevel is the zerolog level name used when none is set.
	DefaultLogLevel = "info"

	dataDirName      = ".reasonledger"
	settingsFileName = "settings.json"
)

// Config holds all ledger worker settings. Field tags are the keys used
// both in settings.json and as environment variables.
type Config struct {
	WorkerHost        string `json:"LEDGER_WORKER_HOST"`
	VocabularyPath    string `json:"LEDGER_VOCABULARY_PATH"`
	LogLevel          string `json:"LEDGER_LOG_LEVEL"`
	TTLMs             int64  `json:"LEDGER_TTL_MS"`
	CleanupIntervalMs int64  `json:"LEDGER_CLEANUP_INTERVAL_MS"`
	WorkerPort        int    `json:"LEDGER_WORKER_PORT"`
	MaxSessions       int    `json:"LEDGER_MAX_SESSIONS"`
	MaxRecords        int    `json:"LEDGER_MAX_RECORDS"`
	MaxThoughtBytes   int    `json:"LEDGER_MAX_THOUGHT_BYTES"`
}

var (
	cached     *Config
	cachedOnce sync.Once
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		WorkerHost:        DefaultWorkerHost,
		LogLevel:          DefaultLogLevel,
		TTLMs:             DefaultTTLMs,
		CleanupIntervalMs: DefaultCleanupIntervalMs,
		WorkerPort:        DefaultWorkerPort,
		MaxSessions:       DefaultMaxSessions,
		MaxThoughtBytes:   DefaultMaxThoughtBytes,
	}
}

// DataDir returns the data directory path (~/.reasonledger).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, dataDirName)
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), settingsFileName)
}

// EnsureDataDir creates the data directory if it does not exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings writes a settings file with defaults if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureAll creates the data directory and default settings.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := EnsureSettings(); err != nil {
		return fmt.Errorf("create settings: %w", err)
	}
	return nil
}

// Load reads settings.json and applies environment overrides. A missing or
// malformed settings file yields defaults.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	switch {
	case err == nil:
		settings := *cfg
		if jsonErr := json.Unmarshal(data, &settings); jsonErr != nil {
			log.Warn().Err(jsonErr).Str("path", SettingsPath()).Msg("Invalid settings file, using defaults")
		} else {
			cfg = &settings
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

// Get returns the process-wide configuration, loading it on first use.
func Get() *Config {
	cachedOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load config, using defaults")
			cfg = Default()
		}
		cached = cfg
	})
	return cached
}

// GetWorkerPort returns the worker port, preferring a valid
// LEDGER_WORKER_PORT from the environment.
func GetWorkerPort() int {
	if port, ok := envInt("LEDGER_WORKER_PORT"); ok && port > 0 && port <= 65535 {
		return port
	}
	return Get().WorkerPort
}

// Addr returns the host:port the worker listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.WorkerHost, c.WorkerPort)
}

// TTL returns the session time-to-live.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.TTLMs) * time.Millisecond
}

// CleanupInterval returns the sweep interval. Negative disables sweeping.
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMs) * time.Millisecond
}

// Level returns the configured zerolog level, Info when unparseable.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(c.LogLevel)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LEDGER_WORKER_HOST"); v != "" {
		c.WorkerHost = v
	}
	if v := os.Getenv("LEDGER_VOCABULARY_PATH"); v != "" {
		c.VocabularyPath = v
	}
	if v := os.Getenv("LEDGER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v, ok := envInt("LEDGER_WORKER_PORT"); ok {
		c.WorkerPort = v
	}
	if v, ok := envInt("LEDGER_TTL_MS"); ok {
		c.TTLMs = int64(v)
	}
	if v, ok := envInt("LEDGER_CLEANUP_INTERVAL_MS"); ok {
		c.CleanupIntervalMs = int64(v)
	}
	if v, ok := envInt("LEDGER_MAX_SESSIONS"); ok {
		c.MaxSessions = v
	}
	if v, ok := envInt("LEDGER_MAX_RECORDS"); ok {
		c.MaxRecords = v
	}
	if v, ok := envInt("LEDGER_MAX_THOUGHT_BYTES"); ok {
		c.MaxThoughtBytes = v
	}
}

// normalize replaces out-of-range values with defaults.
func (c *Config) normalize() {
	if c.WorkerHost == "" {
		c.WorkerHost = DefaultWorkerHost
	}
	if c.WorkerPort <= 0 || c.WorkerPort > 65535 {
		c.WorkerPort = DefaultWorkerPort
	}
	if c.TTLMs <= 0 {
		c.TTLMs = DefaultTTLMs
	}
	if c.CleanupIntervalMs == 0 {
		c.CleanupIntervalMs = DefaultCleanupIntervalMs
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = DefaultMaxSessions
	}
	if c.MaxRecords < 0 {
		c.MaxRecords = 0
	}
	if c.MaxThoughtBytes <= 0 {
		c.MaxThoughtBytes = DefaultMaxThoughtBytes
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
