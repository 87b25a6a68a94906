// Package config provides configuration loading and structs for the partsearch server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Pronetsd2019/apetrape-management-webapi-sub000/internal/ranking"
	"gopkg.in/yaml.v3"
)

// Analytics sink kinds.
const (
	SinkSQLite = "sqlite"
	SinkLog    = "log"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool                    `yaml:"debug"`
	Server    ServerConfig            `yaml:"server"`
	Storage   StorageConfig           `yaml:"storage"`
	Search    SearchConfig            `yaml:"search"`
	Ranking   ranking.RankingConfig   `yaml:"ranking"`
	Recommend ranking.RecommendConfig `yaml:"recommend"`
	Analytics AnalyticsConfig         `yaml:"analytics"`
	Watch     WatchConfig             `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	// RateLimitPerMinute caps requests per client IP. Zero disables the limiter.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

// RequestTimeout returns the per-request timeout.
func (s *ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// StorageConfig holds paths for the catalog database and the full-text index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// SearchConfig holds query expansion and cache settings.
type SearchConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	VocabularyLimit int `yaml:"vocabulary_limit"`
	// VocabularyTTLSeconds is how long a vocabulary snapshot is reused.
	// A negative value takes a new snapshot for every query.
	VocabularyTTLSeconds int `yaml:"vocabulary_ttl_seconds"`
	// CacheMaxAgeSeconds bounds the staleness of the category closure and
	// synonym caches. A negative value keeps them until invalidated.
	CacheMaxAgeSeconds int     `yaml:"cache_max_age_seconds"`
	SynonymMinWeight   float64 `yaml:"synonym_min_weight"`
	FuzzyMaxDistance   int     `yaml:"fuzzy_max_distance"`
}

// VocabularyTTL returns the snapshot reuse window; zero means every query.
func (s *SearchConfig) VocabularyTTL() time.Duration {
	if s.VocabularyTTLSeconds < 0 {
		return 0
	}
	return time.Duration(s.VocabularyTTLSeconds) * time.Second
}

// CacheMaxAge returns the cache staleness bound; zero means no bound.
func (s *SearchConfig) CacheMaxAge() time.Duration {
	if s.CacheMaxAgeSeconds < 0 {
		return 0
	}
	return time.Duration(s.CacheMaxAgeSeconds) * time.Second
}

// AnalyticsConfig holds search analytics delivery settings.
type AnalyticsConfig struct {
	Enabled                 *bool  `yaml:"enabled"`
	Sink                    string `yaml:"sink"`
	TimeoutMs               int    `yaml:"timeout_ms"`
	BreakerFailureThreshold uint32 `yaml:"breaker_failure_threshold"`
	BreakerOpenSeconds      int    `yaml:"breaker_open_seconds"`
}

// EnabledOrDefault returns whether analytics are delivered; defaults to true when unset.
func (a *AnalyticsConfig) EnabledOrDefault() bool {
	if a.Enabled != nil {
		return *a.Enabled
	}
	return true
}

// Timeout returns the per-event delivery timeout.
func (a *AnalyticsConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutMs) * time.Millisecond
}

// BreakerOpen returns how long the sink breaker stays open.
func (a *AnalyticsConfig) BreakerOpen() time.Duration {
	return time.Duration(a.BreakerOpenSeconds) * time.Second
}

// WatchConfig holds file watch settings.
type WatchConfig struct {
	// Config reloads ranking weights and drops the catalog caches when the config file changes.
	Config bool `yaml:"config"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)

	return &cfg, nil
}

// Validate rejects values ApplyDefaults cannot repair.
func (c *Config) Validate() error {
	switch c.Analytics.Sink {
	case SinkSQLite, SinkLog:
	default:
		return fmt.Errorf("invalid analytics sink %q: want %q or %q", c.Analytics.Sink, SinkSQLite, SinkLog)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Search.DefaultPageSize > 100 {
		return fmt.Errorf("default_page_size %d exceeds 100", c.Search.DefaultPageSize)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
