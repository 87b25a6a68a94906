package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if cfg.Ranking.NameMatchBonus != 10 {
		t.Errorf("ranking defaults not applied: name bonus %v", cfg.Ranking.NameMatchBonus)
	}
}

func TestLoad_debugTrue(t *testing.T) {
	path := writeConfig(t, `
debug: true
storage:
  database_path: "test.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/db/catalog.db"
  bleve_index_path: "./data/indices/bleve"
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "catalog.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	wantIdx := filepath.Join(dir, "data", "indices", "bleve")
	if cfg.Storage.BleveIndexPath != wantIdx {
		t.Errorf("bleve_index_path = %s, want %s", cfg.Storage.BleveIndexPath, wantIdx)
	}
}

func TestLoad_rankingOverrides(t *testing.T) {
	path := writeConfig(t, `
ranking:
  name_match_bonus: 12
  fulltext_model_bonus: 2.5
recommend:
  sales_weight: 0.6
  margin_cap: 3
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Ranking.NameMatchBonus != 12 {
		t.Errorf("name_match_bonus = %v, want 12", cfg.Ranking.NameMatchBonus)
	}
	if cfg.Ranking.FullTextModelBonus != 2.5 {
		t.Errorf("fulltext_model_bonus = %v, want 2.5", cfg.Ranking.FullTextModelBonus)
	}
	if cfg.Ranking.DescriptionMatchBonus != 8 {
		t.Errorf("description_match_bonus = %v, want default 8", cfg.Ranking.DescriptionMatchBonus)
	}
	if cfg.Recommend.SalesWeight != 0.6 || cfg.Recommend.MarginCap != 3 {
		t.Errorf("recommend overrides: got %+v", cfg.Recommend)
	}
	if cfg.Recommend.FreshnessWeight != 0.3 {
		t.Errorf("freshness_weight = %v, want default 0.3", cfg.Recommend.FreshnessWeight)
	}
}

func TestLoad_errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "server: [unclosed"},
		{"unknown sink", "analytics:\n  sink: kafka\n"},
		{"bad port", "server:\n  port: 70000\n"},
		{"page size too large", "search:\n  default_page_size: 500\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout() != 60*time.Second {
		t.Errorf("default request timeout: got %v", cfg.Server.RequestTimeout())
	}
	if cfg.Server.RateLimitPerMinute != 0 {
		t.Errorf("rate limit should stay disabled by default, got %d", cfg.Server.RateLimitPerMinute)
	}
	if cfg.Search.DefaultPageSize != 20 {
		t.Errorf("default page size: got %d", cfg.Search.DefaultPageSize)
	}
	if cfg.Search.SynonymMinWeight != 0.8 {
		t.Errorf("default synonym min weight: got %v", cfg.Search.SynonymMinWeight)
	}
	if cfg.Search.FuzzyMaxDistance != 2 {
		t.Errorf("default fuzzy max distance: got %d", cfg.Search.FuzzyMaxDistance)
	}
	if cfg.Search.VocabularyLimit != 500 {
		t.Errorf("default vocabulary limit: got %d", cfg.Search.VocabularyLimit)
	}
	if cfg.Analytics.Sink != SinkSQLite {
		t.Errorf("default sink: got %s", cfg.Analytics.Sink)
	}
	if cfg.Analytics.Timeout() != 2*time.Second || cfg.Analytics.BreakerOpen() != 30*time.Second {
		t.Errorf("analytics timings: got %v / %v", cfg.Analytics.Timeout(), cfg.Analytics.BreakerOpen())
	}
	if cfg.Analytics.BreakerFailureThreshold != 5 {
		t.Errorf("breaker threshold: got %d", cfg.Analytics.BreakerFailureThreshold)
	}
	if cfg.Recommend.FreshnessHalfDays != 30 {
		t.Errorf("freshness half days: got %v", cfg.Recommend.FreshnessHalfDays)
	}
}

func TestSearchConfig_durations(t *testing.T) {
	tests := []struct {
		name       string
		cfg        SearchConfig
		wantTTL    time.Duration
		wantMaxAge time.Duration
	}{
		{"positive", SearchConfig{VocabularyTTLSeconds: 30, CacheMaxAgeSeconds: 600}, 30 * time.Second, 10 * time.Minute},
		{"negative disables", SearchConfig{VocabularyTTLSeconds: -1, CacheMaxAgeSeconds: -1}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.VocabularyTTL(); got != tt.wantTTL {
				t.Errorf("VocabularyTTL() = %v, want %v", got, tt.wantTTL)
			}
			if got := tt.cfg.CacheMaxAge(); got != tt.wantMaxAge {
				t.Errorf("CacheMaxAge() = %v, want %v", got, tt.wantMaxAge)
			}
		})
	}
}

func TestAnalyticsConfig_EnabledOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		a := &AnalyticsConfig{}
		if got := a.EnabledOrDefault(); !got {
			t.Errorf("EnabledOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		a := &AnalyticsConfig{Enabled: &f}
		if got := a.EnabledOrDefault(); got {
			t.Errorf("EnabledOrDefault() = %v, want false", got)
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	ApplyDefaults(cfg)
	cfg.Ranking.ModelMatchBonus = 7
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Ranking.ModelMatchBonus != 7 {
		t.Errorf("loaded model bonus: got %v", loaded.Ranking.ModelMatchBonus)
	}
}
