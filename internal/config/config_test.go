package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"CaseCollector/internal/domain"
)

func validConfig() Config {
	cfg := defaultConfig()
	cfg.Search.Naver.ClientID = "id"
	cfg.Search.Naver.ClientSecret = "secret"
	cfg.Filter.Excluded = cfg.Taxonomy.ExcludedTerms
	return cfg
}

func TestDefaultsValidateWithCredentials(t *testing.T) {
	t.Parallel()

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("defaults with credentials should validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "missing naver credentials",
			mutate: func(c *Config) { c.Search.Naver.ClientSecret = "" },
			want:   "clientId and clientSecret",
		},
		{
			name:   "unknown strategy",
			mutate: func(c *Config) { c.Classifier.Strategy = "magic" },
			want:   "Strategy",
		},
		{
			name:   "delegated without key",
			mutate: func(c *Config) { c.Classifier.Strategy = StrategyDelegated },
			want:   "apiKey and model",
		},
		{
			name:   "threshold above range",
			mutate: func(c *Config) { c.Approval.Threshold = 101 },
			want:   "Threshold",
		},
		{
			name:   "empty collection",
			mutate: func(c *Config) { c.Collection = nil },
			want:   "Collection",
		},
		{
			name: "duplicate tier",
			mutate: func(c *Config) {
				c.Filter.Tiers[1].Tier = c.Filter.Tiers[0].Tier
			},
			want: "declared twice",
		},
		{
			name:   "html provider without selectors",
			mutate: func(c *Config) { c.Search.Providers["news"] = ProviderHTML },
			want:   "search.html",
		},
		{
			name:   "unknown source type",
			mutate: func(c *Config) { c.Collection[0].SourceType = domain.SourceType("video") },
			want:   "SourceType",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
database:
  dsn: sqlite:///tmp/cases.db
search:
  delay: 250ms
  providers:
    news: html
collection:
  - name: blog-only
    sourceType: blog
    terms: [팀플]
    quota: 7
taxonomy:
  excludedTerms: [광고]
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(naverClientIDEnv, "env-id")
	t.Setenv(logLevelEnv, "warn")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Database.DSN != "sqlite:///tmp/cases.db" {
		t.Fatalf("dsn not read from file: %s", cfg.Database.DSN)
	}
	if cfg.Search.Delay != 250*time.Millisecond {
		t.Fatalf("delay not decoded: %v", cfg.Search.Delay)
	}
	if cfg.Search.Providers["news"] != ProviderHTML || cfg.Search.Providers["blog"] != ProviderNaver {
		t.Fatalf("providers not merged: %v", cfg.Search.Providers)
	}
	if len(cfg.Collection) != 1 || cfg.Collection[0].Quota != 7 {
		t.Fatalf("collection not replaced: %+v", cfg.Collection)
	}
	if cfg.Search.Count != 100 || cfg.Approval.Threshold != 80 {
		t.Fatalf("defaults lost: count=%d threshold=%d", cfg.Search.Count, cfg.Approval.Threshold)
	}
	if cfg.Search.Naver.ClientID != "env-id" || cfg.Logging.Level != "warn" {
		t.Fatalf("env overrides not applied: %+v %s", cfg.Search.Naver, cfg.Logging.Level)
	}
	if len(cfg.Filter.Excluded) != 1 || cfg.Filter.Excluded[0] != "광고" {
		t.Fatalf("excluded terms not bound to filter: %v", cfg.Filter.Excluded)
	}
	if cfg.Scheduler.Location() == nil {
		t.Fatalf("timezone not bound")
	}
}

func TestLoadFileErrors(t *testing.T) {
	t.Parallel()

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("search: [unterminated"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
