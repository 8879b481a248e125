package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"CatalogSync/internal/domain"
)

func TestParseKeepsDefaultsForOmittedKeys(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`
fetch:
  timeout: 3s
import:
  duplicateStrategy: update
  criteria:
    minPrice: 5
    categories: [lamps]
pricing:
  rules:
    - id: lamps
      type: percentageMarkup
      value: 50
      conditions:
        category: lamps
suppliers:
  - id: s1
    name: Acme
    status: active
    feedUrl: https://acme.example/feed.json
    feedType: json
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Fetch.Timeout != 3*time.Second || cfg.Fetch.Retries != 2 {
		t.Fatalf("unexpected fetch config %+v", cfg.Fetch)
	}
	if cfg.Import.DuplicateStrategy != domain.DuplicateUpdate || cfg.Import.MaxVariantCombinations != 100 {
		t.Fatalf("unexpected import config %+v", cfg.Import)
	}
	if cfg.Import.Criteria.MinPrice == nil || *cfg.Import.Criteria.MinPrice != 5 {
		t.Fatalf("criteria not decoded: %+v", cfg.Import.Criteria)
	}
	if len(cfg.Pricing.Rules) != 1 || cfg.Pricing.Rules[0].Type != domain.RulePercentageMarkup || cfg.Pricing.CompetitiveFactor != 1.15 {
		t.Fatalf("unexpected pricing config %+v", cfg.Pricing)
	}
	if len(cfg.Suppliers) != 1 || cfg.Suppliers[0].FeedType != domain.SourceJSON {
		t.Fatalf("unexpected suppliers %+v", cfg.Suppliers)
	}
}

func TestParseRejectsBrokenYAML(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte("fetch: [")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("http:\n  addr: \":9000\"\nscheduler:\n  timezone: Europe/Berlin\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv("CATALOGSYNC_DATABASE_DSN", "postgres://localhost/catalog")
	t.Setenv("CATALOGSYNC_LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.HTTP.Addr != ":9000" {
		t.Fatalf("expected file value, got %s", cfg.HTTP.Addr)
	}
	if cfg.Database.DSN != "postgres://localhost/catalog" || cfg.Logging.Level != "debug" {
		t.Fatalf("env overrides not applied: %+v %+v", cfg.Database, cfg.Logging)
	}
	if cfg.Scheduler.Location().String() != "Europe/Berlin" {
		t.Fatalf("unexpected timezone %s", cfg.Scheduler.Location())
	}
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()
	if cfg.HTTP.Addr != ":8080" || cfg.Sync.FailureThreshold != 0.5 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}
