package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"LIBRETTO_DB", "LIBRETTO_CACHE_DIR", "LIBRETTO_CACHE", "LIBRETTO_PAGE_LIMIT",
		"LIBRETTO_STRICT", "LIBRETTO_HTTP_ADDR", "LIBRETTO_RATE_RPS",
		"LIBRETTO_RATE_BURST", "LIBRETTO_WATCH",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "" || cfg.Cache.Dir != "" {
		t.Fatalf("expected locations to be left to the caller, got %q and %q", cfg.Database.Path, cfg.Cache.Dir)
	}
	if cfg.Timeline.PageLimit != 100 {
		t.Fatalf("expected default page limit 100, got %d", cfg.Timeline.PageLimit)
	}
	if cfg.Timeline.Strict {
		t.Fatalf("expected strict mode off by default")
	}
	if !cfg.Cache.Enabled {
		t.Fatalf("expected cache enabled by default")
	}
	if cfg.HTTP.RateLimitBurst != 20 {
		t.Fatalf("expected default burst 20, got %d", cfg.HTTP.RateLimitBurst)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "libretto.yaml")
	data := []byte("database:\n  path: /data/rooms.db\ntimeline:\n  page_limit: 25\n  strict: true\nhttp:\n  addr: \":9000\"\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/data/rooms.db" {
		t.Fatalf("unexpected database path: %q", cfg.Database.Path)
	}
	if cfg.Timeline.PageLimit != 25 || !cfg.Timeline.Strict {
		t.Fatalf("unexpected timeline config: %+v", cfg.Timeline)
	}
	if cfg.HTTP.Addr != ":9000" {
		t.Fatalf("unexpected addr: %q", cfg.HTTP.Addr)
	}
	// Fields absent from the file keep their defaults.
	if !cfg.Cache.Enabled || cfg.HTTP.RateLimitBurst != 20 {
		t.Fatalf("expected defaults to survive partial file, got %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIBRETTO_DB", "/tmp/env.db")
	t.Setenv("LIBRETTO_CACHE", "false")
	t.Setenv("LIBRETTO_PAGE_LIMIT", "50")
	t.Setenv("LIBRETTO_STRICT", "true")
	t.Setenv("LIBRETTO_RATE_RPS", "2.5")
	t.Setenv("LIBRETTO_RATE_BURST", "5")
	t.Setenv("LIBRETTO_WATCH", "0")

	path := filepath.Join(t.TempDir(), "libretto.yaml")
	if err := os.WriteFile(path, []byte("database:\n  path: /data/file.db\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "/tmp/env.db" {
		t.Fatalf("expected env to override file, got %q", cfg.Database.Path)
	}
	if cfg.Cache.Enabled {
		t.Fatalf("expected cache disabled")
	}
	if cfg.Timeline.PageLimit != 50 || !cfg.Timeline.Strict {
		t.Fatalf("unexpected timeline config: %+v", cfg.Timeline)
	}
	if cfg.HTTP.RateLimitRPS != 2.5 || cfg.HTTP.RateLimitBurst != 5 || cfg.HTTP.WatchDB {
		t.Fatalf("unexpected http config: %+v", cfg.HTTP)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("LIBRETTO_PAGE_LIMIT", "lots")
	t.Setenv("LIBRETTO_STRICT", "maybe")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Timeline.PageLimit != 100 {
		t.Fatalf("expected invalid page limit to fall back, got %d", cfg.Timeline.PageLimit)
	}
	if cfg.Timeline.Strict {
		t.Fatalf("expected invalid bool to fall back to false")
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("timeline: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSummaryJSON(t *testing.T) {
	cfg := Default()
	cfg.Database.Path = "libretto.db"
	cfg.Cache.Dir = "/tmp/cache"
	cfg.Cache.Enabled = false

	var payload struct {
		Config Summary `json:"config_summary"`
	}
	if err := json.Unmarshal(cfg.SummaryJSON(), &payload); err != nil {
		t.Fatalf("SummaryJSON() produced invalid JSON: %v", err)
	}
	if payload.Config.Database != "libretto.db" {
		t.Fatalf("unexpected database: %q", payload.Config.Database)
	}
	if payload.Config.CacheDir != "" {
		t.Fatalf("expected no cache dir when disabled, got %q", payload.Config.CacheDir)
	}
}
