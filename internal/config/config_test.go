package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWritesDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8080" || cfg.SearchDays != 7 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected config file to be written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600, got %o", perm)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if again.Cache.LongTTL != 6*time.Hour || again.Cache.ShortTTL != time.Minute {
		t.Fatalf("expected durations to round-trip, got %v/%v", again.Cache.LongTTL, again.Cache.ShortTTL)
	}
	if err := again.Validate(); err != nil {
		t.Fatalf("expected defaults to validate: %v", err)
	}
}

func TestLoadNormalizesPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "listen: \":9000\"\ncache:\n  short_ttl: 30s\nsheets:\n  current: Spring 2024\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9000" {
		t.Fatalf("expected listen from file, got %q", cfg.Listen)
	}
	if cfg.Cache.ShortTTL != 30*time.Second || cfg.Cache.LongTTL != 6*time.Hour {
		t.Fatalf("unexpected ttls %v/%v", cfg.Cache.ShortTTL, cfg.Cache.LongTTL)
	}
	if cfg.Layout.HeaderRows != 6 || cfg.Layout.CountRow != 5 {
		t.Fatalf("expected default layout, got %+v", cfg.Layout)
	}
	if cfg.Sheets.Admin != "Admin" || cfg.Sheets.Current != "Spring 2024" {
		t.Fatalf("unexpected sheets %+v", cfg.Sheets)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvListen, ":7000")
	t.Setenv(EnvRedisAddr, "redis:6379")
	t.Setenv(EnvMySQLDSN, "bot:pw@tcp(db:3306)/attend")
	t.Setenv(EnvTesting, "true")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":7000" || cfg.Cache.Backend != "redis" || cfg.Cache.RedisAddr != "redis:6379" {
		t.Fatalf("unexpected cache/listen overrides %+v", cfg)
	}
	if cfg.Storage.Backend != "mysql" || cfg.MySQL().DSN != "bot:pw@tcp(db:3306)/attend" {
		t.Fatalf("unexpected storage overrides %+v", cfg.Storage)
	}
	if !cfg.Testing {
		t.Fatalf("expected testing mode")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected overridden config to validate: %v", err)
	}

	t.Setenv(EnvTesting, "maybe")
	if err := DefaultConfig().ApplyEnv(); err == nil {
		t.Fatalf("expected bad boolean to fail")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("expected missing .env to be ignored, got %v", err)
	}

	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("ATTENDBOT_LISTEN=:6000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvListen, "")
	os.Unsetenv(EnvListen)
	if err := LoadDotEnv(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv(EnvListen); got != ":6000" {
		t.Fatalf("expected :6000 from .env, got %q", got)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"log_level":   func(c *Config) { c.LogLevel = "loud" },
		"timezone":    func(c *Config) { c.Timezone = "Mars/Base" },
		"cron":        func(c *Config) { c.Cache.ClearCron = "every day" },
		"redis addr":  func(c *Config) { c.Cache.Backend = "redis" },
		"cache":       func(c *Config) { c.Cache.Backend = "memcached" },
		"color":       func(c *Config) { c.Layout.BlackColor = "black" },
		"layout":      func(c *Config) { c.Layout.DateRow = 9 },
		"mysql":       func(c *Config) { c.Storage.Backend = "mysql" },
		"basic auth":  func(c *Config) { c.BasicAuth = &BasicAuthConfig{Username: "admin"} },
		"search_days": func(c *Config) { c.SearchDays = 0 },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestScheduleOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Testing = true
	cfg.Layout.HeaderCols = 3
	cfg.Sheets.Current = "Fall"

	opts, err := cfg.ScheduleOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Layout.HeaderCols != 3 || opts.CurrentSheet != "Fall" || opts.Location.String() != "America/New_York" {
		t.Fatalf("unexpected options %+v", opts)
	}
	if !strings.HasSuffix(opts.Keys.DateRow(), "_testing") {
		t.Fatalf("expected testing keys, got %s", opts.Keys.DateRow())
	}
}
