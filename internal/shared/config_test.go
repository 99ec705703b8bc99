package shared_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"review_lens/internal/shared"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(shared.ConfigFileEnv, "")
	cfg, err := shared.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.TargetCount != 500 || cfg.CacheTTL() != 15*time.Minute {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.PageDelay() != 100*time.Millisecond || cfg.RegionDelay() != 300*time.Millisecond {
		t.Fatalf("unexpected delays: %v %v", cfg.PageDelay(), cfg.RegionDelay())
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "http_addr: \":9999\"\nworkers: 2\ntarget_count: 300\napp_urls:\n  - https://apps.apple.com/us/app/a/id1\n  - https://apps.apple.com/gb/app/b/id2\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(shared.ConfigFileEnv, path)
	t.Setenv("WORKERS", "6")
	t.Setenv("REGION_CONCURRENCY", "3")

	cfg, err := shared.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" || cfg.TargetCount != 300 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Workers != 6 || cfg.RegionConcurrency != 3 {
		t.Fatalf("env should override file: %+v", cfg)
	}
	want := []string{"https://apps.apple.com/us/app/a/id1", "https://apps.apple.com/gb/app/b/id2"}
	if !reflect.DeepEqual(cfg.AppURLs, want) {
		t.Fatalf("app urls = %v", cfg.AppURLs)
	}
}

func TestLoad_EnvList(t *testing.T) {
	t.Setenv(shared.ConfigFileEnv, "")
	t.Setenv("APP_URLS", "https://apps.apple.com/us/app/a/id1, https://apps.apple.com/jp/app/c/id3")
	cfg, err := shared.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.AppURLs) != 2 || cfg.AppURLs[1] != "https://apps.apple.com/jp/app/c/id3" {
		t.Fatalf("unexpected app urls: %q", cfg.AppURLs)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(shared.ConfigFileEnv, "")
	t.Setenv("WORKERS", "0")
	if _, err := shared.Load(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv(shared.ConfigFileEnv, filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := shared.Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
