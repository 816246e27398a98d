package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lexsync/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent.toml")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("exists = true for missing file")
	}
	if resolved != path {
		t.Fatalf("resolved = %s, want %s", resolved, path)
	}
	if cfg.Queue.DefaultMaxRetries != 3 {
		t.Fatalf("default max retries = %d", cfg.Queue.DefaultMaxRetries)
	}
	if cfg.Sync.ProbeAddress != "1.1.1.1:443" {
		t.Fatalf("probe address = %s", cfg.Sync.ProbeAddress)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `/data"

[queue]
default_max_retries = 5

[processor]
base_url = "https://processor.example.com/"

[sync]
poll_interval = 30
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("exists = false")
	}
	if cfg.Queue.DefaultMaxRetries != 5 {
		t.Fatalf("max retries = %d", cfg.Queue.DefaultMaxRetries)
	}
	if cfg.Processor.BaseURL != "https://processor.example.com" {
		t.Fatalf("base url = %q, trailing slash not trimmed", cfg.Processor.BaseURL)
	}
	if cfg.Sync.PollInterval != 30 {
		t.Fatalf("poll interval = %d", cfg.Sync.PollInterval)
	}
	// Unset sections keep their defaults.
	if cfg.Processor.UploadTimeout != 300 {
		t.Fatalf("upload timeout = %d", cfg.Processor.UploadTimeout)
	}
	if !filepath.IsAbs(cfg.Paths.LogDir) {
		t.Fatalf("log dir not expanded: %s", cfg.Paths.LogDir)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[queue]
default_max_retries = -1

[sync]
probe_address = "no-port"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "default_max_retries") {
		t.Fatalf("error missing retry problem: %v", err)
	}
	if !strings.Contains(err.Error(), "probe_address") {
		t.Fatalf("error missing probe problem: %v", err)
	}
}

func TestValidateRejectsBadURLs(t *testing.T) {
	cfg := config.Default()
	cfg.Processor.BaseURL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid base url")
	}

	cfg = config.Default()
	cfg.Notifications.WebhookURL = "://bad"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid webhook url")
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.BlobDir = filepath.Join(base, "blobs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.BlobDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory %s missing: %v", dir, err)
		}
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config not loadable: exists=%v err=%v", exists, err)
	}
}
