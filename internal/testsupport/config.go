// Package testsupport provides shared helpers for package tests: temp-dir
// configs, store setup, and scripted processor fakes.
package testsupport

import (
	"path/filepath"
	"testing"

	"lexsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.BlobDir = filepath.Join(base, "blobs")
	cfg.Paths.SocketPath = filepath.Join(base, "lexsyncd.sock")
	cfg.Processor.BaseURL = "http://127.0.0.1:0"
	// Closed local port so connectivity probes fail fast without leaving
	// the machine.
	cfg.Sync.ProbeAddress = "127.0.0.1:9"
	cfg.Sync.ProbeTimeout = 1
	cfg.Sync.PollInterval = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMaxRetries overrides the default retry budget on the test config.
func WithMaxRetries(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Queue.DefaultMaxRetries = n
	}
}

// WithWebhook points the notification webhook at the given URL.
func WithWebhook(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Notifications.WebhookURL = url
	}
}
