package testsupport

import (
	"path/filepath"
	"testing"

	"wbgrab/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkspaceDir = filepath.Join(base, "workspace")
	cfg.Paths.DownloadsDir = filepath.Join(base, "downloads")
	cfg.Source.PageLoadWait = 1
	cfg.Source.FindTimeout = 1
	cfg.Download.Workers = 4
	cfg.Download.RetryBaseDelayMS = 1
	cfg.Download.RetryMaxDelayMS = 2
	cfg.Download.HTTPTimeout = 5

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure test directories: %v", err)
	}
	return &cfg
}

// WithWorkers overrides the fetch worker count on the test config.
func WithWorkers(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Download.Workers = n
	}
}

// WithSegmentRetries overrides the per-segment retry budget.
func WithSegmentRetries(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Download.SegmentRetries = n
	}
}
