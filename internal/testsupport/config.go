package testsupport

import (
	"path/filepath"
	"testing"

	"sfgproc/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithGridFile writes an axis file holding the given wavenumbers and points
// the config at it, adjusting the expected length to match.
func WithGridFile(wavenumbers []float64) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "grid.txt")
		WriteGridFile(b.t, path, wavenumbers)
		b.cfg.Grid.File = path
		b.cfg.Grid.Length = len(wavenumbers)
	}
}

// WithPadding replaces the padding table on the test config.
func WithPadding(padding map[string][]int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Padding = padding
	}
}

// WithBackgroundPolicy sets the ambiguous-background policy on the test config.
func WithBackgroundPolicy(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Background.Policy = policy
	}
}

// WithSmoothingDisabled turns off the smoothing stage on the test config.
func WithSmoothingDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Smoothing.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
