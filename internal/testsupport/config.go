package testsupport

import (
	"path/filepath"
	"testing"

	"gantry/internal/config"
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
	cfgVal.Paths.WebUIDir = filepath.Join(base, "webui")
	cfgVal.Paths.ModelsDir = filepath.Join(base, "models")
	cfgVal.Paths.OutputDirs = []string{filepath.Join(base, "outputs")}
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.WebUI.Python = "/bin/sh"
	cfgVal.WebUI.LaunchScript = filepath.Join(base, "webui", "launch.py")
	cfgVal.Probe.IntervalSeconds = 1
	cfgVal.Probe.MaxAttempts = 1
	cfgVal.Bridge.PollInterval = 1
	cfgVal.Bridge.JobTimeout = 5
	cfgVal.Bridge.ResultPollInterval = 1

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

// WithOutputDirs overrides the rendered output scan roots.
func WithOutputDirs(dirs ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.OutputDirs = dirs
	}
}

// WithUpload configures blob storage on the test config.
func WithUpload(base, token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Upload.BlobBase = base
		b.cfg.Upload.BlobToken = token
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
