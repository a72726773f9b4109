package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"nerassemble/internal/config"
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
	cfgVal.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.NER.RunnerDir = filepath.Join(base, "runner")
	cfgVal.Corpus.Compression = config.CompressionNone

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

// WithCompression overrides the chunk compression on the test config.
func WithCompression(compression string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Corpus.Compression = compression
	}
}

// WithRunnerJar creates an empty runner jar in the configured runner dir.
func WithRunnerJar() ConfigOption {
	return func(b *configBuilder) {
		if err := os.MkdirAll(b.cfg.NER.RunnerDir, 0o755); err != nil {
			b.t.Fatalf("mkdir runner dir: %v", err)
		}
		jar := filepath.Join(b.cfg.NER.RunnerDir, b.cfg.NER.JarName)
		if err := os.WriteFile(jar, []byte("PK"), 0o644); err != nil {
			b.t.Fatalf("write jar: %v", err)
		}
	}
}

// WithStubbedJava writes a stub java executable that runs script and prepends
// it to PATH. An empty script exits 0.
func WithStubbedJava(script string) ConfigOption {
	return func(b *configBuilder) {
		if script == "" {
			script = "exit 0\n"
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "java")
		if err := os.WriteFile(target, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
			b.t.Fatalf("write stub java: %v", err)
		}
		b.cfg.NER.JavaBinary = target
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
