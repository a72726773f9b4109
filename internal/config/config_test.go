package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"nerassemble/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("NERASSEMBLE_RUNNER_DIR", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "nerassemble")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.LedgerPath() != filepath.Join(wantState, "ledger.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.LedgerPath())
	}
	if !filepath.IsAbs(cfg.Paths.ScratchDir) {
		t.Fatalf("expected absolute scratch dir, got %q", cfg.Paths.ScratchDir)
	}
	if cfg.NER.Memory != "2048m" {
		t.Fatalf("unexpected memory default: %q", cfg.NER.Memory)
	}
	if cfg.NER.FailureMarker != "Exception" {
		t.Fatalf("unexpected failure marker: %q", cfg.NER.FailureMarker)
	}
	if cfg.NER.JarName != "runNER.jar" {
		t.Fatalf("unexpected jar name: %q", cfg.NER.JarName)
	}
	if cfg.Corpus.Compression != config.CompressionXZ {
		t.Fatalf("unexpected compression: %q", cfg.Corpus.Compression)
	}
	if !cfg.Workflow.SkipExisting || !cfg.Workflow.VerifyPublish {
		t.Fatal("expected skip_existing and verify_publish enabled by default")
	}
	if cfg.Workflow.HaltOnMergeError {
		t.Fatal("expected merge errors to be recoverable by default")
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "nerassemble.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"scratch_dir": "~/scratch",
			"state_dir":   "~/state",
		},
		"ner": map[string]any{
			"runner_dir":      "~/runner",
			"memory":          "-Xmx4g",
			"timeout_seconds": 90,
		},
		"corpus": map[string]any{
			"compression": "NONE",
		},
		"workflow": map[string]any{
			"halt_on_merge_error": true,
		},
		"logging": map[string]any{
			"format": "JSON",
			"level":  "debug",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config to be read from %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Paths.ScratchDir != filepath.Join(tempHome, "scratch") {
		t.Fatalf("unexpected scratch dir: %q", cfg.Paths.ScratchDir)
	}
	if cfg.NER.RunnerDir != filepath.Join(tempHome, "runner") {
		t.Fatalf("unexpected runner dir: %q", cfg.NER.RunnerDir)
	}
	if cfg.NER.Memory != "4g" {
		t.Fatalf("expected -Xmx prefix stripped, got %q", cfg.NER.Memory)
	}
	if cfg.NER.TimeoutSeconds != 90 {
		t.Fatalf("unexpected timeout: %d", cfg.NER.TimeoutSeconds)
	}
	if cfg.Corpus.Compression != config.CompressionNone {
		t.Fatalf("unexpected compression: %q", cfg.Corpus.Compression)
	}
	if !cfg.Workflow.HaltOnMergeError {
		t.Fatal("expected halt_on_merge_error override")
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if got := cfg.RunnerJarPath(""); got != filepath.Join(tempHome, "runner", "runNER.jar") {
		t.Fatalf("unexpected jar path: %q", got)
	}
	if got := cfg.RunnerJarPath("/opt/ner"); got != "/opt/ner/runNER.jar" {
		t.Fatalf("expected explicit runner dir to win, got %q", got)
	}
}

func TestRunnerDirFromEnvironment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	runner := t.TempDir()
	t.Setenv("NERASSEMBLE_RUNNER_DIR", runner)

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.NER.RunnerDir != runner {
		t.Fatalf("expected runner dir from env, got %q", cfg.NER.RunnerDir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"compression", func(c *config.Config) { c.Corpus.Compression = "gzip" }, "corpus.compression"},
		{"memory", func(c *config.Config) { c.NER.Memory = "lots" }, "ner.memory"},
		{"timeout", func(c *config.Config) { c.NER.TimeoutSeconds = -1 }, "ner.timeout_seconds"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestUnknownKeysRejected(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[ner]\nheap = \"2g\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected unknown key to fail parsing")
	}
}

func TestCreateSampleParses(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.NER.JavaBinary != "java" {
		t.Fatalf("unexpected java binary: %q", cfg.NER.JavaBinary)
	}
	if _, err := cfg.Encode(); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ScratchDir = filepath.Join(base, "scratch")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.ScratchDir, cfg.Paths.StateDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
