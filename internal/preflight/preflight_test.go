package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nerassemble/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDirectoryReadable_Empty(t *testing.T) {
	if result := CheckDirectoryReadable("input", " "); result.Passed || result.Detail != "not configured" {
		t.Fatalf("unexpected result %#v", result)
	}
}

func TestCheckRunnerJar(t *testing.T) {
	dir := t.TempDir()
	jar := filepath.Join(dir, "runNER.jar")
	if result := CheckRunnerJar(jar); result.Passed {
		t.Fatal("expected failure for missing jar")
	}
	if err := os.WriteFile(jar, []byte("PK"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckRunnerJar(jar); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if result := CheckRunnerJar(dir); result.Passed {
		t.Fatal("expected failure for directory")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("scratch", dir, 1); !result.Passed {
		t.Fatalf("expected pass with tiny requirement, got %s", result.Detail)
	}
	if result := CheckFreeSpace("scratch", dir, 1<<62); result.Passed {
		t.Fatal("expected failure with absurd requirement")
	}
	if result := CheckFreeSpace("scratch", filepath.Join(dir, "missing"), 1); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithRunnerJar(),
		testsupport.WithStubbedJava("echo 'openjdk version \"21\"' >&2\n"),
	)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	input := t.TempDir()
	output := t.TempDir()

	results := RunAll(context.Background(), cfg, Targets{InputDir: input, OutputDir: output})
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d", len(results))
	}
	if err := Failed(results); err != nil {
		t.Fatalf("expected all checks to pass: %v", err)
	}
	if !strings.Contains(results[0].Detail, "21") {
		t.Fatalf("java detail = %q", results[0].Detail)
	}

	results = RunAll(context.Background(), cfg, Targets{RunnerDir: t.TempDir()})
	err := Failed(results)
	if err == nil || !strings.Contains(err.Error(), "Runner jar") {
		t.Fatalf("expected runner jar failure, got %v", err)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[uint64]string{
		512:     "512 B",
		2048:    "2.0 KiB",
		5 << 20: "5.0 MiB",
		3 << 30: "3.0 GiB",
	}
	for in, want := range tests {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
