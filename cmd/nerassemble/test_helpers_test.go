package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nerassemble/internal/testsupport"
)

// stubJava answers -version and otherwise acts as an identity NER tool that
// renames docid to annotated-id. Inputs whose scratch name starts with
// "fail-" produce the failure marker on stderr with exit status 0.
const stubJava = `#!/bin/sh
if [ "$1" = "-version" ]; then
  echo 'openjdk version "21.0.2" 2024-01-16' >&2
  exit 0
fi
case "$4" in
  */fail-*) echo 'Exception in thread "main" java.lang.RuntimeException' >&2; exit 0;;
esac
sed -e 's/docid=/annotated-id=/' "$4" > "$5"
`

type cliTestEnv struct {
	baseDir    string
	configPath string
	inputDir   string
	outputDir  string
	runnerDir  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("NERASSEMBLE_RUNNER_DIR", "")

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		inputDir:   filepath.Join(base, "corpus-in"),
		outputDir:  filepath.Join(base, "out"),
		runnerDir:  filepath.Join(base, "runner"),
	}
	for _, dir := range []string{env.inputDir, env.runnerDir, filepath.Join(base, "bin")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	java := filepath.Join(base, "bin", "java")
	if err := os.WriteFile(java, []byte(stubJava), 0o755); err != nil {
		t.Fatalf("write stub java: %v", err)
	}
	if err := os.WriteFile(filepath.Join(env.runnerDir, "runNER.jar"), []byte("PK"), 0o644); err != nil {
		t.Fatalf("write jar: %v", err)
	}

	cfg := fmt.Sprintf(`[paths]
scratch_dir = %q
state_dir = %q
log_dir = %q

[ner]
java_binary = %q

[corpus]
compression = "none"

[logging]
format = "json"
level = "error"
`, filepath.Join(base, "scratch"), filepath.Join(base, "state"), filepath.Join(base, "logs"), java)
	if err := os.WriteFile(env.configPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func (e *cliTestEnv) writeChunk(t *testing.T, name string, ids ...string) {
	t.Helper()
	testsupport.WriteChunk(t, filepath.Join(e.inputDir, name), ids...)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}
