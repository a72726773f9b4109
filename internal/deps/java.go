package deps

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

var javaVersionPattern = regexp.MustCompile(`version "([^"]+)"`)

// CheckJava resolves the java binary and reports the runtime version it
// prints for -version. The version probe is best effort: a binary that is
// found but cannot report a version is still available.
func CheckJava(ctx context.Context, binary string) Status {
	status := checkBinary(Requirement{
		Name:        "Java",
		Command:     binary,
		Description: "Runs the NER runner jar",
	})
	if !status.Available {
		return status
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	var out bytes.Buffer
	cmd := exec.CommandContext(probeCtx, status.Command, "-version") //nolint:gosec
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		status.Detail = fmt.Sprintf("version probe failed: %v", err)
		return status
	}
	status.Detail = ParseJavaVersion(out.String())
	return status
}

// ParseJavaVersion extracts the quoted version from `java -version` output.
// It falls back to the first output line.
func ParseJavaVersion(output string) string {
	if match := javaVersionPattern.FindStringSubmatch(output); match != nil {
		return match[1]
	}
	first, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(first)
}
