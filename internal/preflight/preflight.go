package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"nerassemble/internal/config"
	"nerassemble/internal/deps"
)

// minScratchFree is the free space the scratch filesystem must offer. The
// intermediate and NER files for one chunk are held there at once.
const minScratchFree = 256 << 20

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Targets names the directories of one batch. Empty fields are not checked.
type Targets struct {
	InputDir  string
	OutputDir string
	RunnerDir string
}

// RunAll executes every preflight check for cfg and targets.
func RunAll(ctx context.Context, cfg *config.Config, targets Targets) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckJava(ctx, cfg.NER.JavaBinary))

	runnerDir := targets.RunnerDir
	if runnerDir == "" {
		runnerDir = cfg.NER.RunnerDir
	}
	results = append(results, CheckRunnerJar(cfg.RunnerJarPath(runnerDir)))

	if targets.InputDir != "" {
		results = append(results, CheckDirectoryReadable("Input directory", targets.InputDir))
	}
	if targets.OutputDir != "" {
		results = append(results, CheckDirectoryAccess("Output directory", targets.OutputDir))
	}
	results = append(results,
		CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir),
		CheckFreeSpace("Scratch free space", cfg.Paths.ScratchDir, minScratchFree),
	)
	return results
}

// Failed joins the details of every failed result, or returns nil.
func Failed(results []Result) error {
	var errs []error
	for _, r := range results {
		if !r.Passed {
			errs = append(errs, fmt.Errorf("%s: %s", r.Name, r.Detail))
		}
	}
	return errors.Join(errs...)
}

// CheckJava verifies the java binary resolves and reports its version.
func CheckJava(ctx context.Context, binary string) Result {
	status := deps.CheckJava(ctx, binary)
	if !status.Available {
		return Result{Name: status.Name, Detail: status.Detail}
	}
	detail := status.Command
	if status.Detail != "" {
		detail = fmt.Sprintf("%s (%s)", status.Command, status.Detail)
	}
	return Result{Name: status.Name, Passed: true, Detail: detail}
}

// CheckRunnerJar verifies the runner jar exists and is readable.
func CheckRunnerJar(path string) Result {
	const name = "Runner jar"
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.Mode().IsRegular() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a regular file)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckDirectoryReadable verifies that the directory exists and can be listed.
func CheckDirectoryReadable(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "read ok")
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// CheckFreeSpace verifies the filesystem holding path has at least minBytes
// available to unprivileged users.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := uint64(stat.Bavail) * uint64(stat.Bsize) //nolint:gosec
	detail := fmt.Sprintf("%s free", formatBytes(free))
	if free < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s, need %s", detail, formatBytes(minBytes))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
