package nertool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nerassemble/internal/fileutil"
	"nerassemble/internal/logging"
	"nerassemble/internal/services"
)

const stage = "ner"

// Executor abstracts command execution for testability. Implementations must
// copy the child's stdout and stderr to the supplied writers until EOF before
// returning.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, stdout, stderr io.Writer) error
}

// Config describes how the runner jar is invoked.
type Config struct {
	JavaBinary    string
	JarPath       string
	Memory        string
	FailureMarker string
	Timeout       time.Duration
}

// Result describes a successful run.
type Result struct {
	OutputPath string
	Elapsed    time.Duration
	StderrTail string
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger sets the logger used for tool stdout and diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client wraps runner jar invocations.
type Client struct {
	cfg    Config
	exec   Executor
	logger *slog.Logger
}

// New constructs a client.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.JavaBinary = strings.TrimSpace(cfg.JavaBinary)
	cfg.JarPath = strings.TrimSpace(cfg.JarPath)
	if cfg.JavaBinary == "" {
		return nil, services.Wrap(services.ErrConfiguration, stage, "configure", "java binary required", nil)
	}
	if cfg.JarPath == "" {
		return nil, services.Wrap(services.ErrConfiguration, stage, "configure", "runner jar path required", nil)
	}
	cfg.Memory = strings.TrimPrefix(strings.TrimSpace(cfg.Memory), "-Xmx")
	if cfg.FailureMarker == "" {
		cfg.FailureMarker = "Exception"
	}
	client := &Client{
		cfg:    cfg,
		exec:   commandExecutor{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Args returns the argument vector passed to the java binary.
func (c *Client) Args(inputPath, outputPath string) []string {
	args := make([]string, 0, 5)
	if c.cfg.Memory != "" {
		args = append(args, "-Xmx"+c.cfg.Memory)
	}
	return append(args, "-jar", c.cfg.JarPath, inputPath, outputPath)
}

// Run invokes the tool on inputPath, writing its annotations to outputPath.
func (c *Client) Run(ctx context.Context, inputPath, outputPath string) (Result, error) {
	if inputPath == "" || outputPath == "" {
		return Result{}, errors.New("input and output paths required")
	}
	// A stale output from an interrupted attempt must never be mistaken for
	// this run's result.
	if err := fileutil.RemoveIfExists(outputPath); err != nil {
		return Result{}, fmt.Errorf("remove stale ner output: %w", err)
	}

	runCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	logger := logging.WithContext(ctx, c.logger)
	stderr := newMarkerWriter(c.cfg.FailureMarker, stderrTailLimit)
	stdout := &lineLogger{logger: logger, name: filepath.Base(c.cfg.JarPath)}
	args := c.Args(inputPath, outputPath)

	logger.Debug("starting ner tool", logging.String("binary", c.cfg.JavaBinary), logging.Any("args", args))
	start := time.Now()
	runErr := c.exec.Run(runCtx, c.cfg.JavaBinary, args, stdout, stderr)
	stdout.flush()
	elapsed := time.Since(start)
	tail := stderr.Tail()

	switch {
	case ctx.Err() != nil:
		return Result{}, ctx.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return Result{}, services.Wrap(services.ErrTimeout, stage, "run",
			fmt.Sprintf("no result after %s", c.cfg.Timeout), runErr)
	case stderr.Found():
		return Result{}, services.Wrap(services.ErrExternalTool, stage, "run",
			fmt.Sprintf("stderr contains %q: %s", c.cfg.FailureMarker, summarize(tail)), runErr)
	case runErr != nil:
		return Result{}, services.Wrap(services.ErrExternalTool, stage, "run", summarize(tail), runErr)
	}

	if _, err := os.Stat(outputPath); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, stage, "run", "tool produced no output file", err)
	}
	return Result{OutputPath: outputPath, Elapsed: elapsed, StderrTail: tail}, nil
}

func summarize(tail string) string {
	tail = strings.TrimSpace(tail)
	if tail == "" {
		return "no stderr output"
	}
	lines := strings.Split(tail, "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return strings.Join(lines, " | ")
}
