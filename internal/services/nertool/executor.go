package nertool

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// waitDelay bounds how long Wait keeps draining pipes after the process is
// killed because its context ended.
const waitDelay = 10 * time.Second

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.WaitDelay = waitDelay
	outPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	errPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var copyErr error
	var once sync.Once
	drain := func(dst io.Writer, src io.Reader) {
		defer wg.Done()
		if _, err := io.Copy(dst, src); err != nil {
			once.Do(func() { copyErr = err })
		}
	}
	wg.Add(2)
	go drain(stdout, outPipe)
	go drain(stderr, errPipe)
	wg.Wait()

	waitErr := cmd.Wait()
	if copyErr != nil {
		return fmt.Errorf("drain output: %w", copyErr)
	}
	if waitErr != nil {
		return fmt.Errorf("wait command: %w", waitErr)
	}
	return nil
}
