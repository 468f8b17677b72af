package transcode

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// maxErrorLines is how many trailing stderr lines are kept for error messages.
const maxErrorLines = 5

// Runner executes an external tool.
type Runner interface {
	// Run starts name with args, passes every stderr line to onLine and
	// waits for the process to exit.
	Run(ctx context.Context, name string, args []string, onLine func(string)) error
	// Output runs name with args and returns its standard output.
	Output(ctx context.Context, name string, args []string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, name, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}

	var tail []string
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if onLine != nil {
			onLine(line)
		}
		if line != "" && !strings.Contains(line, "=") {
			tail = append(tail, line)
			if len(tail) > maxErrorLines {
				tail = tail[1:]
			}
		}
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(tail) > 0 {
			return fmt.Errorf("%s: %w: %s", name, err, strings.Join(tail, "; "))
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (execRunner) Output(ctx context.Context, name string, args []string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
