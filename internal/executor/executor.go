// Package executor runs external package-manager commands with a bounded
// timeout and returns their output without ever failing on a nonzero exit.
package executor

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/updeck/updeck/internal/logging"
)

var log = logging.L("executor")

// MaxOutputSize is the maximum size of stdout/stderr to capture per stream.
const MaxOutputSize = 1024 * 1024 // 1MB

// Result is the outcome of one external command invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// Success is true when the process ran to completion with exit code 0.
	Success bool
	// TimedOut is true when the process was killed at the deadline.
	TimedOut bool
}

// RunFunc is the shape provider adapters depend on, so tests can substitute
// canned output for real package-manager invocations.
type RunFunc func(ctx context.Context, argv []string, timeout time.Duration) Result

// LookPathFunc resolves a command name on the search path.
type LookPathFunc func(name string) bool

// Run executes argv[0] with argv[1:] and waits at most timeout. A nonzero
// exit is reported through Result, not an error; only a command that cannot
// be started at all yields ExitCode -1 with empty output.
func Run(ctx context.Context, argv []string, timeout time.Duration) Result {
	if len(argv) == 0 {
		return Result{ExitCode: -1}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{buf: &stdout, limit: MaxOutputSize}
	cmd.Stderr = &limitedWriter{buf: &stderr, limit: MaxOutputSize}

	// Own process group so a timeout kills spawned children too.
	setProcessGroup(cmd)

	start := time.Now()
	err := cmd.Run()

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	switch {
	case err == nil:
		result.ExitCode = 0
		result.Success = true
	case runCtx.Err() != nil:
		if killErr := killProcessGroup(cmd); killErr != nil {
			log.Warn("failed to kill process group", "command", argv[0], "error", killErr)
		}
		result.ExitCode = -1
		result.TimedOut = errors.Is(runCtx.Err(), context.DeadlineExceeded)
		log.Warn("command timed out", "command", argv[0], "timeout", timeout)
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			// Start failure: executable missing, permission denied, etc.
			result.ExitCode = -1
		}
	}

	log.Debug("command finished",
		"command", argv[0],
		"exitCode", result.ExitCode,
		logging.KeyDurationMs, time.Since(start).Milliseconds(),
	)
	return result
}

// ResolveOnPath reports whether a command resolves on the search path.
// Resolution failure is never an error.
func ResolveOnPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// limitedWriter caps the number of bytes written to buf; overflow is
// silently discarded so a chatty installer cannot exhaust memory.
type limitedWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
