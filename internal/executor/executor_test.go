package executor

import (
	"bytes"
	"context"
	"runtime"
	"strings"
	"testing"
	"time"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test relies on POSIX shell tools")
	}
}

func TestRunCapturesStdout(t *testing.T) {
	skipOnWindows(t)

	res := Run(context.Background(), []string{"sh", "-c", "echo hello"}, 10*time.Second)
	if !res.Success {
		t.Fatalf("expected success, got exit %d stderr %q", res.ExitCode, res.Stderr)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("Stdout = %q, want hello", res.Stdout)
	}
}

func TestRunNonzeroExitIsNotAnError(t *testing.T) {
	skipOnWindows(t)

	res := Run(context.Background(), []string{"sh", "-c", "echo partial; exit 3"}, 10*time.Second)
	if res.Success {
		t.Fatal("expected Success=false for exit 3")
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if strings.TrimSpace(res.Stdout) != "partial" {
		t.Errorf("Stdout = %q, want partial output preserved", res.Stdout)
	}
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	skipOnWindows(t)

	start := time.Now()
	res := Run(context.Background(), []string{"sleep", "30"}, 200*time.Millisecond)
	if time.Since(start) > 5*time.Second {
		t.Fatal("run did not respect the timeout")
	}
	if !res.TimedOut {
		t.Error("expected TimedOut=true")
	}
	if res.Success {
		t.Error("expected Success=false on timeout")
	}
}

func TestRunMissingExecutable(t *testing.T) {
	res := Run(context.Background(), []string{"definitely-not-a-real-command-xyz"}, 5*time.Second)
	if res.Success {
		t.Fatal("expected failure for missing executable")
	}
	if res.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", res.ExitCode)
	}
}

func TestRunEmptyArgv(t *testing.T) {
	res := Run(context.Background(), nil, time.Second)
	if res.Success || res.ExitCode != -1 {
		t.Errorf("empty argv should fail, got %+v", res)
	}
}

func TestResolveOnPath(t *testing.T) {
	if ResolveOnPath("definitely-not-a-real-command-xyz") {
		t.Error("nonexistent command should not resolve")
	}
}

func TestLimitedWriterCapsOutput(t *testing.T) {
	var buf bytes.Buffer
	w := &limitedWriter{buf: &buf, limit: 8}

	n, err := w.Write([]byte("0123456789"))
	if err != nil || n != 10 {
		t.Fatalf("Write = %d/%v, want 10/nil", n, err)
	}
	if buf.String() != "01234567" {
		t.Errorf("buffer = %q, want truncated to limit", buf.String())
	}

	// Further writes are swallowed without error.
	if n, err := w.Write([]byte("abc")); err != nil || n != 3 {
		t.Errorf("overflow Write = %d/%v, want 3/nil", n, err)
	}
	if buf.Len() != 8 {
		t.Errorf("buffer grew past limit: %d", buf.Len())
	}
}
