//go:build windows

package executor

import "os/exec"

// setProcessGroup is a no-op on Windows; winget and PowerShell manage
// their own child processes.
func setProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills the process itself on Windows.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
