package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultShell is the interpreter used when none is configured.
const DefaultShell = "/bin/sh"

// waitDelay bounds how long Wait keeps draining output after a kill.
const waitDelay = 250 * time.Millisecond

// ErrSpawn marks failures to start the interpreter at all.
var ErrSpawn = errors.New("tools: spawn failed")

// CommandRunner abstracts shell command execution for the executor.
type CommandRunner interface {
	// Run executes line and streams its stdout and stderr into out. exitCode
	// is only meaningful when err is nil or an *exec.ExitError.
	Run(ctx context.Context, line string, out io.Writer) (exitCode int, err error)
}

// ShellRunner executes command lines through a shell on the local host.
type ShellRunner struct {
	Shell string
}

// tools command-runner implementation backed by os/exec.
func (r ShellRunner) Run(ctx context.Context, line string, out io.Writer) (int, error) {
	shell := r.Shell
	if shell == "" {
		shell = DefaultShell
	}

	cmd := exec.CommandContext(ctx, shell, "-c", line)
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return killGroup(cmd)
	}
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		return 127, fmt.Errorf("%w: %w", ErrSpawn, err)
	}

	err := cmd.Wait()
	// Background children outlive the shell and may still hold the pipe.
	_ = reapGroup(cmd.Process.Pid)

	switch {
	case err == nil:
		return 0, nil
	case errors.Is(err, exec.ErrWaitDelay):
		// The shell exited cleanly; only the output pipe stayed open.
		return cmd.ProcessState.ExitCode(), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitCode(exitErr), err
	}
	return 1, err
}

// killGroup terminates the shell and every child it spawned.
func killGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}

// reapGroup kills whatever is left in the process group led by pgid. An
// already empty group is not an error.
func reapGroup(pgid int) error {
	err := unix.Kill(-pgid, unix.SIGKILL)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}

func exitCode(exitErr *exec.ExitError) int {
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	return exitErr.ExitCode()
}
