package supervise

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
)

// ExitReason classifies an observed child exit
type ExitReason string

const (
	ExitReasonSuccess ExitReason = "success" // Exit code 0
	ExitReasonError   ExitReason = "error"   // Exit code != 0
	ExitReasonSignal  ExitReason = "signal"  // Killed by signal
)

// ReasonFor classifies a returncode in the negative-signal convention.
func ReasonFor(returncode int) ExitReason {
	switch {
	case returncode == 0:
		return ExitReasonSuccess
	case returncode < 0:
		return ExitReasonSignal
	default:
		return ExitReasonError
	}
}

// waitReturncode blocks until cmd exits and returns its status using the
// negative-signal convention: a child terminated by signal N yields -N,
// a normal exit yields the non-negative exit code.
func waitReturncode(cmd *exec.Cmd) int {
	err := cmd.Wait()
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return -int(status.Signal())
		}
		return exitErr.ExitCode()
	}

	// Wait can fail for non-exit reasons (stdio copy errors); report a
	// generic failure code.
	return 1
}

// SignalName returns the signal name for a signal number
func SignalName(sig syscall.Signal) string {
	switch sig {
	case syscall.SIGKILL:
		return "SIGKILL"
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGHUP:
		return "SIGHUP"
	case syscall.SIGQUIT:
		return "SIGQUIT"
	default:
		return fmt.Sprintf("SIG%d", sig)
	}
}
