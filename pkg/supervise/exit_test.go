package supervise

import (
	"os/exec"
	"syscall"
	"testing"
)

func TestReasonFor(t *testing.T) {
	tests := []struct {
		name       string
		returncode int
		expected   ExitReason
	}{
		{"clean exit", 0, ExitReasonSuccess},
		{"failure exit", 1, ExitReasonError},
		{"large failure exit", 127, ExitReasonError},
		{"killed by SIGKILL", -9, ExitReasonSignal},
		{"killed by SIGTERM", -15, ExitReasonSignal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReasonFor(tt.returncode); got != tt.expected {
				t.Errorf("ReasonFor(%d) = %s, want %s", tt.returncode, got, tt.expected)
			}
		})
	}
}

func TestSignalName(t *testing.T) {
	tests := []struct {
		sig      syscall.Signal
		expected string
	}{
		{syscall.SIGKILL, "SIGKILL"},
		{syscall.SIGTERM, "SIGTERM"},
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGHUP, "SIGHUP"},
		{syscall.SIGQUIT, "SIGQUIT"},
		{syscall.SIGUSR1, "SIG10"},
	}

	for _, tt := range tests {
		if got := SignalName(tt.sig); got != tt.expected {
			t.Errorf("SignalName(%d) = %s, want %s", tt.sig, got, tt.expected)
		}
	}
}

func TestWaitReturncodeExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected int
	}{
		{"exit zero", []string{"/bin/sh", "-c", "exit 0"}, 0},
		{"exit three", []string{"/bin/sh", "-c", "exit 3"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(tt.args[0], tt.args[1:]...)
			if err := cmd.Start(); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			if got := waitReturncode(cmd); got != tt.expected {
				t.Errorf("waitReturncode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestWaitReturncodeSignaled(t *testing.T) {
	cmd := exec.Command("/bin/sh", "-c", "sleep 10")
	if err := cmd.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := cmd.Process.Kill(); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}
	if got, want := waitReturncode(cmd), -int(syscall.SIGKILL); got != want {
		t.Errorf("waitReturncode() = %d, want %d", got, want)
	}
}
