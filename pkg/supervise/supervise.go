// Package supervise manages the lifecycle of a single external OS process:
// it launches the command, observes its termination in a background
// goroutine, optionally relaunches it on exit, and provides graceful and
// forceful shutdown with confirmed-death guarantees.
package supervise

import (
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/psantana5/supervise/pkg/logging"
	"github.com/psantana5/supervise/pkg/metrics"
)

// Event records one state transition of a supervised process.
type Event struct {
	Time       time.Time `json:"time"`
	PID        int       `json:"pid"`
	State      State     `json:"state"`
	Returncode int       `json:"returncode"`
	Message    string    `json:"message,omitempty"`
}

// SupervisedProcess owns at most one live child process at a time. A
// monitor goroutine per spawned handle waits for exit and applies the
// restart policy; Terminate and Kill block until that goroutine has
// confirmed death.
//
// One mutex guards state, killRequested, pid, returncode and the handle.
// The killed channel is closed exactly once, when the machine enters
// Killed, and is what Terminate/Kill wait on.
type SupervisedProcess struct {
	name          string
	command       []string
	alwaysRestart bool
	log           *logging.Logger
	metrics       *metrics.Collector
	stdout        io.Writer
	stderr        io.Writer

	mu            sync.Mutex
	state         State
	handle        *exec.Cmd
	pid           int
	returncode    int
	killRequested bool
	killed        chan struct{}
	events        []Event
}

// Option configures a SupervisedProcess at construction.
type Option func(*SupervisedProcess)

// WithAlwaysRestart relaunches the child whenever it exits, regardless of
// exit code, until Terminate or Kill is called.
func WithAlwaysRestart() Option {
	return func(p *SupervisedProcess) { p.alwaysRestart = true }
}

// WithLogger sets the logger used for lifecycle diagnostics.
func WithLogger(log *logging.Logger) Option {
	return func(p *SupervisedProcess) { p.log = log }
}

// WithMetrics sets the collector lifecycle counters are recorded on.
func WithMetrics(c *metrics.Collector) Option {
	return func(p *SupervisedProcess) { p.metrics = c }
}

// WithOutput forwards the child's stdout and stderr to the given writers.
// Without it the child's output is discarded.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(p *SupervisedProcess) {
		p.stdout = stdout
		p.stderr = stderr
	}
}

// New creates a supervised process for command (program plus arguments).
// The name is used for diagnostics and metric labels only. Nothing is
// spawned until Start is called.
func New(name string, command []string, opts ...Option) *SupervisedProcess {
	p := &SupervisedProcess{
		name:    name,
		command: append([]string(nil), command...),
		state:   StateNotStarted,
		killed:  make(chan struct{}),
		log:     logging.NewLogger(logging.WARN, false),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the command if it is not already running. It is a no-op
// while the child is alive (the pid does not change) and fails with
// *KilledProcessError once the process has been killed. Start returns as
// soon as the child is spawned; exit observation and restart happen in
// the background.
func (p *SupervisedProcess) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateKilled:
		return &KilledProcessError{Name: p.name, Op: "start"}
	case StateRunning:
		return nil
	}

	return p.spawnLocked(false)
}

// spawnLocked starts a new child and hands it to a monitor goroutine.
// Callers must hold p.mu. On spawn failure the state is left unchanged.
func (p *SupervisedProcess) spawnLocked(restart bool) error {
	if len(p.command) == 0 {
		return ErrNoCommand
	}

	cmd := exec.Command(p.command[0], p.command[1:]...)
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr
	// New process group so Terminate reaches the child's descendants too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting process %q: %w", p.name, err)
	}

	p.handle = cmd
	p.pid = cmd.Process.Pid
	p.setStateLocked(StateRunning, fmt.Sprintf("pid %d started", p.pid))

	p.metrics.RecordSpawn(p.name)
	if restart {
		p.metrics.RecordRestart(p.name)
	}
	p.log.Info("process started", map[string]interface{}{
		"process": p.name,
		"pid":     p.pid,
		"restart": restart,
	})

	go p.monitor(cmd)
	return nil
}

// monitor waits for one spawned handle to exit and applies the restart
// policy. It runs detached and never raises into caller code: every exit,
// expected or not, is recorded in returncode and drives a transition.
func (p *SupervisedProcess) monitor(cmd *exec.Cmd) {
	rc := waitReturncode(cmd)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.returncode = rc
	p.metrics.RecordExit(p.name, string(ReasonFor(rc)))

	switch {
	case p.killRequested:
		exitedPID := p.pid
		p.handle = nil
		p.setStateLocked(StateKilled, fmt.Sprintf("pid %d exited with %d after kill request", exitedPID, rc))
		close(p.killed)
		p.log.Info("process killed", map[string]interface{}{
			"process":    p.name,
			"pid":        exitedPID,
			"returncode": rc,
		})
	case p.alwaysRestart:
		// killRequested was checked above under the same lock, so a kill
		// issued during the restart window can never spawn a new child.
		if err := p.spawnLocked(true); err != nil {
			p.handle = nil
			p.setStateLocked(StateExited, fmt.Sprintf("restart failed: %v", err))
			p.log.Error("restart failed", map[string]interface{}{
				"process": p.name,
				"error":   err.Error(),
			})
		}
	default:
		exitedPID := p.pid
		p.handle = nil
		p.setStateLocked(StateExited, fmt.Sprintf("pid %d exited with %d", exitedPID, rc))
		p.log.Info("process exited", map[string]interface{}{
			"process":    p.name,
			"pid":        exitedPID,
			"returncode": rc,
		})
	}
}

// Terminate sends SIGTERM to the child's process group and waits until the
// monitor goroutine has observed the exit, so callers never see Running
// after it returns. There is no automatic escalation to SIGKILL; callers
// that want one can follow up with Kill. Terminate is a no-op when the
// process is not running and fails with *KilledProcessError once killed.
func (p *SupervisedProcess) Terminate() error {
	return p.shutdown("terminate", syscall.SIGTERM, true)
}

// Kill sends SIGKILL directly to the child and waits for confirmed death.
// Preconditions and errors match Terminate.
func (p *SupervisedProcess) Kill() error {
	return p.shutdown("kill", syscall.SIGKILL, false)
}

func (p *SupervisedProcess) shutdown(op string, sig syscall.Signal, group bool) error {
	p.mu.Lock()
	if p.state == StateKilled {
		p.mu.Unlock()
		return &KilledProcessError{Name: p.name, Op: op}
	}
	if p.state != StateRunning {
		p.mu.Unlock()
		return nil
	}
	p.killRequested = true
	pid := p.pid
	killed := p.killed
	p.mu.Unlock()

	p.metrics.RecordSignal(p.name, SignalName(sig))
	p.log.Info("signaling process", map[string]interface{}{
		"process": p.name,
		"pid":     pid,
		"signal":  SignalName(sig),
	})

	if err := deliverSignal(pid, sig, group); err != nil {
		return fmt.Errorf("%s process %q: %w", op, p.name, err)
	}

	<-killed
	return nil
}

// deliverSignal sends sig to pid, or to pid's whole process group when
// group is set. A target that is already gone is not an error: the monitor
// goroutine still observes the exit and completes the transition.
func deliverSignal(pid int, sig syscall.Signal, group bool) error {
	target := pid
	if group {
		target = -pid
	}
	if err := syscall.Kill(target, sig); err != nil && err != syscall.ESRCH {
		return err
	}
	return nil
}

// setStateLocked transitions the machine and records the event. Callers
// must hold p.mu. The transition table is fixed; a violation is a bug.
func (p *SupervisedProcess) setStateLocked(to State, message string) {
	if err := ValidateTransition(p.state, to); err != nil {
		p.log.Error("invalid state transition", map[string]interface{}{
			"process": p.name,
			"error":   err.Error(),
		})
	}
	p.state = to
	p.events = append(p.events, Event{
		Time:       time.Now(),
		PID:        p.pid,
		State:      to,
		Returncode: p.returncode,
		Message:    message,
	})
	p.metrics.SetRunning(p.name, to == StateRunning)
}

// Name returns the process identity assigned at construction.
func (p *SupervisedProcess) Name() string {
	return p.name
}

// State returns the current lifecycle state.
func (p *SupervisedProcess) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Running reports whether the child is alive and its exit has not yet
// been observed.
func (p *SupervisedProcess) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == StateRunning
}

// Pid returns the child's process id. It is meaningful only while the
// process is running and changes on every restart.
func (p *SupervisedProcess) Pid() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// Returncode returns the last observed exit status: -N when the child was
// terminated by signal N, the exit code otherwise. It is meaningful only
// once the machine has reached Exited or Killed.
func (p *SupervisedProcess) Returncode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.returncode
}

// Events returns a copy of the recorded state transitions.
func (p *SupervisedProcess) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	events := make([]Event, len(p.events))
	copy(events, p.events)
	return events
}
