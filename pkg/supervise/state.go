package supervise

import "fmt"

// State is the lifecycle state of a supervised process.
type State string

const (
	StateNotStarted State = "not_started" // Constructed, never started
	StateRunning    State = "running"     // Child process is alive
	StateExited     State = "exited"      // Child exited on its own, no restart pending
	StateKilled     State = "killed"      // Died after Terminate/Kill; terminal
)

// validTransitions maps from-state to allowed to-states
var validTransitions = map[State]map[State]bool{
	StateNotStarted: {
		StateRunning: true, // NotStarted → Running (first start)
	},
	StateRunning: {
		StateRunning: true, // Running → Running (restart with a new handle)
		StateExited:  true, // Running → Exited (exit without restart)
		StateKilled:  true, // Running → Killed (exit after kill request)
	},
	StateExited: {
		StateRunning: true, // Exited → Running (explicit restart request)
	},
	// Terminal state (no transitions allowed)
	StateKilled: {},
}

// ValidateTransition checks if a state transition is valid
func ValidateTransition(from, to State) error {
	allowedStates, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("unknown source state: %s", from)
	}

	if !allowedStates[to] {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}

	return nil
}

// IsTerminal returns true if the state accepts no further transitions.
// Only Killed is terminal: an Exited process may be started again.
func IsTerminal(state State) bool {
	return state == StateKilled
}

// IsSettled returns true once the machine has stopped running and no
// restart is pending.
func IsSettled(state State) bool {
	return state == StateExited || state == StateKilled
}
