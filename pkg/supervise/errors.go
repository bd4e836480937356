package supervise

import (
	"errors"
	"fmt"
)

// ErrNoCommand is returned by Start when the process was constructed with
// an empty command.
var ErrNoCommand = errors.New("supervise: empty command")

// KilledProcessError reports a lifecycle operation invoked after the
// process reached its terminal Killed state.
type KilledProcessError struct {
	Name string // process identity
	Op   string // "start", "terminate" or "kill"
}

// Error implements error interface
func (e *KilledProcessError) Error() string {
	return fmt.Sprintf("cannot %s process %q: process has been killed", e.Op, e.Name)
}

// IsKilledProcess reports whether err is a KilledProcessError.
func IsKilledProcess(err error) bool {
	var killedErr *KilledProcessError
	return errors.As(err, &killedErr)
}
