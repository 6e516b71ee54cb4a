package surface

import (
	"errors"
	"fmt"
)

// ErrInvalidState is returned when an operation is not allowed in the
// instance's current state.
var ErrInvalidState = errors.New("invalid surface state")

// State is the lifecycle stage of an Instance.
type State int

const (
	// Idle instances have not started generating.
	Idle State = iota
	// Generating instances are running the solvers.
	Generating
	// Ready instances have an uploaded mesh.
	Ready
	// Canceled instances were destroyed while generating.
	Canceled
	// Failed instances hit a solver or upload error.
	Failed
	// Destroyed instances are torn down and accept no operation.
	Destroyed
)

var stateNames = [...]string{
	Idle:       "idle",
	Generating: "generating",
	Ready:      "ready",
	Canceled:   "canceled",
	Failed:     "failed",
	Destroyed:  "destroyed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

func invalid(op string, s State) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidState, op, s)
}
