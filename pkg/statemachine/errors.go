package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDeclaration = errors.New("statemachine: transition needs from, to and event")
	ErrNoTransition       = errors.New("statemachine: transition not declared")
	ErrGuardRejected      = errors.New("statemachine: transition rejected by guard")
)

// TransitionError reports the state and event a lookup failed for.
// It unwraps to ErrNoTransition or ErrGuardRejected.
type TransitionError struct {
	From  string
	Event string
	Err   error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%v: %q on %q", e.Err, e.Event, e.From)
}

func (e *TransitionError) Unwrap() error { return e.Err }

func nameOf(v interface{ Name() string }) string {
	if v == nil {
		return "<nil>"
	}
	return v.Name()
}
