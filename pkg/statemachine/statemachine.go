package statemachine

import "context"

// State is anything identified by a stable name, typically a string enum.
type State interface {
	Name() string
}

// Event names a request to change state.
type Event interface {
	Name() string
}

// Guard vetoes a transition. data is whatever the caller passed to Next.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// StringState adapts a string constant to State.
type StringState string

func (s StringState) Name() string { return string(s) }

// StringEvent adapts a string constant to Event.
type StringEvent string

func (e StringEvent) Name() string { return string(e) }

type edge struct {
	to     State
	guards []Guard
}

func (e edge) allows(ctx context.Context, from State, event Event, data any) bool {
	for _, g := range e.guards {
		if !g(ctx, from, event, data) {
			return false
		}
	}
	return true
}
