package statemachine

import (
	"context"
	"fmt"
	"sort"
)

// Table is an immutable transition table. It holds no current state: callers
// pass the state they loaded and persist the state Next returns, so one Table
// is shared by every goroutine without locking.
type Table struct {
	edges map[string]map[string][]edge
}

// Option declares transitions while building a Table.
type Option func(*Table) error

// New builds a table from declarations.
func New(opts ...Option) (*Table, error) {
	t := &Table{edges: make(map[string]map[string][]edge)}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustNew is New for package-level tables. Panics on an invalid declaration.
func MustNew(opts ...Option) *Table {
	t, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// WithTransition declares from --event--> to. Declaring the same from/event
// pair again adds an alternative; the first one whose guards pass wins.
func WithTransition(from, to State, event Event, guards ...Guard) Option {
	return func(t *Table) error {
		if from == nil || to == nil || event == nil {
			return fmt.Errorf("%w: %s --%s--> %s", ErrInvalidDeclaration, nameOf(from), nameOf(event), nameOf(to))
		}
		byEvent, ok := t.edges[from.Name()]
		if !ok {
			byEvent = make(map[string][]edge)
			t.edges[from.Name()] = byEvent
		}
		e := edge{to: to}
		for _, g := range guards {
			if g != nil {
				e.guards = append(e.guards, g)
			}
		}
		byEvent[event.Name()] = append(byEvent[event.Name()], e)
		return nil
	}
}

// WithFanIn declares the same event leading to one state from several states.
func WithFanIn(froms []State, to State, event Event, guards ...Guard) Option {
	return func(t *Table) error {
		for _, from := range froms {
			if err := WithTransition(from, to, event, guards...)(t); err != nil {
				return err
			}
		}
		return nil
	}
}

// Next returns the state event leads to from from. On failure it returns
// from and a *TransitionError.
func (t *Table) Next(ctx context.Context, from State, event Event, data any) (State, error) {
	if from == nil || event == nil {
		return from, &TransitionError{From: nameOf(from), Event: nameOf(event), Err: ErrNoTransition}
	}

	candidates := t.edges[from.Name()][event.Name()]
	if len(candidates) == 0 {
		return from, &TransitionError{From: from.Name(), Event: event.Name(), Err: ErrNoTransition}
	}
	for _, e := range candidates {
		if e.allows(ctx, from, event, data) {
			return e.to, nil
		}
	}
	return from, &TransitionError{From: from.Name(), Event: event.Name(), Err: ErrGuardRejected}
}

// CanFire reports whether Next would succeed.
func (t *Table) CanFire(ctx context.Context, from State, event Event, data any) bool {
	_, err := t.Next(ctx, from, event, data)
	return err == nil
}

// Events lists the event names declared for from, sorted. Guards are not evaluated.
func (t *Table) Events(from State) []string {
	if from == nil {
		return nil
	}
	byEvent := t.edges[from.Name()]
	out := make([]string, 0, len(byEvent))
	for name := range byEvent {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Terminal reports whether from has no outgoing transition at all.
func (t *Table) Terminal(from State) bool {
	return from == nil || len(t.edges[from.Name()]) == 0
}
