// Package statemachine declares which events each state accepts.
//
//	var table = statemachine.MustNew(
//		statemachine.WithTransition(Trial, Active, Activate),
//		statemachine.WithFanIn([]statemachine.State{Trial, Active}, Cancelled, Cancel),
//	)
//
//	next, err := table.Next(ctx, current, Activate, nil)
//	if errors.Is(err, statemachine.ErrNoTransition) {
//		// the event is not allowed in current
//	}
//
// Guards make a declared transition conditional on runtime data. Side effects
// belong to the caller, which persists the returned state.
package statemachine
