package organization

import (
	"context"
	"errors"

	"github.com/beautydesk/backoffice/pkg/statemachine"
)

// Lifecycle events driving status transitions.
const (
	EventActivate   = statemachine.StringEvent("activate")
	EventSuspend    = statemachine.StringEvent("suspend")
	EventCancel     = statemachine.StringEvent("cancel")
	EventChangePlan = statemachine.StringEvent("change_plan")
)

// transitions is the single declaration of allowed status changes.
// CANCELLED only leaves through activate, i.e. a new subscription.
var transitions = statemachine.MustNew(
	statemachine.WithFanIn(
		[]statemachine.State{StatusTrial, StatusSuspended, StatusActive, StatusCancelled},
		StatusActive, EventActivate),
	statemachine.WithFanIn(
		[]statemachine.State{StatusActive, StatusTrial},
		StatusSuspended, EventSuspend),
	statemachine.WithFanIn(
		[]statemachine.State{StatusTrial, StatusActive, StatusSuspended},
		StatusCancelled, EventCancel),
	statemachine.WithTransition(StatusTrial, StatusTrial, EventChangePlan),
	statemachine.WithTransition(StatusActive, StatusActive, EventChangePlan),
)

// nextStatus validates event against the current status.
func nextStatus(from Status, event statemachine.Event) (Status, error) {
	to, err := transitions.Next(context.Background(), from, event, nil)
	if err != nil {
		return from, errors.Join(ErrInvalidTransition, err)
	}
	return to.(Status), nil
}

// CanTransition reports whether event is accepted in status from.
func CanTransition(from Status, event statemachine.Event) bool {
	return transitions.CanFire(context.Background(), from, event, nil)
}

// AllowedEvents lists the events accepted in status s.
func AllowedEvents(s Status) []string {
	return transitions.Events(s)
}
