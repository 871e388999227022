package organization_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/beautydesk/backoffice/pkg/organization"
	"github.com/beautydesk/backoffice/pkg/plan"
	"github.com/beautydesk/backoffice/pkg/statemachine"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from  organization.Status
		event string
		want  bool
	}{
		{organization.StatusTrial, "activate", true},
		{organization.StatusTrial, "suspend", true},
		{organization.StatusTrial, "change_plan", true},
		{organization.StatusActive, "suspend", true},
		{organization.StatusActive, "change_plan", true},
		{organization.StatusSuspended, "activate", true},
		{organization.StatusSuspended, "suspend", false},
		{organization.StatusSuspended, "change_plan", false},
		{organization.StatusCancelled, "activate", true},
		{organization.StatusCancelled, "cancel", false},
		{organization.StatusCancelled, "suspend", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+tt.event, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, organization.CanTransition(tt.from, eventByName(tt.event)))
		})
	}
}

func eventByName(name string) statemachine.Event {
	switch name {
	case "activate":
		return organization.EventActivate
	case "suspend":
		return organization.EventSuspend
	case "cancel":
		return organization.EventCancel
	default:
		return organization.EventChangePlan
	}
}

func TestAllowedEvents(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"activate"}, organization.AllowedEvents(organization.StatusCancelled))
	assert.Equal(t, []string{"activate", "cancel"}, organization.AllowedEvents(organization.StatusSuspended))
}

func TestOrganization_EffectivePlan(t *testing.T) {
	t.Parallel()

	at := t0.Add(24 * time.Hour)
	pending := plan.Solo
	o := organization.Organization{Plan: plan.Team, PendingPlan: &pending, PendingPlanAt: &at}

	assert.Equal(t, plan.Team, o.EffectivePlan(at.Add(-time.Second)))
	assert.Equal(t, plan.Solo, o.EffectivePlan(at))
}

func TestOrganization_TrialDaysLeft(t *testing.T) {
	t.Parallel()

	end := t0.AddDate(0, 0, 30)
	o := organization.Organization{Status: organization.StatusTrial, TrialEndsAt: &end}

	assert.Equal(t, 30, o.TrialDaysLeft(t0))
	assert.Equal(t, 5, o.TrialDaysLeft(t0.AddDate(0, 0, 25)))
	assert.Equal(t, 1, o.TrialDaysLeft(end.Add(-time.Hour)))
	assert.Equal(t, 0, o.TrialDaysLeft(end))

	o.Status = organization.StatusActive
	assert.Equal(t, 0, o.TrialDaysLeft(t0))
}
