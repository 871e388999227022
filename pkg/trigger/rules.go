package trigger

import (
	"strconv"
	"time"

	"github.com/beautydesk/backoffice/pkg/organization"
)

// rule decides whether a trigger is due and for which window.
type rule struct {
	key         Key
	class       Class
	description string
	due         func(now time.Time, s Snapshot, last *Firing) (window time.Time, ok bool)
}

// rules are evaluated in this order; Evaluate output follows it.
var rules = []rule{
	onboarding(OnboardingDay1, 1),
	onboarding(OnboardingDay7, 7),
	onboarding(OnboardingDay15, 15),
	{
		key:         TrialEndingSoon,
		class:       Once,
		description: "trial ends within 5 days",
		due: func(now time.Time, s Snapshot, _ *Firing) (time.Time, bool) {
			if s.Status != organization.StatusTrial || s.TrialEndsAt == nil {
				return time.Time{}, false
			}
			left := s.TrialEndsAt.Sub(now)
			return time.Time{}, left > 0 && left <= TrialEndingWindow
		},
	},
	{
		key:         TrialExpired,
		class:       Once,
		description: "trial ended without a paid subscription",
		due: func(now time.Time, s Snapshot, _ *Firing) (time.Time, bool) {
			if s.Status != organization.StatusTrial || s.TrialEndsAt == nil {
				return time.Time{}, false
			}
			return time.Time{}, !now.Before(*s.TrialEndsAt)
		},
	},
	{
		key:         NoLogin7Days,
		class:       Rearmable,
		description: "no login for 7 days; re-arms after a new login and a 7-day cool-down",
		due: func(now time.Time, s Snapshot, last *Firing) (time.Time, bool) {
			if s.Status == organization.StatusCancelled {
				return time.Time{}, false
			}
			window := s.activityStart()
			if now.Sub(window) < InactivityThreshold {
				return time.Time{}, false
			}
			if last == nil {
				return window, true
			}
			if !last.Window.Before(window) {
				return time.Time{}, false
			}
			return window, now.Sub(last.SentAt) >= InactivityCooldown
		},
	},
	{
		key:         SubscriptionActive60,
		class:       Once,
		description: "60 days of continuous paid subscription",
		due: func(now time.Time, s Snapshot, _ *Firing) (time.Time, bool) {
			if s.Status != organization.StatusActive || s.ActivatedAt == nil {
				return time.Time{}, false
			}
			return time.Time{}, now.Sub(*s.ActivatedAt) >= RetentionAge
		},
	},
	{
		key:         CancellationFarewell,
		class:       Once,
		description: "cancelled within the last 7 days",
		due: func(now time.Time, s Snapshot, _ *Firing) (time.Time, bool) {
			if s.Status != organization.StatusCancelled || s.CancelledAt == nil {
				return time.Time{}, false
			}
			since := now.Sub(*s.CancelledAt)
			return time.Time{}, since >= 0 && since < FarewellWindow
		},
	},
}

// onboarding triggers are age-based and never fire for cancelled organizations.
func onboarding(k Key, days int) rule {
	return rule{
		key:         k,
		class:       Once,
		description: "organization is " + strconv.Itoa(days) + " day(s) old",
		due: func(now time.Time, s Snapshot, _ *Firing) (time.Time, bool) {
			if s.Status == organization.StatusCancelled {
				return time.Time{}, false
			}
			return time.Time{}, now.Sub(s.CreatedAt) >= time.Duration(days)*day
		},
	}
}

var ruleByKey = func() map[Key]rule {
	m := make(map[Key]rule, len(rules))
	for _, r := range rules {
		m[r.key] = r
	}
	return m
}()

var rank = func() map[Key]int {
	m := make(map[Key]int, len(rules))
	for i, r := range rules {
		m[r.key] = i
	}
	return m
}()

// Definition describes a rule for administrative listings.
type Definition struct {
	Key         Key    `json:"key"`
	Class       Class  `json:"class"`
	Description string `json:"description"`
}

// Definitions lists every rule in evaluation order.
func Definitions() []Definition {
	out := make([]Definition, len(rules))
	for i, r := range rules {
		out[i] = Definition{Key: r.key, Class: r.class, Description: r.description}
	}
	return out
}

// Keys lists every trigger key in evaluation order.
func Keys() []Key {
	out := make([]Key, len(rules))
	for i, r := range rules {
		out[i] = r.key
	}
	return out
}
