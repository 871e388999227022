package trigger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beautydesk/backoffice/pkg/organization"
)

// Key names an engagement rule.
type Key string

const (
	OnboardingDay1       Key = "ONBOARDING_DAY_1"
	OnboardingDay7       Key = "ONBOARDING_DAY_7"
	OnboardingDay15      Key = "ONBOARDING_DAY_15"
	TrialEndingSoon      Key = "TRIAL_ENDING_SOON"
	TrialExpired         Key = "TRIAL_EXPIRED"
	NoLogin7Days         Key = "NO_LOGIN_7_DAYS"
	SubscriptionActive60 Key = "SUBSCRIPTION_ACTIVE_60_DAYS"
	CancellationFarewell Key = "CANCELLATION_FAREWELL"
)

// Class tells whether a trigger fires once per organization or may fire again.
type Class string

const (
	Once      Class = "once"
	Rearmable Class = "rearmable"
)

const day = 24 * time.Hour

const (
	// TrialEndingWindow is how long before trial end the reminder becomes due.
	TrialEndingWindow = 5 * day
	// InactivityThreshold is the idle time that makes NO_LOGIN_7_DAYS due.
	InactivityThreshold = 7 * day
	// InactivityCooldown separates two NO_LOGIN_7_DAYS firings.
	InactivityCooldown = 7 * day
	// RetentionAge is the continuous ACTIVE time before the retention message.
	RetentionAge = 60 * day
	// FarewellWindow bounds how long after cancellation the farewell may go out.
	FarewellWindow = 7 * day
)

// ParseKey validates a trigger key.
func ParseKey(s string) (Key, error) {
	k := Key(s)
	if _, ok := ruleByKey[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, s)
	}
	return k, nil
}

// Class returns the firing class of k. Unknown keys are Once.
func (k Key) Class() Class {
	if r, ok := ruleByKey[k]; ok {
		return r.class
	}
	return Once
}

// Snapshot is the part of an organization the rules look at.
type Snapshot struct {
	OrganizationID uuid.UUID
	Status         organization.Status
	CreatedAt      time.Time
	TrialEndsAt    *time.Time
	ActivatedAt    *time.Time
	CancelledAt    *time.Time
	LastLoginAt    *time.Time
}

// SnapshotOf extracts the evaluation snapshot of o.
func SnapshotOf(o organization.Organization) Snapshot {
	return Snapshot{
		OrganizationID: o.ID,
		Status:         o.Status,
		CreatedAt:      o.CreatedAt,
		TrialEndsAt:    o.TrialEndsAt,
		ActivatedAt:    o.ActivatedAt,
		CancelledAt:    o.CancelledAt,
		LastLoginAt:    o.LastLoginAt,
	}
}

// activityStart is the start of the current activity window.
func (s Snapshot) activityStart() time.Time {
	if s.LastLoginAt != nil && s.LastLoginAt.After(s.CreatedAt) {
		return *s.LastLoginAt
	}
	return s.CreatedAt
}

// Firing records that a trigger was delivered. It is unique on
// (OrganizationID, Key, Window) and never changes once written.
// Window is the zero time for once-ever triggers.
type Firing struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	Key            Key       `json:"key"`
	Window         time.Time `json:"window"`
	SentAt         time.Time `json:"sent_at"`
}

// Due is a trigger that should be dispatched now.
type Due struct {
	OrganizationID uuid.UUID
	Key            Key
	Window         time.Time
}

// Firing returns the record to write once d has been delivered.
func (d Due) Firing(sentAt time.Time) Firing {
	return Firing{
		OrganizationID: d.OrganizationID,
		Key:            d.Key,
		Window:         d.Window,
		SentAt:         sentAt,
	}
}

// FiringSet holds the most recent firing per key of one organization.
type FiringSet map[Key]Firing

// NewFiringSet builds a set from records, keeping the latest window per key.
func NewFiringSet(firings ...Firing) FiringSet {
	set := make(FiringSet, len(firings))
	for _, f := range firings {
		set.Add(f)
	}
	return set
}

// Add merges f into the set.
func (s FiringSet) Add(f Firing) {
	cur, ok := s[f.Key]
	if !ok || f.Window.After(cur.Window) || (f.Window.Equal(cur.Window) && f.SentAt.After(cur.SentAt)) {
		s[f.Key] = f
	}
}

// Has reports whether k fired for window.
func (s FiringSet) Has(k Key, window time.Time) bool {
	f, ok := s[k]
	if !ok {
		return false
	}
	if k.Class() == Once {
		return true
	}
	return !f.Window.Before(window)
}
