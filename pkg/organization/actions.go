package organization

// Audit action codes recorded for organization changes.
const (
	ActionCreated            = "organization.created"
	ActionActivated          = "organization.activated"
	ActionSuspended          = "organization.suspended"
	ActionCancelled          = "organization.cancelled"
	ActionPlanChanged        = "organization.plan_changed"
	ActionDowngradeScheduled = "organization.downgrade_scheduled"
	ActionDowngradeCancelled = "organization.downgrade_cancelled"
	ActionDowngradeApplied   = "organization.downgrade_applied"
	ActionPeriodRenewed      = "organization.period_renewed"

	// TargetType is the audit target type of organization entries.
	TargetType = "organization"
)
