// Package logger builds the structured slog.Logger used across the back office.
//
// New applies functional options; FromConfig reads them from the environment
// (APP_ENV, APP_NAME, LOG_LEVEL). Development logs are text at debug level,
// staging and production logs are JSON at info level.
//
// Context extractors add request-scoped attributes at log time:
//
//	log := logger.New(
//	    logger.WithEnvironment("production", "backoffice"),
//	    logger.WithContextExtractors(logger.OrganizationFromContext),
//	)
//	ctx = logger.WithOrganization(ctx, orgID)
//	log.InfoContext(ctx, "notification sent", logger.TriggerKey("ONBOARDING_DAY_1"))
//
// Attribute helpers (Error, OrganizationID, TriggerKey, EventID...) keep key
// names consistent. Error and Errors return an empty Attr for nil errors, so
// they can be passed unconditionally.
package logger
