// Package audit records privileged state changes as an immutable, append-only log.
//
// Every administrative action (plan change, suspension, cancellation, manual
// notification resend) and every automated notification produces exactly one
// Entry. Entries are never updated or deleted.
//
// # Recording
//
// A Trail appends entries to a Storage. Request metadata (client IP, user
// agent, request id) is read from the context, where the HTTP layer stores it
// with WithRequestMeta. Metadata values pass through a Redactor that
// removes secrets and hashes or masks contact data.
//
//	trail := audit.NewTrail(storage)
//	_, err := trail.Record(ctx, "admin@example.com", "organization.suspended",
//	    audit.Target{Type: "organization", ID: id.String()},
//	    before, after,
//	    audit.WithOrganization(id),
//	)
//
// Record never fails silently. Callers performing a state change inside a
// transaction bind the trail to the transaction's storage with In, so a
// failed audit write rolls back the change it describes.
//
// # Reading
//
// Reader filters by actor, action, target type, organization and date range
// with limit/offset pagination (DefaultLimit 50, MaxLimit 500). ExportCSV
// streams the whole filtered view.
package audit
