// Package billing is the boundary to the external billing processor.
//
// Provider creates hosted checkout and customer portal links and turns signed
// webhook notifications into normalized Events. Paddle is the production
// implementation.
//
// Events carry the processor's own event id, used downstream as the
// idempotency key, and the time the processor says the event occurred, used
// to discard events that arrive after a newer one was already applied.
//
// Webhooks the lifecycle does not act on (customer updates, draft
// transactions, trialing subscriptions) return ErrIgnoredEvent so the HTTP
// handler can acknowledge them without side effects.
package billing
