// Package sweep runs the daily engagement pass over all organizations.
//
// A run applies pending downgrades that came due, evaluates every trigger
// rule for each non-cancelled organization (plus those cancelled in the last
// week, for the farewell notice) and dispatches what is due. Organizations
// are processed in parallel; the messages of one organization go out in
// rule order.
//
// Firing records make runs idempotent, so the sweep can be started by the
// in-process daily loop, by `backoffice sweep` from cron, or through the
// internal HTTP endpoint. An optional redis lease keeps overlapping runs
// from doing redundant work.
package sweep
