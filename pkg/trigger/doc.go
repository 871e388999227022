// Package trigger decides which engagement messages are due.
//
// Each rule looks at an organization Snapshot (status, age, trial end,
// activation, last login) and the firings already recorded for it. Evaluate
// is pure; Engine adds the firing store lookup and evaluates many
// organizations in parallel.
//
// Most triggers fire at most once per organization. NO_LOGIN_7_DAYS is
// re-armable: its firing carries the start of the activity window it
// covered, so a later login opens a new window that may fire again after
// a cool-down.
//
//	due, err := engine.EvaluateAll(ctx, now, snapshots)
//	for _, d := range due {
//		dispatcher.Dispatch(ctx, recipient, d)
//	}
package trigger
