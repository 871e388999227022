// Package redis connects to redis and provides leases for work that should
// not overlap across instances, such as the daily sweep.
//
//	client, err := redis.Connect(ctx, cfg)
//	leaser := redis.NewLeaser(client, "backoffice:")
//	lease, ok, err := leaser.Acquire(ctx, "sweep:2025-03-10", 30*time.Minute)
//	if ok {
//		defer lease.Release(ctx)
//	}
//
// A lease is an optimization. Callers must stay correct when two holders
// overlap, for example after a lease expired mid-run.
package redis
