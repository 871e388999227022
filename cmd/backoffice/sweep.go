package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/beautydesk/backoffice/pkg/logger"
)

// sweepOnce runs a single pass and exits, for cron-style schedulers.
func sweepOnce(ctx context.Context, log *slog.Logger) error {
	a, err := newApp(ctx, log, nil)
	if err != nil {
		return err
	}
	defer a.close()

	rep, err := a.sweeper.Run(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "sweep finished",
		logger.Component("sweep"),
		slog.Bool("lease_held", rep.LeaseHeld),
		slog.Int("downgrades", rep.DowngradesApplied),
		slog.Int("sent", rep.Sent),
		slog.Int("skipped", rep.Skipped),
		slog.Int("failed", rep.Failed),
	)
	return nil
}
