package main

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/beautydesk/backoffice/pkg/archive"
	"github.com/beautydesk/backoffice/pkg/billing"
	"github.com/beautydesk/backoffice/pkg/config"
	"github.com/beautydesk/backoffice/pkg/httpserver"
	"github.com/beautydesk/backoffice/pkg/logger"
	"github.com/beautydesk/backoffice/svc/api"
)

func serve(ctx context.Context, log *slog.Logger) error {
	var (
		httpCfg    httpserver.Config
		apiCfg     api.Config
		billingCfg billing.Config
		archiveCfg archive.Config
	)
	if err := config.Load(&httpCfg); err != nil {
		return err
	}
	if err := config.Load(&apiCfg); err != nil {
		return err
	}
	if err := config.Load(&billingCfg); err != nil {
		return err
	}
	if err := config.Load(&archiveCfg); err != nil {
		return err
	}

	provider, err := billing.NewPaddle(billingCfg)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, log, provider)
	if err != nil {
		return err
	}
	defer a.close()

	deps := api.Deps{
		Organizations: a.orgs,
		Dispatcher:    a.dispatcher,
		Audit:         a.audit,
		Billing:       provider,
		Sweeper:       a.sweeper,
		Checks:        a.checks,
	}
	if archiveCfg.Enabled() {
		archiver, err := archive.New(ctx, archiveCfg, a.audit, archive.WithLogger(log))
		if err != nil {
			return err
		}
		deps.Archiver = archiver
	}

	handler := api.New(apiCfg, deps,
		api.WithLogger(log),
		api.WithLanguage(a.cfg.language()),
	).Handler()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.New(httpCfg, handler, httpserver.WithLogger(log)).Run(ctx)
	})

	if a.sweepCfg.InProcess {
		schedule, err := a.sweepCfg.schedule()
		if err != nil {
			return err
		}
		log.InfoContext(ctx, "in-process sweep scheduled",
			logger.Component("sweep"),
			slog.String("schedule", schedule.String()),
		)
		g.Go(func() error { return a.sweeper.RunDaily(ctx, schedule) })
	}

	return g.Wait()
}
