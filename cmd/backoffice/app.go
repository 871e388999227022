package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/beautydesk/backoffice/pkg/audit"
	"github.com/beautydesk/backoffice/pkg/billing"
	"github.com/beautydesk/backoffice/pkg/config"
	"github.com/beautydesk/backoffice/pkg/email"
	"github.com/beautydesk/backoffice/pkg/httpserver"
	"github.com/beautydesk/backoffice/pkg/logger"
	"github.com/beautydesk/backoffice/pkg/notify"
	"github.com/beautydesk/backoffice/pkg/organization"
	"github.com/beautydesk/backoffice/pkg/pg"
	"github.com/beautydesk/backoffice/pkg/pgstore"
	"github.com/beautydesk/backoffice/pkg/redis"
	"github.com/beautydesk/backoffice/pkg/sms"
	"github.com/beautydesk/backoffice/pkg/sweep"
	"github.com/beautydesk/backoffice/pkg/trigger"
	"github.com/beautydesk/backoffice/pkg/webhook"
)

// app holds the wired services shared by every command.
type app struct {
	cfg        appConfig
	sweepCfg   sweepConfig
	pool       *pgxpool.Pool
	redis      *goredis.Client
	orgs       *organization.Service
	dispatcher *notify.Dispatcher
	sweeper    *sweep.Sweeper
	audit      *audit.Reader
	checks     map[string]httpserver.Check
	log        *slog.Logger
}

// newApp connects storage and builds the services. provider may be nil when
// the command never talks to the billing processor.
func newApp(ctx context.Context, log *slog.Logger, provider billing.Provider) (*app, error) {
	var (
		cfg      appConfig
		sweepCfg sweepConfig
		pgCfg    pg.Config
		redisCfg redis.Config
	)
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	if err := config.Load(&sweepCfg); err != nil {
		return nil, err
	}
	if err := config.Load(&pgCfg); err != nil {
		return nil, err
	}
	if err := config.Load(&redisCfg); err != nil {
		return nil, err
	}

	catalog, err := cfg.catalog()
	if err != nil {
		return nil, fmt.Errorf("plan catalog: %w", err)
	}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:      cfg,
		sweepCfg: sweepCfg,
		pool:     pool,
		log:      log,
		checks:   map[string]httpserver.Check{"postgres": pg.Healthcheck(pool)},
	}

	var locker sweep.Locker
	if redisCfg.Enabled() {
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			a.close()
			return nil, err
		}
		a.redis = client
		a.checks["redis"] = redis.Healthcheck(client)
		locker = sweep.RedisLocker(redis.NewLeaser(client, "backoffice:"))
	} else {
		log.WarnContext(ctx, "REDIS_URL not set, sweeps run without a lease")
	}

	auditStore := pgstore.NewAuditStore(pool)
	trail := audit.NewTrail(auditStore)
	a.audit = audit.NewReader(auditStore)

	orgOpts := []organization.ServiceOption{
		organization.WithLogger(log),
		organization.WithTrialDays(cfg.TrialDays),
	}
	if provider != nil {
		orgOpts = append(orgOpts, organization.WithBillingProvider(provider))
	}
	a.orgs = organization.NewService(pgstore.NewOrganizationStore(pool), catalog, trail, orgOpts...)

	transports, supportEmail, err := a.transports(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	firings := pgstore.NewFiringStore(pool)
	notifyOpts := append(transports,
		notify.WithLinks(cfg.DashboardURL, supportEmail),
		notify.WithLogger(log),
	)
	a.dispatcher = notify.NewDispatcher(firings, notify.MustNewTemplates(notify.DefaultTemplates()), trail, notifyOpts...)

	sweepOpts := []sweep.Option{
		sweep.WithConcurrency(sweepCfg.Concurrency),
		sweep.WithPageSize(sweepCfg.PageSize),
		sweep.WithLanguage(cfg.language()),
		sweep.WithLogger(log),
	}
	if locker != nil {
		sweepOpts = append(sweepOpts, sweep.WithLocker(locker, sweepCfg.LeaseTTL))
	}
	a.sweeper = sweep.New(a.orgs, trigger.NewEngine(firings, trigger.WithLogger(log)), a.dispatcher, sweepOpts...)

	return a, nil
}

// transports wires every configured delivery channel. Email is mandatory.
func (a *app) transports(ctx context.Context) ([]notify.Option, string, error) {
	var emailCfg email.Config
	if err := config.Load(&emailCfg); err != nil {
		return nil, "", err
	}
	mailer, err := email.NewSender(emailCfg)
	if err != nil {
		return nil, "", err
	}
	opts := []notify.Option{notify.WithTransport(notify.ChannelEmail, notify.EmailTransport(mailer))}

	var smsCfg sms.Config
	if err := config.Load(&smsCfg); err != nil {
		return nil, "", err
	}
	if smsCfg.Enabled {
		sender, err := sms.NewSNS(ctx, smsCfg)
		if err != nil {
			return nil, "", err
		}
		opts = append(opts, notify.WithTransport(notify.ChannelSMS, notify.SMSTransport(sender)))
	}

	var chatCfg webhook.Config
	if err := config.Load(&chatCfg); err != nil {
		return nil, "", err
	}
	if chatCfg.Enabled() {
		poster := webhook.NewSenderFromConfig(chatCfg, webhook.WithLogger(a.log))
		opts = append(opts, notify.WithTransport(notify.ChannelChat, notify.ChatTransport(poster)))
	}

	a.log.InfoContext(ctx, "notification channels configured",
		logger.Component("notify"),
		slog.Bool("sms", smsCfg.Enabled),
		slog.Bool("chat", chatCfg.Enabled()),
	)
	return opts, emailCfg.SupportEmail, nil
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("redis close failed", logger.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
