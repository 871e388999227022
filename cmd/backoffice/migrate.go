package main

import (
	"context"
	"log/slog"

	"github.com/beautydesk/backoffice/pkg/config"
	"github.com/beautydesk/backoffice/pkg/pg"
	"github.com/beautydesk/backoffice/pkg/pgstore"
)

func migrate(ctx context.Context, log *slog.Logger, command string) error {
	var cfg pg.Config
	if err := config.Load(&cfg); err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	return pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg, log, command)
}
