// Command backoffice runs the organization lifecycle service.
//
//	backoffice serve            HTTP API, optionally with the in-process daily sweep
//	backoffice sweep            one sweep pass, for external schedulers
//	backoffice migrate [up|down|status]
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/beautydesk/backoffice/pkg/config"
	"github.com/beautydesk/backoffice/pkg/logger"
)

var errUsage = errors.New("usage: backoffice <serve|sweep|migrate> [args]")

func main() {
	var logCfg logger.Config
	if err := config.Load(&logCfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.FromConfig(logCfg,
		logger.WithContextExtractors(logger.OrganizationFromContext),
		logger.WithContextValue("request_id", middleware.RequestIDKey),
	)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, os.Args[1:]); err != nil {
		log.Error("backoffice stopped", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "serve":
		return serve(ctx, log)
	case "sweep":
		return sweepOnce(ctx, log)
	case "migrate":
		command := ""
		if len(args) > 1 {
			command = args[1]
		}
		return migrate(ctx, log, command)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}
