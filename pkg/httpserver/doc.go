// Package httpserver runs an http.Handler under a context with graceful
// shutdown, and provides liveness and readiness handlers.
//
//	srv := httpserver.New(cfg, router, httpserver.WithLogger(log))
//	if err := srv.Run(ctx); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
package httpserver
