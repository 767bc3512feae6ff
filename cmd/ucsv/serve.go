package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ucsv/internal/dialect"
	"github.com/JonMunkholm/ucsv/internal/metrics"
	"github.com/JonMunkholm/ucsv/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve conversions over HTTP",
		Long: `Start the HTTP server on SERVER_HOST:SERVER_PORT.

Endpoints:
  GET  /api/dialects
  POST /api/convert?from=&to=
  POST /api/dedupe?format=&key=[&to=]
  POST /api/slim?format=&fields=[&to=]
  GET  /healthz
  GET  /metrics

With UCSV_WATCH_DIALECTS=true the dialect file is reloaded when it changes.
SIGINT or SIGTERM stops accepting requests and waits for running
conversions up to SERVER_SHUTDOWN_TIMEOUT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			collector := metrics.NewCollector(nil)
			a.observer = collector
			a.files = a.newFiles(cmd)

			a.logger.Info("configuration loaded",
				"addr", a.cfg.Server.Addr(),
				"upload_max_concurrent", a.cfg.Upload.MaxConcurrent,
				"upload_max_body_size", a.cfg.Upload.MaxBodySize,
				"bindings", len(a.registry.Extensions()),
			)

			if a.cfg.Codec.WatchDialects && a.cfg.Codec.DialectsFile != "" {
				go func() {
					err := dialect.Watch(ctx, a.cfg.Codec.DialectsFile, a.registry, a.logger, func(err error) {
						if err != nil {
							collector.SessionError("reload", "dialect_reload")
						}
					})
					if err != nil {
						a.logger.Error("dialect watcher stopped", "error", err)
					}
				}()
			}

			server := web.NewServer(a.files, collector, a.cfg)
			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return <-errCh
		},
	}
}
