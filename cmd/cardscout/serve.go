package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/cardscout/internal/delivery/http/handler"
	"github.com/user/cardscout/internal/delivery/http/router"
	"github.com/user/cardscout/internal/scheduler"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the inventory API and run scheduled discovery",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root)
			if err != nil {
				return err
			}
			defer a.Close()

			runner := scheduler.NewRunner(ctx, a.discoverer(), a.sites, a.logger.Named("runner"))
			defer runner.Wait()

			if a.cfg.DiscoverySchedule != "" {
				sched, err := scheduler.New(runner, a.cfg.DiscoverySchedule, a.logger.Named("scheduler"))
				if err != nil {
					return err
				}
				sched.Start()
				defer func() { <-sched.Stop().Done() }()
			}

			h := handler.NewHandler(a.inventoryManager(), runner, a.sites, a.checks, a.logger.Named("api"))
			server := &http.Server{
				Addr:         ":" + a.cfg.ServerPort,
				Handler:      router.New(h, a.logger.Named("http")),
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("Starting server", zap.String("port", a.cfg.ServerPort))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("server forced to shutdown", zap.Error(err))
			}
			return nil
		},
	}
}
