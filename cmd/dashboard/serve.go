package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/candidate-tracker/internal/dashboard"
	"github.com/rickgao/candidate-tracker/internal/events"
	"github.com/rickgao/candidate-tracker/internal/poller"
	"github.com/rickgao/candidate-tracker/internal/server"
	"github.com/rickgao/candidate-tracker/internal/version"
)

func newServeCommand(g *globals) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with a live candidate list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			logger.Info("starting dashboard",
				"version", version.Version,
				"commit", version.Commit,
				"backend", cfg.Backend,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hub := events.NewHub(events.DefaultConfig(), logger)
			defer hub.Close()

			a, err := buildApp(ctx, cfg, logger, dashboard.WithNotifier(hub.Notify))
			if err != nil {
				return err
			}
			defer a.close()

			// A failed initial load is healed by the poller.
			if err := a.dash.Start(ctx); err != nil {
				logger.Warn("initial candidate load failed", "error", err)
			}

			srv := server.New(cfg.Server, a.dash, append(a.serverOptions(cfg, logger), server.WithEvents(hub))...)
			reconcile := poller.New(poller.Config{
				Interval: cfg.Poller.Interval,
				Timeout:  cfg.Poller.Timeout,
			}, a.dash, logger)

			grp, gctx := errgroup.WithContext(ctx)
			grp.Go(func() error { return srv.Run(gctx) })
			if cfg.Poller.Interval > 0 {
				grp.Go(func() error { return reconcile.Run(gctx) })
			}

			err = grp.Wait()
			logger.Info("dashboard stopped")
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "override server.port")
	return cmd
}
