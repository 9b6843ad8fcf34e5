package main

import (
	"context"
	"errors"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	thermalhttp "github.com/user/thermaldash/internal/http"
	"github.com/user/thermaldash/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := newApp(cfg, logger)
		store := session.NewStore(cfg.DefaultHosts, cfg.SessionTTL)
		srv, err := thermalhttp.NewServer(cfg, app, store, logger)
		if err != nil {
			return err
		}

		logger.Info("starting thermaldash",
			zap.String("listen", cfg.ListenAddr),
			zap.String("base_path_template", cfg.BasePathTemplate),
			zap.Strings("default_hosts", cfg.DefaultHosts))

		errCh := make(chan error, 1)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		// Graceful shutdown on SIGINT/SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case err, ok := <-errCh:
			if ok {
				return err
			}
			return nil
		case sig := <-sigCh:
			logger.Info("shutting down", zap.String("signal", sig.String()))
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}
