package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/gamegraph/gamegraph/internal/api"
	"github.com/gamegraph/gamegraph/internal/auth"
	"github.com/gamegraph/gamegraph/internal/config"
	"github.com/gamegraph/gamegraph/internal/lifecycle"
)

func serveCmd() *cobra.Command {
	var withSeed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP/JSON API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			if cfg.Auth.JWTSecret == "" {
				return errors.New("serve: auth.jwt_secret is required (set JWT_SECRET)")
			}
			tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer a.Close()

			if withSeed || cfg.Graph.Backend == config.BackendMemory {
				report, seedErr := runSeed(ctx, a)
				if seedErr != nil {
					logger.Error("serve: seeding failed", "error", seedErr)
				} else {
					logger.Info("serve: seed finished", "skipped", report.Skipped, "plays", report.Plays)
				}
			}

			if cfg.Graph.ReconcileInterval > 0 {
				lm := lifecycle.NewManager(a.catalog, a.maintainer, lifecycle.Options{
					BatchSize:     cfg.Graph.ReconcileBatch,
					RatePerSecond: cfg.Graph.ReconcileRate,
				}, logger)
				go lm.RunEvery(ctx, cfg.Graph.ReconcileInterval)
			}

			srv := api.NewServer(api.Deps{
				Catalog:    a.catalog,
				Graph:      a.graph,
				Maintainer: a.maintainer,
				Mirror:     a.mirror,
				Engine:     a.engine,
				Tokens:     tokens,
			}, api.Options{
				LoginRate:  cfg.API.LoginRate,
				LoginBurst: cfg.API.LoginBurst,
			}, logger)

			httpSrv := &http.Server{
				Addr:              cfg.API.ListenAddr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      60 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("HTTP API server starting", "addr", cfg.API.ListenAddr, "graph", cfg.Graph.Backend)
				if listenErr := httpSrv.ListenAndServe(); listenErr != nil && listenErr != http.ErrServerClosed {
					errCh <- fmt.Errorf("serve: HTTP server: %w", listenErr)
				}
				close(errCh)
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
			case startErr := <-errCh:
				return startErr
			}

			if shutdownErr := api.Shutdown(httpSrv, cfg.API.ShutdownTimeout); shutdownErr != nil {
				return fmt.Errorf("serve: graceful shutdown: %w", shutdownErr)
			}

			// Drain the errCh in case ListenAndServe returned after Shutdown.
			if startErr := <-errCh; startErr != nil {
				return startErr
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withSeed, "seed", false, "load the demo data set before serving (always on for the memory graph)")
	return cmd
}
