// Package app wires configuration, logging, the API client and the UI
// controllers into a runnable application.
package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/smartest-app/smartest-client/internal/api"
	"github.com/smartest-app/smartest-client/internal/catalog"
	"github.com/smartest-app/smartest-client/internal/config"
	"github.com/smartest-app/smartest-client/internal/logging"
	"github.com/smartest-app/smartest-client/internal/session"
	"github.com/smartest-app/smartest-client/internal/ui"
)

// Application aggregates the client's long-lived pieces.
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	console   *ui.Console
	refresher *catalog.Refresher
	metrics   *http.Server
}

// New bootstraps config, logger, API client and controllers.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Str("server", cfg.Server.BaseURL).Msg("starting application bootstrap")

	client := api.NewClient(cfg.Server.BaseURL, &http.Client{Timeout: cfg.Server.HTTPTimeout}, logger)
	cat := catalog.New(client, logger)
	sess := session.NewController(client, logger)
	console := ui.New(cat, client, sess, cfg.Export.PDFPath, logger)
	refresher := catalog.NewRefresher(cat, cfg.Catalog.RefreshInterval, logger)

	var metrics *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		mux.Handle("/metrics", promhttp.Handler())
		metrics = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
	}

	return &Application{
		cfg:       cfg,
		logger:    logger,
		console:   console,
		refresher: refresher,
		metrics:   metrics,
	}, nil
}

// Run starts background workers and the UI loop, and shuts everything
// down on SIGINT/SIGTERM or when the user quits.
func (a *Application) Run(ctx context.Context) error {
	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := a.refresher.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Msg("catalog refresher stopped")
		}
	}()

	if a.metrics != nil {
		go func() {
			a.logger.Info().Str("addr", a.metrics.Addr).Msg("metrics listener starting")
			if err := a.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.logger.Warn().Err(err).Msg("metrics listener stopped")
			}
		}()
	}

	uiDone := make(chan error, 1)
	go func() {
		uiDone <- a.console.Run(bgCtx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-uiDone:
		runErr = err
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	cancel()
	if a.metrics != nil {
		if err := a.metrics.Shutdown(context.Background()); err != nil {
			a.logger.Error().Err(err).Msg("metrics shutdown error")
		}
	}

	a.logger.Info().Msg("shutdown complete")
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
