package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliseohh/brainvaultbot/internal/bot"
	"github.com/eliseohh/brainvaultbot/internal/config"
	"github.com/eliseohh/brainvaultbot/internal/logging"
	"github.com/eliseohh/brainvaultbot/internal/metrics"
	"github.com/eliseohh/brainvaultbot/internal/store"
	"github.com/eliseohh/brainvaultbot/internal/vault"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireToken(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Dev)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Storage
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.InitSchemaContext(ctx); err != nil {
		return err
	}

	vlt, err := vault.Open(ctx, db, cfg.Location, logger)
	if err != nil {
		return errors.Wrap(err, "vault.Open")
	}

	// 2. Metrics
	m := metrics.New()
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go serveMetrics(srv, logger)
		defer shutdown(srv)
	}

	// 3. Bot
	b, err := bot.New(bot.Config{Token: cfg.Token, PollTimeout: cfg.PollTimeout}, vlt, logger, m)
	if err != nil {
		return err
	}

	logger.Infow("brain vault starting", "version", Version, "db", cfg.DBPath, "timezone", cfg.Location.String())
	go b.Start()

	<-ctx.Done()
	logger.Info("shutting down")
	b.Stop()
	return nil
}

func serveMetrics(srv *http.Server, logger *zap.SugaredLogger) {
	logger.Infof("metrics listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(errors.Wrap(err, "metrics server"))
	}
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
