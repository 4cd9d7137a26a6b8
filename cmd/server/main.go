package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/collabhub/realtime/internal/adapters/http"
	"github.com/collabhub/realtime/internal/app"
	"github.com/collabhub/realtime/internal/config"
	"github.com/collabhub/realtime/internal/logging"
	"github.com/collabhub/realtime/internal/metrics"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize the global logger early so config.Load can use it.
	logging.Setup("info")

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	m, err := metrics.New(metrics.Config{Namespace: cfg.MetricsNamespace})
	if err != nil {
		log.Error().Err(err).Msg("failed to register metrics")
		os.Exit(1)
	}
	hub := app.NewHub(app.WithMetrics(m), app.WithPolicy(app.SimplePolicy{}))

	r, err := router.SetupRouter(ctx, cfg, hub)
	if err != nil {
		log.Error().Err(err).Msg("failed to set up router")
		os.Exit(1)
	}
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("realtime gateway started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		err := srv.Shutdown(shutdownCtx)
		// Hijacked websockets are not tracked by Shutdown.
		hub.Shutdown()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}
