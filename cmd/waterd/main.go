package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"waterqual/internal/auth"
	"waterqual/internal/cfg"
	"waterqual/internal/metrics"
	"waterqual/internal/model"
	"waterqual/internal/pipeline"
	"waterqual/internal/server"
	"waterqual/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	_ = godotenv.Load() // .env is optional

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	if err := os.MkdirAll(c.DataPath, 0o750); err != nil {
		log.Fatal().Err(err).Str("data_path", c.DataPath).Msg("data directory create failed")
	}

	st, err := store.New(c.DataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("storage init failed")
	}
	defer st.Close()

	predictor, err := model.Shared(model.Config{
		Path:          c.ModelPath,
		URL:           c.ModelURL,
		FetchTimeout:  c.FetchTimeout,
		AllowFallback: c.AllowFallback,
	}, m)
	if err != nil {
		log.Fatal().Err(err).Msg("classifier load failed")
	}

	authSvc := auth.NewService(st, c.BcryptCost, c.AdminUser, c.AdminPass)
	pl := pipeline.New(st, predictor, m)

	srv := server.New(server.Config{
		Port:          c.HTTPPort,
		StatsInterval: c.StatsInterval,
	}, authSvc, st, pl, predictor, m)

	startMetricsServer(ctx, c.MetricsPort)

	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("shutdown complete")
}

// startMetricsServer exposes Prometheus metrics on its own port.
func startMetricsServer(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", port).Msg("metrics server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func waitForShutdown(ctx context.Context) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutdown signal received")
	case <-ctx.Done():
	}
}
