package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizlive/go/internal/auth"
	"github.com/mcdev12/quizlive/go/internal/config"
	"github.com/mcdev12/quizlive/go/internal/realtime/gateway"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file overlaid on the environment")
	flag.Parse()

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogging(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := setupServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up session service")
	}
	defer services.Close()

	verifier := auth.NewVerifier(cfg.Auth.AdminSecret, cfg.Auth.TeamSecret)
	realtime, err := gateway.NewService(ctx, gatewayConfig(cfg), services.Sessions, verifier)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create realtime gateway")
	}

	server := setupServer(cfg, realtime, services)

	log.Info().
		Str("addr", server.Addr).
		Str("env", cfg.AppEnv).
		Str("session_backend", cfg.Session.Backend).
		Str("realtime_path", cfg.Realtime.Path).
		Bool("enforce_admin_role", cfg.Realtime.EnforceAdminRole).
		Msg("starting quiz gateway")

	// Start gateway service (event consumer and timers)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := realtime.Start(ctx); err != nil {
			log.Error().Err(err).Msg("realtime gateway failed")
		}
	}()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn().Msg("realtime gateway did not stop in time")
	}

	log.Info().Msg("quiz gateway shutdown complete")
}
