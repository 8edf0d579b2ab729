package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	config, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sharedStore, closeStore, err := setupStore(ctx, config)
	if err != nil {
		log.Fatal().Err(err).Str("backend", config.Store.Backend).Msg("failed to open shared store")
	}
	defer closeStore()

	services, err := setupServices(config, sharedStore)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup services")
	}

	// Start room gateway in background
	go func() {
		if err := services.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("room gateway failed")
		}
	}()

	server := setupServer(config, services)

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("store", config.Store.Backend).
			Str("expiry_policy", config.Timer.ExpiryPolicy).
			Msg("starting studysync server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
