package main

import (
	"Onboarding/internal/app"
	"Onboarding/internal/shared/config"
	"Onboarding/internal/shared/logger"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	baseLogger := logger.New(cfg.IsDev(), cfg.LogLevel)
	baseLogger.Info().
		Str("app_env", cfg.AppEnv).
		Bool("database", cfg.DatabaseURL != "").
		Bool("otp_return_to_client", cfg.OTP.ReturnToClient).
		Msg("Configuration loaded")

	// 3. Stop on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Wire adapters and services
	application, err := app.New(ctx, cfg, &baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	// 5. Run background workers until shutdown
	baseLogger.Info().Msg("Onboarding service running")
	if err := application.Run(ctx); err != nil {
		baseLogger.Error().Err(err).Msg("Application stopped with error")
	}
}
