package main

import (
	"Onboarding/internal/adapters/postgres"
	"Onboarding/internal/shared/logger"
	"flag"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	flag.Parse()

	baseLogger := logger.New(true, "info")

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		baseLogger.Fatal().Err(err).Msg("Failed to load .env file")
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		baseLogger.Fatal().Msg("DATABASE_URL is required")
	}

	if err := postgres.Migrate(dsn, *direction); err != nil {
		baseLogger.Fatal().Err(err).Str("direction", *direction).Msg("Migration failed")
	}
	baseLogger.Info().Str("direction", *direction).Msg("Migrations applied")
}
