// NeoTrace API server: chat proxy and feedback intake.
package main

import (
	"context"
	"log/slog"
	"os"

	"neotrace/internal/backend"
	"neotrace/internal/config"
	"neotrace/internal/server"
	"neotrace/internal/store"
	"neotrace/internal/telemetry"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := telemetry.InitLogger(cfg.Debug)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx, "neotrace-server")
	if err != nil {
		logger.Error("Failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("Failed to close store", "error", closeErr)
		}
	}()

	if err := st.Ping(ctx); err != nil {
		logger.Error("Database health check failed", "error", err)
		os.Exit(1)
	}

	llm, err := backend.New(cfg, logger, tracer, meter)
	if err != nil {
		logger.Error("Failed to initialize LLM backend", "error", err)
		os.Exit(1)
	}

	logger.Info("starting server", "port", cfg.Port, "backend", llm.Name())

	srv := server.New(llm, st, logger, tracer, meter)
	if err := srv.Router(cfg.FrontendURL).Run(":" + cfg.Port); err != nil {
		logger.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
