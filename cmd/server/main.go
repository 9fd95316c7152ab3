// Package main is the entry point for the HeapOverflow server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (env vars, an optional .env file, an optional YAML file)
// 2. Create the logger
// 3. Hand both to the server and block until it stops
//
// All actual logic lives in imported packages (internal/server,
// internal/service, etc.). This separation makes the app testable.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sakif/heapoverflow/internal/config"
	"github.com/sakif/heapoverflow/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// === 1. LOAD .env ===
	// A missing .env is normal outside local development, so the error is
	// ignored. Variables already set in the environment win.
	_ = godotenv.Load()

	// === 2. READ CONFIGURATION ===
	// MustLoad panics on a bad file or an invalid value. Failing loudly
	// before anything is opened is what we want here.
	cfg := config.MustLoad(*configPath)

	// === 3. SET UP LOGGING ===
	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	// === 4. CREATE AND START THE SERVER ===
	ctx := context.Background()
	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// setupLogger builds a text logger for local work and a JSON logger for
// anything that ships logs to an aggregator.
func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
