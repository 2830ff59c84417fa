package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coverchanger/internal/api"
	"coverchanger/internal/clock"
	"coverchanger/internal/config"
	"coverchanger/internal/cover"
	"coverchanger/internal/phase"
	"coverchanger/internal/schedule"
	"coverchanger/internal/service"
	"coverchanger/internal/spotify"
	"coverchanger/internal/statestore"
	"coverchanger/internal/suntimes"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using environment variables")
	}

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	logger.Info("Starting Four-Phase Cover Changer",
		zap.String("playlist_id", cfg.PlaylistID))

	// Operator-supplied phase times bypass the solar computation. A malformed
	// value logs the parse error and falls back to solar mode.
	var overrides *phase.Overrides
	if cfg.OverrideTimes != "" {
		overrides, err = phase.ParseOverrides(cfg.OverrideTimes, time.Now())
		if err != nil {
			logger.Error("Failed to parse PHASE_TIMES, using solar schedule instead",
				zap.String("value", cfg.OverrideTimes),
				zap.Error(err))
			overrides = nil
		} else {
			logger.Info("Override mode enabled",
				zap.Time("morning", overrides.Morning),
				zap.Time("day", overrides.Day),
				zap.Time("evening", overrides.Evening),
				zap.Time("night", overrides.Night))
		}
	}

	clk := clock.NewRealClock()
	sun := suntimes.NewSource(cfg.SunSource, cfg.Latitude, cfg.Longitude, cfg.TimeOffset, cfg.SunTable, logger)
	calc := phase.NewCalculator(sun, cfg.MorningDuration, cfg.EveningDuration, overrides, logger)

	client := spotify.NewClient(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRefreshToken, logger)

	// Playlist lookup is log context only; a failure here is not fatal.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if name, err := client.PlaylistName(ctx, cfg.PlaylistID); err != nil {
		logger.Warn("Could not fetch playlist details", zap.Error(err))
	} else {
		logger.Info("Target playlist", zap.String("name", name))
	}
	cancel()

	changer := cover.NewChanger(client, cfg.PlaylistID, cfg.Images, logger)
	scheduler := schedule.NewScheduler(clk, cfg.MisfireGrace, logger)
	store := statestore.NewStore(cfg.StateFile, logger)

	svc := service.New(calc, scheduler, store, changer, clk, service.Info{
		PlaylistID:   cfg.PlaylistID,
		OverrideMode: overrides != nil,
		TimeOffset:   cfg.TimeOffset,
	}, logger)

	if err := svc.Start(); err != nil {
		logger.Fatal("Failed to start service", zap.Error(err))
	}

	var statusServer *api.Server
	if cfg.StatusPort > 0 {
		statusServer = api.NewServer(svc, logger, cfg.StatusPort)
		statusServer.Start()
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Application running. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-sigChan

	logger.Info("Shutting down gracefully...")

	if statusServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := statusServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Status server shutdown failed", zap.Error(err))
		}
		shutdownCancel()
	}
	svc.Stop()
}
