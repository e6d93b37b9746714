package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ljtan/propertypulse/internal/clients/ura"
	"github.com/ljtan/propertypulse/internal/config"
	"github.com/ljtan/propertypulse/internal/database"
	"github.com/ljtan/propertypulse/internal/modules/dashboard"
	"github.com/ljtan/propertypulse/internal/scheduler"
	"github.com/ljtan/propertypulse/internal/server"
	"github.com/ljtan/propertypulse/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting PropertyPulse")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Data client with response cache
	cache := ura.NewCache(db, time.Duration(cfg.CacheTTLHours)*time.Hour, log)
	client := ura.NewClient(cfg.URABaseURL, cfg.URAAccessKey, cache, log)

	// Dashboard service; serve the last persisted snapshot until the first
	// live refresh completes.
	dash := dashboard.NewService(dashboard.Config{
		Log:       log,
		Fetcher:   client,
		Snapshots: dashboard.NewSnapshotRepository(db, log),
		CAGRYears: cfg.CAGRWindowYears,
	})
	if err := dash.Restore(); err != nil {
		log.Warn().Err(err).Msg("Could not restore persisted snapshot")
	}

	// Initialize scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	// Register background jobs
	refreshJob := scheduler.NewRefreshJob(dash, log)
	if err := sched.AddJob(cfg.RefreshSchedule, refreshJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register refresh job")
	}

	// Kick off an initial refresh in the background when there is nothing
	// to serve yet.
	if dash.Current() == nil {
		go func() {
			if err := sched.RunNow(refreshJob); err != nil {
				log.Error().Err(err).Msg("Initial refresh failed")
			}
		}()
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:      cfg.Port,
		Log:       log,
		DB:        db,
		Config:    cfg,
		Dashboard: dash,
		DevMode:   cfg.DevMode,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
