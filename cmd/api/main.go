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

	"github.com/rs/zerolog"

	"github.com/Tomlord1122/task-tracker/internal/config"
	"github.com/Tomlord1122/task-tracker/internal/database"
	"github.com/Tomlord1122/task-tracker/internal/logger"
	"github.com/Tomlord1122/task-tracker/internal/repository"
	"github.com/Tomlord1122/task-tracker/internal/server"
	"github.com/Tomlord1122/task-tracker/internal/service"
)

func gracefulShutdown(
	log zerolog.Logger,
	apiServer *http.Server,
	dbService database.Service,
	timeout time.Duration,
	done chan bool,
) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info().Msg("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	ctxTimeout, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	if dbService != nil {
		log.Info().Msg("closing database connection pool")
		if err := dbService.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database connection pool")
		} else {
			log.Info().Msg("database connection pool closed")
		}
	}

	log.Info().Msg("server exiting")
	done <- true
}

func main() {
	cfg, err := config.Read()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	// 1. Database
	dbService, err := database.New(cfg.Postgres, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Run with BLUEPRINT_DB_AUTOMIGRATE=false when migrations are managed elsewhere.
	if cfg.Postgres.AutoMigrate {
		if err := dbService.Migrate(); err != nil {
			log.Fatal().Err(err).Msg("failed to auto-migrate database")
		}
	}

	gormDB := dbService.GetDB()

	// 2. Repositories
	taskRepo := repository.NewGormTaskRepository(gormDB)
	userRepo := repository.NewGormUserRepository(gormDB)
	sessionRepo := repository.NewGormSessionRepository(gormDB)

	// 3. Services
	taskService := service.NewTaskService(log.With().Str("component", "tasks").Logger(), taskRepo)
	authService := service.NewAuthService(
		log.With().Str("component", "auth").Logger(),
		userRepo,
		sessionRepo,
		service.AuthOptions{
			Issuer:     cfg.Session.Issuer,
			SigningKey: []byte(cfg.Session.SigningKey),
			SessionTTL: cfg.Session.TTL,
		},
	)

	// 4. Server
	apiServer := server.NewServer(cfg, log, taskService, authService, dbService)

	done := make(chan bool, 1)
	go gracefulShutdown(log, apiServer, dbService, cfg.HTTP.ShutdownTimeout, done)

	log.Info().
		Str("addr", apiServer.Addr).
		Str("env", cfg.Env).
		Bool("complete_via_get", cfg.Tasks.AllowGetComplete).
		Msg("starting server")
	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server ListenAndServe error")
	}

	<-done
	log.Info().Msg("graceful shutdown complete")
}
