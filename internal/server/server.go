package server

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Tomlord1122/task-tracker/internal/config"
	"github.com/Tomlord1122/task-tracker/internal/database"
	"github.com/Tomlord1122/task-tracker/internal/service"
)

type Server struct {
	cfg         *config.Config
	log         zerolog.Logger
	taskService service.TaskService
	authService service.AuthService
	db          database.Service
	views       *views
}

func newServer(
	cfg *config.Config,
	log zerolog.Logger,
	taskService service.TaskService,
	authService service.AuthService,
	dbService database.Service,
) *Server {
	return &Server{
		cfg:         cfg,
		log:         log,
		taskService: taskService,
		authService: authService,
		db:          dbService,
		views:       newViews(),
	}
}

func NewServer(
	cfg *config.Config,
	log zerolog.Logger,
	taskService service.TaskService,
	authService service.AuthService,
	dbService database.Service,
) *http.Server {
	appServer := newServer(cfg, log, taskService, authService, dbService)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      appServer.RegisterRoutes(),
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
}
