package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(s.loadIdentity)

	r.NotFound(s.notFound)

	r.Get("/health", s.healthHandler)

	r.Group(func(r chi.Router) {
		r.Use(s.redirectAuthenticated)
		r.Get("/register/", s.registerPage)
		r.Post("/register/", s.registerHandler)
		r.Get("/login/", s.loginPage)
		r.Post("/login/", s.loginHandler)
	})

	r.Get("/logout/", s.logoutHandler)
	r.Post("/logout/", s.logoutHandler)

	r.Group(func(r chi.Router) {
		r.Use(s.requireLogin)

		r.Get("/", s.dashboardHandler)

		r.Get("/task/create/", s.createTaskPage)
		r.Post("/task/create/", s.createTaskHandler)
		r.Get("/task/{id}/", s.taskDetailHandler)
		r.Get("/task/{id}/update/", s.updateTaskPage)
		r.Post("/task/{id}/update/", s.updateTaskHandler)
		r.Get("/task/{id}/delete/", s.deleteTaskPage)
		r.Post("/task/{id}/delete/", s.deleteTaskHandler)
		r.Post("/task/{id}/complete/", s.completeTaskHandler)
		if s.cfg.Tasks.AllowGetComplete {
			r.Get("/task/{id}/complete/", s.completeTaskHandler)
		}
	})

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthStats := s.db.Health()
	if status, ok := healthStats["status"]; ok && status == "down" {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStats)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStats)
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal JSON response")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error preparing response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
