package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Tomlord1122/task-tracker/internal/service"
)

func (s *Server) registerPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register", pageData{Title: "Register"})
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.log.Warn().Err(err).Msg("failed to parse register form")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	form := service.RegisterForm{
		Username:  r.PostFormValue("username"),
		Password1: r.PostFormValue("password1"),
		Password2: r.PostFormValue("password2"),
	}
	user, err := s.authService.Register(r.Context(), form)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			s.render(w, r, http.StatusUnprocessableEntity, "register", pageData{
				Title:    "Register",
				Username: form.Username,
				Errors:   verr.Fields,
			})
			return
		}
		s.serverError(w, r, err)
		return
	}

	token, err := s.authService.StartSession(r.Context(), user)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.setSessionCookie(w, token)
	s.addFlash(w, r, flashSuccess, fmt.Sprintf("Account created for %s!", user.Username))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", pageData{
		Title: "Log in",
		Next:  safeNext(r.URL.Query().Get("next")),
	})
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.log.Warn().Err(err).Msg("failed to parse login form")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	username := r.PostFormValue("username")
	next := safeNext(r.PostFormValue("next"))

	user, err := s.authService.Authenticate(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			s.render(w, r, http.StatusOK, "login", pageData{
				Title:    "Log in",
				Username: username,
				Next:     next,
				Flashes:  []flashMessage{{Level: flashError, Text: "Invalid username or password"}},
			})
			return
		}
		s.serverError(w, r, err)
		return
	}

	token, err := s.authService.StartSession(r.Context(), user)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.setSessionCookie(w, token)
	s.addFlash(w, r, flashSuccess, fmt.Sprintf("Welcome back, %s!", user.Username))

	if next == "" {
		next = "/"
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(s.cfg.Session.CookieName); err == nil && cookie.Value != "" {
		if err := s.authService.EndSession(r.Context(), cookie.Value); err != nil {
			s.log.Error().Err(err).Msg("failed to end session")
		}
	}
	s.clearSessionCookie(w)
	s.addFlash(w, r, flashInfo, "You have been logged out")
	http.Redirect(w, r, "/login/", http.StatusSeeOther)
}

// safeNext only accepts local absolute paths as post-login targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}
