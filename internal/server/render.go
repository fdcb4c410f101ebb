package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Tomlord1122/task-tracker/internal/domain"
	"github.com/Tomlord1122/task-tracker/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"register",
	"login",
	"dashboard",
	"task_form",
	"task_detail",
	"not_found",
	"error",
}

type views struct {
	pages map[string]*template.Template
}

func newViews() *views {
	funcs := template.FuncMap{
		"formatTime":         formatTime,
		"formatOptionalTime": formatOptionalTime,
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		pages[name] = template.Must(
			template.New("base.html").Funcs(funcs).ParseFS(templateFS, "templates/base.html", "templates/"+name+".html"),
		)
	}
	return &views{pages: pages}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Format("Jan 2, 2006 15:04")
}

func formatOptionalTime(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return formatTime(*value)
}

type selectOption struct {
	Value string
	Label string
}

var (
	statusOptions   = buildStatusOptions()
	priorityOptions = buildPriorityOptions()
)

func buildStatusOptions() []selectOption {
	opts := make([]selectOption, 0, len(domain.TaskStatuses))
	for _, status := range domain.TaskStatuses {
		opts = append(opts, selectOption{Value: string(status), Label: status.Label()})
	}
	return opts
}

func buildPriorityOptions() []selectOption {
	opts := make([]selectOption, 0, len(domain.TaskPriorities))
	for _, priority := range domain.TaskPriorities {
		opts = append(opts, selectOption{Value: string(priority), Label: priority.Label()})
	}
	return opts
}

type pageData struct {
	Title   string
	User    *service.Identity
	Flashes []flashMessage

	// Auth forms.
	Username string
	Next     string
	Errors   service.FieldErrors

	Dashboard *service.Dashboard

	Task       *domain.Task
	Form       service.TaskForm
	Action     string
	FormAction string
	DeleteMode bool

	StatusOptions   []selectOption
	PriorityOptions []selectOption
	// CompleteViaLink renders "mark complete" as a plain link instead of a form.
	CompleteViaLink bool
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	tmpl, ok := s.views.pages[page]
	if !ok {
		s.log.Error().Str("page", page).Msg("unknown page template")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if identity, ok := IdentityFromContext(r.Context()); ok {
		data.User = identity
	}
	data.Flashes = append(s.popFlashes(w, r), data.Flashes...)
	data.StatusOptions = statusOptions
	data.PriorityOptions = priorityOptions
	data.CompleteViaLink = s.cfg.Tasks.AllowGetComplete

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		s.log.Error().
			Err(err).
			Str("page", page).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("failed to render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "not_found", pageData{Title: "Not found"})
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error().
		Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("request failed")
	s.render(w, r, http.StatusInternalServerError, "error", pageData{Title: "Server error"})
}
