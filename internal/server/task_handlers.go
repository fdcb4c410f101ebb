package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Tomlord1122/task-tracker/internal/domain"
	"github.com/Tomlord1122/task-tracker/internal/service"
)

func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	identity := s.currentUser(w, r)
	if identity == nil {
		return
	}

	params := r.URL.Query()
	query := service.TaskQuery{
		Search:   params.Get("search"),
		Status:   params.Get("status"),
		Priority: params.Get("priority"),
	}

	dashboard, err := s.taskService.Dashboard(r.Context(), identity.UserID, query)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "dashboard", pageData{
		Title:     "Dashboard",
		Dashboard: dashboard,
	})
}

func (s *Server) createTaskPage(w http.ResponseWriter, r *http.Request) {
	form := service.TaskForm{}
	form.Normalize()
	s.render(w, r, http.StatusOK, "task_form", pageData{
		Title:      "New task",
		Action:     "Create",
		FormAction: "/task/create/",
		Form:       form,
	})
}

func (s *Server) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	identity := s.currentUser(w, r)
	if identity == nil {
		return
	}

	form, ok := s.parseTaskForm(w, r)
	if !ok {
		return
	}

	_, err := s.taskService.CreateTask(r.Context(), identity.UserID, form)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			s.render(w, r, http.StatusUnprocessableEntity, "task_form", pageData{
				Title:      "New task",
				Action:     "Create",
				FormAction: "/task/create/",
				Form:       form,
				Errors:     verr.Fields,
			})
			return
		}
		s.serverError(w, r, err)
		return
	}

	s.addFlash(w, r, flashSuccess, "Task created successfully!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) taskDetailHandler(w http.ResponseWriter, r *http.Request) {
	task, ok := s.loadTask(w, r)
	if !ok {
		return
	}

	s.render(w, r, http.StatusOK, "task_detail", pageData{
		Title: task.Title,
		Task:  task,
	})
}

func (s *Server) updateTaskPage(w http.ResponseWriter, r *http.Request) {
	task, ok := s.loadTask(w, r)
	if !ok {
		return
	}

	s.render(w, r, http.StatusOK, "task_form", pageData{
		Title:      "Edit task",
		Action:     "Update",
		FormAction: r.URL.Path,
		Form:       service.TaskFormFrom(task),
		Task:       task,
	})
}

func (s *Server) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	identity := s.currentUser(w, r)
	if identity == nil {
		return
	}
	id, ok := taskID(r)
	if !ok {
		s.notFound(w, r)
		return
	}

	form, ok := s.parseTaskForm(w, r)
	if !ok {
		return
	}

	task, err := s.taskService.UpdateTask(r.Context(), identity.UserID, id, form)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			s.render(w, r, http.StatusUnprocessableEntity, "task_form", pageData{
				Title:      "Edit task",
				Action:     "Update",
				FormAction: r.URL.Path,
				Form:       form,
				Task:       &domain.Task{ID: id},
				Errors:     verr.Fields,
			})
		case errors.Is(err, service.ErrTaskNotFound):
			s.notFound(w, r)
		default:
			s.serverError(w, r, err)
		}
		return
	}

	s.log.Debug().Uint("task_id", task.ID).Msg("task form saved")
	s.addFlash(w, r, flashSuccess, "Task updated successfully!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) deleteTaskPage(w http.ResponseWriter, r *http.Request) {
	task, ok := s.loadTask(w, r)
	if !ok {
		return
	}

	s.render(w, r, http.StatusOK, "task_detail", pageData{
		Title:      "Delete task",
		Task:       task,
		DeleteMode: true,
	})
}

func (s *Server) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	identity := s.currentUser(w, r)
	if identity == nil {
		return
	}
	id, ok := taskID(r)
	if !ok {
		s.notFound(w, r)
		return
	}

	err := s.taskService.DeleteTask(r.Context(), identity.UserID, id)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			s.notFound(w, r)
			return
		}
		s.serverError(w, r, err)
		return
	}

	s.addFlash(w, r, flashSuccess, "Task deleted successfully!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) completeTaskHandler(w http.ResponseWriter, r *http.Request) {
	identity := s.currentUser(w, r)
	if identity == nil {
		return
	}
	id, ok := taskID(r)
	if !ok {
		s.notFound(w, r)
		return
	}

	err := s.taskService.CompleteTask(r.Context(), identity.UserID, id)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			s.notFound(w, r)
			return
		}
		s.serverError(w, r, err)
		return
	}

	s.addFlash(w, r, flashSuccess, "Task marked as completed!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// loadTask performs the owner-constrained fetch shared by the read-only
// task pages. It writes the 404 or error response itself when ok is false.
func (s *Server) loadTask(w http.ResponseWriter, r *http.Request) (*domain.Task, bool) {
	identity := s.currentUser(w, r)
	if identity == nil {
		return nil, false
	}
	id, ok := taskID(r)
	if !ok {
		s.notFound(w, r)
		return nil, false
	}

	task, err := s.taskService.GetTask(r.Context(), identity.UserID, id)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			s.notFound(w, r)
			return nil, false
		}
		s.serverError(w, r, err)
		return nil, false
	}
	return task, true
}

func (s *Server) parseTaskForm(w http.ResponseWriter, r *http.Request) (service.TaskForm, bool) {
	if err := r.ParseForm(); err != nil {
		s.log.Warn().Err(err).Msg("failed to parse task form")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return service.TaskForm{}, false
	}
	return service.TaskForm{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Status:      r.PostFormValue("status"),
		Priority:    r.PostFormValue("priority"),
	}, true
}

// taskID parses the {id} URL parameter. Malformed, zero and out of range
// ids are reported like missing tasks. Ids are bigint columns, so anything
// above MaxInt64 cannot exist.
func taskID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 63)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
