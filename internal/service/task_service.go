package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Tomlord1122/task-tracker/internal/domain"
	"github.com/Tomlord1122/task-tracker/internal/repository"
)

// TaskQuery holds the raw dashboard filter parameters.
type TaskQuery struct {
	Search   string
	Status   string
	Priority string
}

func (q TaskQuery) filter() repository.TaskFilter {
	return repository.TaskFilter{
		Search:   strings.TrimSpace(cleanText(q.Search)),
		Status:   domain.TaskStatus(strings.TrimSpace(cleanText(q.Status))),
		Priority: domain.TaskPriority(strings.TrimSpace(cleanText(q.Priority))),
	}
}

// Dashboard is the view of a user's tasks: the filtered list plus counts
// over everything the user owns.
type Dashboard struct {
	Tasks  []domain.Task
	Counts repository.TaskCounts
	Query  TaskQuery
}

// TaskService defines the operations on a user's tasks. Every method takes
// the owner explicitly; tasks of other users behave as if they did not exist.
type TaskService interface {
	// Dashboard lists the owner's tasks matching query, newest first.
	Dashboard(ctx context.Context, ownerID uint, query TaskQuery) (*Dashboard, error)

	// GetTask returns ErrTaskNotFound unless the task exists and belongs to ownerID.
	GetTask(ctx context.Context, ownerID, id uint) (*domain.Task, error)

	// CreateTask validates form and stores a new task for ownerID.
	CreateTask(ctx context.Context, ownerID uint, form TaskForm) (*domain.Task, error)

	// UpdateTask validates form and applies it to the owner's task.
	UpdateTask(ctx context.Context, ownerID, id uint, form TaskForm) (*domain.Task, error)

	// DeleteTask permanently removes the owner's task.
	DeleteTask(ctx context.Context, ownerID, id uint) error

	// CompleteTask marks the owner's task completed. Completing a completed
	// task is a no-op.
	CompleteTask(ctx context.Context, ownerID, id uint) error
}

type taskService struct {
	log  zerolog.Logger
	repo repository.TaskRepository
	now  func() time.Time
}

func NewTaskService(log zerolog.Logger, repo repository.TaskRepository) TaskService {
	return &taskService{
		log:  log,
		repo: repo,
		now:  time.Now,
	}
}

func (s *taskService) Dashboard(ctx context.Context, ownerID uint, query TaskQuery) (*Dashboard, error) {
	tasks, err := s.repo.ListByOwner(ctx, ownerID, query.filter())
	if err != nil {
		s.log.Error().
			Err(err).
			Uint("user_id", ownerID).
			Msg("failed to list tasks")
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	counts, err := s.repo.CountByOwner(ctx, ownerID)
	if err != nil {
		s.log.Error().
			Err(err).
			Uint("user_id", ownerID).
			Msg("failed to count tasks")
		return nil, fmt.Errorf("count tasks: %w", err)
	}

	s.log.Debug().
		Uint("user_id", ownerID).
		Int("count", len(tasks)).
		Int64("total", counts.Total).
		Msg("loaded dashboard")
	return &Dashboard{Tasks: tasks, Counts: counts, Query: query}, nil
}

func (s *taskService) GetTask(ctx context.Context, ownerID, id uint) (*domain.Task, error) {
	task, err := s.repo.FindByOwner(ctx, id, ownerID)
	if err != nil {
		return nil, s.translate(err, "get task", ownerID, id)
	}
	return task, nil
}

func (s *taskService) CreateTask(ctx context.Context, ownerID uint, form TaskForm) (*domain.Task, error) {
	form.Normalize()
	if err := newValidationError(form.Validate(nil)); err != nil {
		return nil, err
	}

	task := &domain.Task{
		UserID:      ownerID,
		Title:       form.Title,
		Description: form.Description,
		Status:      domain.TaskStatus(form.Status),
		Priority:    domain.TaskPriority(form.Priority),
	}
	if task.IsCompleted() {
		task.MarkCompleted(s.now())
	}

	if err := s.repo.Create(ctx, task); err != nil {
		s.log.Error().
			Err(err).
			Uint("user_id", ownerID).
			Msg("failed to insert task")
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.log.Info().
		Uint("task_id", task.ID).
		Uint("user_id", ownerID).
		Msg("created task")
	return task, nil
}

func (s *taskService) UpdateTask(ctx context.Context, ownerID, id uint, form TaskForm) (*domain.Task, error) {
	task, err := s.repo.FindByOwner(ctx, id, ownerID)
	if err != nil {
		return nil, s.translate(err, "get task for update", ownerID, id)
	}

	form.Normalize()
	if err := newValidationError(form.Validate(task)); err != nil {
		return nil, err
	}

	task.Title = form.Title
	task.Description = form.Description
	task.Priority = domain.TaskPriority(form.Priority)
	task.Status = domain.TaskStatus(form.Status)
	if task.IsCompleted() {
		task.MarkCompleted(s.now())
	}

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, s.translate(err, "update task", ownerID, id)
	}

	s.log.Info().
		Uint("task_id", id).
		Uint("user_id", ownerID).
		Msg("updated task")
	return task, nil
}

func (s *taskService) DeleteTask(ctx context.Context, ownerID, id uint) error {
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return s.translate(err, "delete task", ownerID, id)
	}

	s.log.Info().
		Uint("task_id", id).
		Uint("user_id", ownerID).
		Msg("deleted task")
	return nil
}

func (s *taskService) CompleteTask(ctx context.Context, ownerID, id uint) error {
	if err := s.repo.Complete(ctx, id, ownerID, s.now()); err != nil {
		return s.translate(err, "complete task", ownerID, id)
	}

	s.log.Info().
		Uint("task_id", id).
		Uint("user_id", ownerID).
		Msg("completed task")
	return nil
}

// translate maps a repository error to ErrTaskNotFound or a wrapped error.
func (s *taskService) translate(err error, op string, ownerID, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.Debug().
			Uint("task_id", id).
			Uint("user_id", ownerID).
			Msg("task not found")
		return ErrTaskNotFound
	}

	s.log.Error().
		Err(err).
		Uint("task_id", id).
		Uint("user_id", ownerID).
		Msg("failed to " + op)
	return fmt.Errorf("%s %d: %w", op, id, err)
}
