package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Tomlord1122/task-tracker/internal/domain"
)

// TaskFilter narrows a user's task list. Zero values mean "no constraint".
type TaskFilter struct {
	Search   string
	Status   domain.TaskStatus
	Priority domain.TaskPriority
}

// TaskCounts summarises all of a user's tasks regardless of any filter.
type TaskCounts struct {
	Total     int64
	Pending   int64
	Completed int64
}

// TaskRepository defines task persistence. Every lookup and mutation of a
// single task is keyed by (id, owner) and returns gorm.ErrRecordNotFound
// both when the task is missing and when it belongs to someone else.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	FindByOwner(ctx context.Context, id, ownerID uint) (*domain.Task, error)
	ListByOwner(ctx context.Context, ownerID uint, filter TaskFilter) ([]domain.Task, error)
	CountByOwner(ctx context.Context, ownerID uint) (TaskCounts, error)
	Update(ctx context.Context, task *domain.Task) error
	Complete(ctx context.Context, id, ownerID uint, now time.Time) error
	Delete(ctx context.Context, id, ownerID uint) error
}

type gormTaskRepository struct {
	db *gorm.DB
}

func NewGormTaskRepository(db *gorm.DB) TaskRepository {
	return &gormTaskRepository{db: db}
}

func (r *gormTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *gormTaskRepository) FindByOwner(ctx context.Context, id, ownerID uint) (*domain.Task, error) {
	var task domain.Task
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&task)
	if result.Error != nil {
		return nil, result.Error
	}
	return &task, nil
}

func (r *gormTaskRepository) ListByOwner(ctx context.Context, ownerID uint, filter TaskFilter) ([]domain.Task, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", ownerID)

	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		query = query.Where("(title ILIKE ? OR description ILIKE ?)", pattern, pattern)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}

	var tasks []domain.Task
	result := query.Order("created_at DESC").Order("id DESC").Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

func (r *gormTaskRepository) CountByOwner(ctx context.Context, ownerID uint) (TaskCounts, error) {
	var counts TaskCounts
	result := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Select(
			"COUNT(*) AS total, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed",
			domain.StatusPending, domain.StatusCompleted,
		).
		Where("user_id = ?", ownerID).
		Scan(&counts)
	return counts, result.Error
}

// Update writes the editable columns of task. The owner is part of the
// predicate, so a task whose UserID does not match is reported as not found.
func (r *gormTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	task.UpdatedAt = time.Now()
	result := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ? AND user_id = ?", task.ID, task.UserID).
		Updates(map[string]any{
			"title":        task.Title,
			"description":  task.Description,
			"status":       task.Status,
			"priority":     task.Priority,
			"completed_at": task.CompletedAt,
			"updated_at":   task.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Complete marks the task completed in a single statement. An existing
// completed_at is preserved.
func (r *gormTaskRepository) Complete(ctx context.Context, id, ownerID uint, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Updates(map[string]any{
			"status":       domain.StatusCompleted,
			"completed_at": gorm.Expr("COALESCE(completed_at, ?)", now),
			"updated_at":   now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormTaskRepository) Delete(ctx context.Context, id, ownerID uint) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&domain.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
