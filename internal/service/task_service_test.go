package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tomlord1122/task-tracker/internal/domain"
	"github.com/Tomlord1122/task-tracker/internal/repository"
)

const (
	alice uint = 1
	bob   uint = 2
)

func newTestTaskService(repo repository.TaskRepository, now time.Time) *taskService {
	return &taskService{
		log:  zerolog.Nop(),
		repo: repo,
		now:  func() time.Time { return now },
	}
}

func mustCreate(t *testing.T, svc TaskService, owner uint, form TaskForm) *domain.Task {
	t.Helper()
	task, err := svc.CreateTask(context.Background(), owner, form)
	require.NoError(t, err)
	return task
}

func TestCreateTaskAssignsOwnerAndDefaults(t *testing.T) {
	svc := newTestTaskService(newMemoryTaskRepo(), time.Now())

	task := mustCreate(t, svc, alice, TaskForm{Title: "Buy milk", Priority: "low"})
	assert.Equal(t, alice, task.UserID)
	assert.Equal(t, domain.StatusPending, task.Status)
	assert.Equal(t, domain.PriorityLow, task.Priority)
	assert.Nil(t, task.CompletedAt)
	assert.NotZero(t, task.ID)
}

func TestCreateTaskValidation(t *testing.T) {
	repo := newMemoryTaskRepo()
	svc := newTestTaskService(repo, time.Now())

	_, err := svc.CreateTask(context.Background(), alice, TaskForm{Title: "   ", Priority: "urgent"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Fields.Has("title"))
	assert.True(t, verr.Fields.Has("priority"))
	assert.Empty(t, repo.tasks)
}

func TestCreateCompletedTaskSetsCompletedAt(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestTaskService(newMemoryTaskRepo(), now)

	task := mustCreate(t, svc, alice, TaskForm{Title: "Done already", Status: "completed"})
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, now, *task.CompletedAt)
}

func TestTasksAreInvisibleToOtherUsers(t *testing.T) {
	ctx := context.Background()
	svc := newTestTaskService(newMemoryTaskRepo(), time.Now())
	task := mustCreate(t, svc, alice, TaskForm{Title: "Buy milk", Priority: "low"})

	_, err := svc.GetTask(ctx, bob, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = svc.UpdateTask(ctx, bob, task.ID, TaskForm{Title: "mine now"})
	assert.ErrorIs(t, err, ErrTaskNotFound)

	assert.ErrorIs(t, svc.CompleteTask(ctx, bob, task.ID), ErrTaskNotFound)
	assert.ErrorIs(t, svc.DeleteTask(ctx, bob, task.ID), ErrTaskNotFound)

	got, err := svc.GetTask(ctx, alice, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Title)
	assert.Equal(t, domain.StatusPending, got.Status)

	_, err = svc.GetTask(ctx, alice, 9999)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestDashboardFiltersAndCounts(t *testing.T) {
	ctx := context.Background()
	svc := newTestTaskService(newMemoryTaskRepo(), time.Now())
	mustCreate(t, svc, alice, TaskForm{Title: "Buy milk", Priority: "low"})
	mustCreate(t, svc, alice, TaskForm{Title: "Walk dog", Status: "completed"})
	mustCreate(t, svc, bob, TaskForm{Title: "Buy milk for bob"})

	dash, err := svc.Dashboard(ctx, alice, TaskQuery{Search: " MILK ", Status: "pending"})
	require.NoError(t, err)
	require.Len(t, dash.Tasks, 1)
	assert.Equal(t, "Buy milk", dash.Tasks[0].Title)
	assert.Equal(t, repository.TaskCounts{Total: 2, Pending: 1, Completed: 1}, dash.Counts)
	assert.Equal(t, " MILK ", dash.Query.Search)

	unfiltered, err := svc.Dashboard(ctx, alice, TaskQuery{})
	require.NoError(t, err)
	assert.Len(t, unfiltered.Tasks, 2)
	assert.Equal(t, dash.Counts, unfiltered.Counts)
}

func TestDashboardSearchDropsUnstorableBytes(t *testing.T) {
	ctx := context.Background()
	svc := newTestTaskService(newMemoryTaskRepo(), time.Now())
	mustCreate(t, svc, alice, TaskForm{Title: "Buy milk"})

	dash, err := svc.Dashboard(ctx, alice, TaskQuery{Search: "mi\x00lk\xff", Status: "pend\x00ing"})
	require.NoError(t, err)
	require.Len(t, dash.Tasks, 1)
	assert.Equal(t, "Buy milk", dash.Tasks[0].Title)

	filter := TaskQuery{Search: "\xff\x00", Priority: "\xfe"}.filter()
	assert.Empty(t, filter.Search)
	assert.Empty(t, filter.Priority)
}

func TestCreateTaskRejectsNullCharacters(t *testing.T) {
	repo := newMemoryTaskRepo()
	svc := newTestTaskService(repo, time.Now())

	_, err := svc.CreateTask(context.Background(), alice, TaskForm{Title: "a\x00b", Description: "\xffoops"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Null characters are not allowed.", verr.Fields.Get("title"))
	assert.Equal(t, "Enter valid text.", verr.Fields.Get("description"))
	assert.Empty(t, repo.tasks)
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestTaskService(newMemoryTaskRepo(), now)
	task := mustCreate(t, svc, alice, TaskForm{Title: "Buy milk", Priority: "low"})

	updated, err := svc.UpdateTask(ctx, alice, task.ID, TaskForm{Title: "Buy oat milk", Description: "2 litres", Status: "in_progress", Priority: "high"})
	require.NoError(t, err)
	assert.Equal(t, "Buy oat milk", updated.Title)
	assert.Equal(t, domain.StatusInProgress, updated.Status)
	assert.Equal(t, domain.PriorityHigh, updated.Priority)

	updated, err = svc.UpdateTask(ctx, alice, task.ID, TaskForm{Title: "Buy oat milk", Status: "completed", Priority: "high"})
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, now, *updated.CompletedAt)

	_, err = svc.UpdateTask(ctx, alice, task.ID, TaskForm{Title: "Buy oat milk", Status: "pending", Priority: "high"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Completed tasks cannot be reopened.", verr.Fields.Get("status"))

	stored, err := svc.GetTask(ctx, alice, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
}

func TestCompleteTaskIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryTaskRepo()
	first := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestTaskService(repo, first)
	task := mustCreate(t, svc, alice, TaskForm{Title: "Buy milk"})

	require.NoError(t, svc.CompleteTask(ctx, alice, task.ID))
	svc.now = func() time.Time { return first.Add(time.Hour) }
	require.NoError(t, svc.CompleteTask(ctx, alice, task.ID))

	got, err := svc.GetTask(ctx, alice, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, first, *got.CompletedAt)
}

func TestDeleteTaskRemovesItEverywhere(t *testing.T) {
	ctx := context.Background()
	svc := newTestTaskService(newMemoryTaskRepo(), time.Now())
	task := mustCreate(t, svc, alice, TaskForm{Title: "Buy milk"})

	require.NoError(t, svc.DeleteTask(ctx, alice, task.ID))

	_, err := svc.GetTask(ctx, alice, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	dash, err := svc.Dashboard(ctx, alice, TaskQuery{})
	require.NoError(t, err)
	assert.Empty(t, dash.Tasks)
	assert.Zero(t, dash.Counts.Total)
	assert.ErrorIs(t, svc.DeleteTask(ctx, alice, task.ID), ErrTaskNotFound)
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	repo := newMemoryTaskRepo()
	repo.err = errors.New("connection refused")
	svc := newTestTaskService(repo, time.Now())

	_, err := svc.Dashboard(context.Background(), alice, TaskQuery{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTaskNotFound)
	assert.ErrorIs(t, err, repo.err)
}
