package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Tomlord1122/task-tracker/internal/domain"
	"github.com/Tomlord1122/task-tracker/internal/repository"
)

type memoryTaskRepo struct {
	mu     sync.Mutex
	nextID uint
	tasks  map[uint]domain.Task
	err    error
}

func newMemoryTaskRepo() *memoryTaskRepo {
	return &memoryTaskRepo{tasks: make(map[uint]domain.Task)}
}

func (r *memoryTaskRepo) Create(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.nextID++
	task.ID = r.nextID
	task.CreatedAt = time.Now().Add(time.Duration(r.nextID) * time.Millisecond)
	task.UpdatedAt = task.CreatedAt
	r.tasks[task.ID] = *task
	return nil
}

func (r *memoryTaskRepo) FindByOwner(_ context.Context, id, ownerID uint) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.UserID != ownerID {
		return nil, gorm.ErrRecordNotFound
	}
	return &task, nil
}

func (r *memoryTaskRepo) ListByOwner(_ context.Context, ownerID uint, filter repository.TaskFilter) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	search := strings.ToLower(filter.Search)
	var out []domain.Task
	for _, task := range r.tasks {
		if task.UserID != ownerID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(task.Title), search) &&
			!strings.Contains(strings.ToLower(task.Description), search) {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && task.Priority != filter.Priority {
			continue
		}
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memoryTaskRepo) CountByOwner(_ context.Context, ownerID uint) (repository.TaskCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var counts repository.TaskCounts
	for _, task := range r.tasks {
		if task.UserID != ownerID {
			continue
		}
		counts.Total++
		switch task.Status {
		case domain.StatusPending:
			counts.Pending++
		case domain.StatusCompleted:
			counts.Completed++
		}
	}
	return counts, nil
}

func (r *memoryTaskRepo) Update(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tasks[task.ID]
	if !ok || stored.UserID != task.UserID {
		return gorm.ErrRecordNotFound
	}
	r.tasks[task.ID] = *task
	return nil
}

func (r *memoryTaskRepo) Complete(_ context.Context, id, ownerID uint, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.UserID != ownerID {
		return gorm.ErrRecordNotFound
	}
	task.MarkCompleted(now)
	r.tasks[id] = task
	return nil
}

func (r *memoryTaskRepo) Delete(_ context.Context, id, ownerID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.UserID != ownerID {
		return gorm.ErrRecordNotFound
	}
	delete(r.tasks, id)
	return nil
}

type memoryUserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[string]domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]domain.User)}
}

func (r *memoryUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Username]; ok {
		return repository.ErrDuplicateUsername
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.Username] = *user
	return nil
}

func (r *memoryUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[username]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func (r *memoryUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[username]
	return ok, nil
}

func (r *memoryUserRepo) byID(id uint) (domain.User, bool) {
	for _, user := range r.users {
		if user.ID == id {
			return user, true
		}
	}
	return domain.User{}, false
}

type memorySessionRepo struct {
	mu       sync.Mutex
	users    *memoryUserRepo
	sessions map[string]domain.Session
}

func newMemorySessionRepo(users *memoryUserRepo) *memorySessionRepo {
	return &memorySessionRepo{users: users, sessions: make(map[string]domain.Session)}
}

func (r *memorySessionRepo) Create(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; ok {
		return errors.New("duplicate session id")
	}
	r.sessions[session.ID] = *session
	return nil
}

func (r *memorySessionRepo) FindActive(_ context.Context, id string, now time.Time) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok || !session.ExpiresAt.After(now) {
		return nil, gorm.ErrRecordNotFound
	}
	r.users.mu.Lock()
	session.User, _ = r.users.byID(session.UserID)
	r.users.mu.Unlock()
	return &session, nil
}

func (r *memorySessionRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *memorySessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, session := range r.sessions {
		if !session.ExpiresAt.After(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}
