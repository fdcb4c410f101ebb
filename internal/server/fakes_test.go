package server

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Tomlord1122/task-tracker/internal/domain"
	"github.com/Tomlord1122/task-tracker/internal/service"
)

type fakeTaskService struct {
	mu        sync.Mutex
	nextID    uint
	tasks     map[uint]domain.Task
	lastQuery service.TaskQuery
	// ids lists every task id looked up, in order.
	ids []uint
}

func newFakeTaskService() *fakeTaskService {
	return &fakeTaskService{tasks: make(map[uint]domain.Task)}
}

func (f *fakeTaskService) Dashboard(_ context.Context, ownerID uint, query service.TaskQuery) (*service.Dashboard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = query

	search := strings.ToLower(strings.TrimSpace(query.Search))
	dash := &service.Dashboard{Query: query}
	for _, task := range f.tasks {
		if task.UserID != ownerID {
			continue
		}
		dash.Counts.Total++
		switch task.Status {
		case domain.StatusPending:
			dash.Counts.Pending++
		case domain.StatusCompleted:
			dash.Counts.Completed++
		}

		if search != "" &&
			!strings.Contains(strings.ToLower(task.Title), search) &&
			!strings.Contains(strings.ToLower(task.Description), search) {
			continue
		}
		if query.Status != "" && string(task.Status) != query.Status {
			continue
		}
		if query.Priority != "" && string(task.Priority) != query.Priority {
			continue
		}
		dash.Tasks = append(dash.Tasks, task)
	}
	sort.Slice(dash.Tasks, func(i, j int) bool { return dash.Tasks[i].ID > dash.Tasks[j].ID })
	return dash, nil
}

func (f *fakeTaskService) find(ownerID, id uint) (domain.Task, error) {
	f.ids = append(f.ids, id)
	task, ok := f.tasks[id]
	if !ok || task.UserID != ownerID {
		return domain.Task{}, service.ErrTaskNotFound
	}
	return task, nil
}

func (f *fakeTaskService) GetTask(_ context.Context, ownerID, id uint) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, err := f.find(ownerID, id)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (f *fakeTaskService) CreateTask(_ context.Context, ownerID uint, form service.TaskForm) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	form.Normalize()
	if errs := form.Validate(nil); len(errs) > 0 {
		return nil, &service.ValidationError{Fields: errs}
	}
	f.nextID++
	now := time.Now()
	task := domain.Task{
		ID:          f.nextID,
		UserID:      ownerID,
		Title:       form.Title,
		Description: form.Description,
		Status:      domain.TaskStatus(form.Status),
		Priority:    domain.TaskPriority(form.Priority),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.tasks[task.ID] = task
	return &task, nil
}

func (f *fakeTaskService) UpdateTask(_ context.Context, ownerID, id uint, form service.TaskForm) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, err := f.find(ownerID, id)
	if err != nil {
		return nil, err
	}
	form.Normalize()
	if errs := form.Validate(&task); len(errs) > 0 {
		return nil, &service.ValidationError{Fields: errs}
	}
	task.Title = form.Title
	task.Description = form.Description
	task.Status = domain.TaskStatus(form.Status)
	task.Priority = domain.TaskPriority(form.Priority)
	f.tasks[id] = task
	return &task, nil
}

func (f *fakeTaskService) DeleteTask(_ context.Context, ownerID, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.find(ownerID, id); err != nil {
		return err
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeTaskService) CompleteTask(_ context.Context, ownerID, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, err := f.find(ownerID, id)
	if err != nil {
		return err
	}
	task.MarkCompleted(time.Now())
	f.tasks[id] = task
	return nil
}

func (f *fakeTaskService) requestedIDs() []uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint(nil), f.ids...)
}

func (f *fakeTaskService) get(id uint) (domain.Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	return task, ok
}

type fakeAuthService struct {
	mu       sync.Mutex
	nextID   uint
	users    map[string]fakeUser
	sessions map[string]service.Identity
	ended    int
}

type fakeUser struct {
	user     domain.User
	password string
}

func newFakeAuthService() *fakeAuthService {
	return &fakeAuthService{
		users:    make(map[string]fakeUser),
		sessions: make(map[string]service.Identity),
	}
}

func (f *fakeAuthService) Register(_ context.Context, form service.RegisterForm) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	form.Normalize()
	errs := form.Validate()
	if _, taken := f.users[form.Username]; taken {
		errs.Add("username", "A user with that username already exists.")
	}
	if len(errs) > 0 {
		return nil, &service.ValidationError{Fields: errs}
	}
	f.nextID++
	user := domain.User{ID: f.nextID, Username: form.Username}
	f.users[form.Username] = fakeUser{user: user, password: form.Password1}
	return &user, nil
}

func (f *fakeAuthService) Authenticate(_ context.Context, username, password string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok || u.password != password {
		return nil, service.ErrInvalidCredentials
	}
	user := u.user
	return &user, nil
}

func (f *fakeAuthService) StartSession(_ context.Context, user *domain.User) (*service.SessionToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := fmt.Sprintf("token-%d-%d", user.ID, len(f.sessions)+f.ended+1)
	f.sessions[token] = service.Identity{UserID: user.ID, Username: user.Username, SessionID: token}
	return &service.SessionToken{Token: token, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeAuthService) ResolveSession(_ context.Context, token string) (*service.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	identity, ok := f.sessions[token]
	if !ok {
		return nil, service.ErrSessionNotFound
	}
	return &identity, nil
}

func (f *fakeAuthService) EndSession(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[token]; ok {
		delete(f.sessions, token)
		f.ended++
	}
	return nil
}

func (f *fakeAuthService) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

type fakeDB struct {
	mu     sync.Mutex
	status string
}

func (d *fakeDB) setStatus(status string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = status
}

func (d *fakeDB) Health() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return map[string]string{"status": d.status}
}

func (d *fakeDB) Close() error    { return nil }
func (d *fakeDB) GetDB() *gorm.DB { return nil }
func (d *fakeDB) Migrate() error  { return nil }
