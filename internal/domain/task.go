package domain

import "time"

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

// TaskStatuses lists the statuses in display order.
var TaskStatuses = []TaskStatus{StatusPending, StatusInProgress, StatusCompleted}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func (s TaskStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	}
	return string(s)
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// TaskPriorities lists the priorities in display order.
var TaskPriorities = []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh}

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (p TaskPriority) Label() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	}
	return string(p)
}

// Task has no DeletedAt column: deletes are permanent.
type Task struct {
	ID          uint         `gorm:"primarykey"`
	UserID      uint         `gorm:"not null;index"`
	Title       string       `gorm:"size:200;not null"`
	Description string       `gorm:"type:text;not null;default:''"`
	Status      TaskStatus   `gorm:"size:20;not null;default:'pending';index"`
	Priority    TaskPriority `gorm:"size:10;not null;default:'medium'"`
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// MarkCompleted moves the task to completed, keeping the first completion time.
func (t *Task) MarkCompleted(now time.Time) {
	t.Status = StatusCompleted
	if t.CompletedAt == nil {
		t.CompletedAt = &now
	}
}
