package model

import (
	"encoding/json"
	"log/slog"
	"time"
)

// TaskStatus is the completion state of a task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// TaskState is the lifecycle state of a task.
type TaskState int

const (
	TaskActive TaskState = iota
	TaskDeleted
)

func (s TaskState) String() string {
	if s == TaskDeleted {
		return "deleted"
	}
	return "active"
}

// Scope returns the scope that selects exactly the tasks in state s.
func (s TaskState) Scope() TaskScope {
	if s == TaskDeleted {
		return ScopeTrashed
	}
	return ScopeActive
}

// Task represents a task in the database. DeletedAt is the persisted form of
// the soft-delete state; use State, Trash and Restore rather than touching it.
type Task struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	Status      TaskStatus
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// State returns whether the task is active or soft-deleted.
func (t Task) State() TaskState {
	if t.DeletedAt != nil {
		return TaskDeleted
	}
	return TaskActive
}

// Trash returns a copy of t marked as deleted at the given time.
// Trashing an already deleted task keeps the original deletion time.
func (t Task) Trash(at time.Time) Task {
	if t.State() == TaskDeleted {
		return t
	}
	t.DeletedAt = &at
	t.UpdatedAt = at
	return t
}

// Restore returns a copy of t with the deletion marker cleared.
func (t Task) Restore(at time.Time) Task {
	if t.State() == TaskActive {
		return t
	}
	t.DeletedAt = nil
	t.UpdatedAt = at
	return t
}

// Response converts the task into its API representation.
func (t Task) Response() TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		DeletedAt:   t.DeletedAt,
	}
}

// TaskScope selects which lifecycle states a query returns.
type TaskScope int

const (
	ScopeActive TaskScope = iota
	ScopeTrashed
	ScopeAll
)

// Includes reports whether a task in state s is visible in the scope.
func (sc TaskScope) Includes(s TaskState) bool {
	switch sc {
	case ScopeActive:
		return s == TaskActive
	case ScopeTrashed:
		return s == TaskDeleted
	default:
		return true
	}
}

// DueWindow narrows a listing by due date.
type DueWindow string

const (
	DueAny     DueWindow = ""
	DueOverdue DueWindow = "overdue"
	DueToday   DueWindow = "today"
	DueWeek    DueWindow = "week"
)

// Valid reports whether w is a known window.
func (w DueWindow) Valid() bool {
	switch w {
	case DueAny, DueOverdue, DueToday, DueWeek:
		return true
	}
	return false
}

// Bounds returns the half-open interval [from, to) covered by the window.
// DueOverdue has no lower bound and ends at now.
func (w DueWindow) Bounds(now time.Time) (from, to time.Time) {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch w {
	case DueOverdue:
		return time.Time{}, now
	case DueToday:
		return day, day.AddDate(0, 0, 1)
	case DueWeek:
		// Weeks start on Monday.
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7)
	}
	return time.Time{}, time.Time{}
}

// TaskFilter describes a task listing.
type TaskFilter struct {
	Scope  TaskScope
	Status TaskStatus
	Due    DueWindow
	Now    time.Time
}

// LogValue logs the request-supplied parts of the filter.
func (f TaskFilter) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("status", string(f.Status)),
		slog.String("due", string(f.Due)),
	)
}

// Match reports whether t satisfies the filter. Ownership is not checked here.
func (f TaskFilter) Match(t Task) bool {
	if !f.Scope.Includes(t.State()) {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Due == DueAny {
		return true
	}
	if t.DueDate == nil {
		return false
	}
	from, to := f.Due.Bounds(f.Now)
	due := t.DueDate.UTC()
	if f.Due == DueOverdue {
		return due.Before(to) && t.Status == StatusPending
	}
	return !due.Before(from) && due.Before(to)
}

// TaskPatch lists the fields of an update. Nil fields are left unchanged.
// DueDateSet distinguishes an explicit null (clear) from an omitted field.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	DueDateSet  bool
	DueDate     *time.Time
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && !p.DueDateSet
}

// Apply returns a copy of t with the patch applied and UpdatedAt set to now.
func (p TaskPatch) Apply(t Task, now time.Time) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.DueDateSet {
		if p.DueDate == nil {
			t.DueDate = nil
		} else {
			d := *p.DueDate
			t.DueDate = &d
		}
	}
	t.UpdatedAt = now
	return t
}

// CreateTaskRequest represents a task creation request.
type CreateTaskRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description string  `json:"description" validate:"required"`
	Status      string  `json:"status" validate:"omitempty,oneof=pending completed"`
	DueDate     *string `json:"due_date"`
}

// UpdateTaskRequest represents a partial task update. Omitted fields keep their value.
type UpdateTaskRequest struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Status      *string        `json:"status"`
	DueDate     NullableString `json:"due_date"`
}

// NullableString tells apart an omitted JSON field, an explicit null and a value.
type NullableString struct {
	Set   bool
	Valid bool
	Value string
}

// UnmarshalJSON implements json.Unmarshaler. It is only invoked when the key is present.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Valid = false
		n.Value = ""
		return nil
	}
	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// TaskResponse represents a task in API responses.
type TaskResponse struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at"`
}

// TasksToResponse converts tasks to their API representation. It never returns nil.
func TasksToResponse(tasks []Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = t.Response()
	}
	return result
}
