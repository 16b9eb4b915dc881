package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/taskmanager/taskmanager-go/internal/logging"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

var dueDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// TaskService handles task business logic. Every operation is scoped to the
// calling user; tasks owned by someone else are reported as ErrTaskNotFound.
type TaskService struct {
	repo      TaskRepository
	validator *requestValidator
	log       *slog.Logger
	now       func() time.Time
}

// NewTaskService creates a new TaskService.
func NewTaskService(repo TaskRepository, log *slog.Logger) *TaskService {
	return &TaskService{
		repo:      repo,
		validator: newRequestValidator(),
		log:       log,
		now:       time.Now,
	}
}

// Create validates the request and stores a new pending or completed task.
func (s *TaskService) Create(ctx context.Context, userID int64, req model.CreateTaskRequest) (model.Task, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	now := s.now().UTC()

	verr := &ValidationError{}
	if err := s.validator.Struct(verr, req); err != nil {
		return model.Task{}, err
	}
	var due *time.Time
	if req.DueDate != nil {
		if d, ok := parseDueDate(verr, *req.DueDate, now); ok {
			due = &d
		}
	}
	if !verr.Empty() {
		return model.Task{}, verr
	}

	status := model.StatusPending
	if req.Status != "" {
		status = model.TaskStatus(req.Status)
	}

	task := &model.Task{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		DueDate:     due,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return model.Task{}, err
	}

	logging.TaskOperation(ctx, logging.FromContext(ctx, s.log), "create", userID, task.ID)
	return *task, nil
}

// List returns the caller's active tasks, optionally narrowed by status and due window.
func (s *TaskService) List(ctx context.Context, userID int64, status, due string) ([]model.Task, error) {
	filter := model.TaskFilter{
		Scope:  model.ScopeActive,
		Status: model.TaskStatus(status),
		Due:    model.DueWindow(due),
		Now:    s.now().UTC(),
	}

	verr := &ValidationError{}
	if filter.Status != "" && !filter.Status.Valid() {
		verr.Add("status", "The selected status is invalid.")
	}
	if !filter.Due.Valid() {
		verr.Add("due", "The selected due is invalid.")
	}
	if !verr.Empty() {
		return nil, verr
	}

	tasks, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	logging.TaskOperation(ctx, logging.FromContext(ctx, s.log), "list", userID, 0,
		"filter", filter, "count", len(tasks))
	return tasks, nil
}

// Get returns one of the caller's active tasks.
func (s *TaskService) Get(ctx context.Context, userID, taskID int64) (model.Task, error) {
	task, err := s.owned(ctx, userID, taskID, model.ScopeActive)
	if err != nil {
		return model.Task{}, err
	}

	logging.TaskOperation(ctx, logging.FromContext(ctx, s.log), "view", userID, taskID)
	return *task, nil
}

// Update applies the supplied fields to an active task. Only fields present
// in the request are validated and changed; a null due_date clears it.
func (s *TaskService) Update(ctx context.Context, userID, taskID int64, req model.UpdateTaskRequest) (model.Task, error) {
	task, err := s.owned(ctx, userID, taskID, model.ScopeActive)
	if err != nil {
		return model.Task{}, err
	}

	now := s.now().UTC()
	patch, err := s.buildPatch(req, now)
	if err != nil {
		return model.Task{}, err
	}
	if patch.Empty() {
		return *task, nil
	}

	updated := patch.Apply(*task, now)
	if err := s.save(ctx, &updated, model.TaskActive); err != nil {
		return model.Task{}, err
	}

	logging.TaskOperation(ctx, logging.FromContext(ctx, s.log), "update", userID, taskID)
	return updated, nil
}

// Delete soft-deletes an active task.
func (s *TaskService) Delete(ctx context.Context, userID, taskID int64) error {
	task, err := s.owned(ctx, userID, taskID, model.ScopeActive)
	if err != nil {
		return err
	}

	trashed := task.Trash(s.now().UTC())
	if err := s.save(ctx, &trashed, model.TaskActive); err != nil {
		return err
	}

	logging.TaskOperation(ctx, logging.FromContext(ctx, s.log), "delete", userID, taskID)
	return nil
}

// Restore clears the deletion marker of a task. Restoring an active task
// returns it unchanged.
func (s *TaskService) Restore(ctx context.Context, userID, taskID int64) (model.Task, error) {
	task, err := s.owned(ctx, userID, taskID, model.ScopeAll)
	if err != nil {
		return model.Task{}, err
	}
	if task.State() == model.TaskActive {
		return *task, nil
	}

	restored := task.Restore(s.now().UTC())
	if err := s.save(ctx, &restored, model.TaskDeleted); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			// Restored by another request in the meantime.
			if current, gerr := s.owned(ctx, userID, taskID, model.ScopeActive); gerr == nil {
				return *current, nil
			}
		}
		return model.Task{}, err
	}

	logging.TaskOperation(ctx, logging.FromContext(ctx, s.log), "restore", userID, taskID)
	return restored, nil
}

// ListTrashed returns the caller's soft-deleted tasks, most recently deleted first.
func (s *TaskService) ListTrashed(ctx context.Context, userID int64) ([]model.Task, error) {
	tasks, err := s.repo.List(ctx, userID, model.TaskFilter{Scope: model.ScopeTrashed})
	if err != nil {
		return nil, err
	}

	logging.TaskOperation(ctx, logging.FromContext(ctx, s.log), "list_trashed", userID, 0, "count", len(tasks))
	return tasks, nil
}

// owned loads a task in scope and checks that userID owns it.
func (s *TaskService) owned(ctx context.Context, userID, taskID int64, scope model.TaskScope) (*model.Task, error) {
	task, err := s.repo.GetByID(ctx, taskID, scope)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if task.UserID != userID {
		logging.FromContext(ctx, s.log).WarnContext(ctx, "task access denied",
			"user_id", userID, "task_id", taskID)
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// save writes a task that was read in state from. If another request moved
// the task out of that state in the meantime nothing is written and the task
// is reported as not found.
func (s *TaskService) save(ctx context.Context, task *model.Task, from model.TaskState) error {
	err := s.repo.Save(ctx, task, from)
	if errors.Is(err, repository.ErrTaskNotFound) {
		logging.FromContext(ctx, s.log).WarnContext(ctx, "task changed concurrently",
			"user_id", task.UserID, "task_id", task.ID, "expected_state", from.String())
		return ErrTaskNotFound
	}
	return err
}

func (s *TaskService) buildPatch(req model.UpdateTaskRequest, now time.Time) (model.TaskPatch, error) {
	var patch model.TaskPatch
	verr := &ValidationError{}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if err := s.validator.Var(verr, "title", title, "required,max=255"); err != nil {
			return patch, err
		}
		patch.Title = &title
	}
	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		if err := s.validator.Var(verr, "description", desc, "required"); err != nil {
			return patch, err
		}
		patch.Description = &desc
	}
	if req.Status != nil {
		if err := s.validator.Var(verr, "status", *req.Status, "required,oneof=pending completed"); err != nil {
			return patch, err
		}
		status := model.TaskStatus(*req.Status)
		patch.Status = &status
	}
	if req.DueDate.Set {
		patch.DueDateSet = true
		if req.DueDate.Valid {
			if d, ok := parseDueDate(verr, req.DueDate.Value, now); ok {
				patch.DueDate = &d
			}
		}
	}

	if !verr.Empty() {
		return model.TaskPatch{}, verr
	}
	return patch, nil
}

// parseDueDate accepts RFC 3339 timestamps, "YYYY-MM-DD HH:MM:SS" and bare
// dates, all interpreted as UTC. The date must not be in the past.
func parseDueDate(verr *ValidationError, value string, now time.Time) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dueDateLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		t = t.UTC()
		if t.Before(now) {
			verr.Add("due_date", "The due date field must be a date after or equal to now.")
			return time.Time{}, false
		}
		return t, true
	}
	verr.Add("due_date", "The due date field must be a valid date.")
	return time.Time{}, false
}
