package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

func strPtr(s string) *string { return &s }

func createTask(t *testing.T, svc *TaskService, userID int64, title string) model.Task {
	t.Helper()
	task, err := svc.Create(context.Background(), userID, model.CreateTaskRequest{
		Title:       title,
		Description: title + " description",
	})
	require.NoError(t, err)
	return task
}

func TestCreateThenGet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	due := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)

	created, err := env.tasks.Create(ctx, 1, model.CreateTaskRequest{
		Title:       "  Write report ",
		Description: "Quarterly numbers",
		DueDate:     strPtr(due.Format(time.RFC3339)),
	})
	require.NoError(t, err)

	got, err := env.tasks.Get(ctx, 1, created.ID)
	require.NoError(t, err)

	assert.Equal(t, "Write report", got.Title)
	assert.Equal(t, "Quarterly numbers", got.Description)
	assert.Equal(t, model.StatusPending, got.Status)
	require.NotNil(t, got.DueDate)
	assert.True(t, got.DueDate.Equal(due))
	assert.Equal(t, int64(1), got.UserID)
	assert.Equal(t, model.TaskActive, got.State())
}

func TestCreateWithStatus(t *testing.T) {
	env := newTestEnv(t)

	task, err := env.tasks.Create(context.Background(), 1, model.CreateTaskRequest{
		Title: "Done already", Description: "d", Status: "completed",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, task.Status)
}

func TestCreateValidation(t *testing.T) {
	past := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)

	tests := []struct {
		name  string
		req   model.CreateTaskRequest
		field string
	}{
		{"missing title", model.CreateTaskRequest{Title: "  ", Description: "d"}, "title"},
		{"long title", model.CreateTaskRequest{Title: strings.Repeat("a", 256), Description: "d"}, "title"},
		{"missing description", model.CreateTaskRequest{Title: "t"}, "description"},
		{"bad status", model.CreateTaskRequest{Title: "t", Description: "d", Status: "archived"}, "status"},
		{"past due date", model.CreateTaskRequest{Title: "t", Description: "d", DueDate: &past}, "due_date"},
		{"unparseable due date", model.CreateTaskRequest{Title: "t", Description: "d", DueDate: strPtr("next tuesday")}, "due_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.tasks.Create(context.Background(), 1, tt.req)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestNonOwnerIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := createTask(t, env.tasks, 1, "private")
	trashed := createTask(t, env.tasks, 1, "private trashed")
	require.NoError(t, env.tasks.Delete(ctx, 1, trashed.ID))

	for _, id := range []int64{task.ID, trashed.ID, 9999} {
		_, err := env.tasks.Get(ctx, 2, id)
		assert.ErrorIs(t, err, ErrTaskNotFound)

		_, err = env.tasks.Update(ctx, 2, id, model.UpdateTaskRequest{Title: strPtr("stolen")})
		assert.ErrorIs(t, err, ErrTaskNotFound)

		assert.ErrorIs(t, env.tasks.Delete(ctx, 2, id), ErrTaskNotFound)

		_, err = env.tasks.Restore(ctx, 2, id)
		assert.ErrorIs(t, err, ErrTaskNotFound)
	}

	got, err := env.tasks.Get(ctx, 1, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "private", got.Title)

	trash, err := env.tasks.ListTrashed(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, trash, 1, "non-owner restore leaves the task trashed")
}

func TestDeleteListRestoreScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	keep := createTask(t, env.tasks, 1, "keep")
	drop := createTask(t, env.tasks, 1, "drop")

	require.NoError(t, env.tasks.Delete(ctx, 1, drop.ID))

	active, err := env.tasks.List(ctx, 1, "", "")
	require.NoError(t, err)
	assert.Equal(t, []int64{keep.ID}, ids(active))

	trashed, err := env.tasks.ListTrashed(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{drop.ID}, ids(trashed))
	assert.Equal(t, model.TaskDeleted, trashed[0].State())

	_, err = env.tasks.Get(ctx, 1, drop.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound, "trashed tasks are hidden from get")
	assert.ErrorIs(t, env.tasks.Delete(ctx, 1, drop.ID), ErrTaskNotFound)

	restored, err := env.tasks.Restore(ctx, 1, drop.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskActive, restored.State())

	active, err = env.tasks.List(ctx, 1, "", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{keep.ID, drop.ID}, ids(active))

	trashed, err = env.tasks.ListTrashed(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, trashed)
}

func TestRestoreActiveIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := createTask(t, env.tasks, 1, "active")

	first, err := env.tasks.Restore(ctx, 1, task.ID)
	require.NoError(t, err)
	second, err := env.tasks.Restore(ctx, 1, task.ID)
	require.NoError(t, err)

	assert.Equal(t, task, first)
	assert.Equal(t, task, second)
}

func TestListFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pending := createTask(t, env.tasks, 1, "pending")
	done, err := env.tasks.Create(ctx, 1, model.CreateTaskRequest{Title: "done", Description: "d", Status: "completed"})
	require.NoError(t, err)
	createTask(t, env.tasks, 2, "someone else")

	list, err := env.tasks.List(ctx, 1, "completed", "")
	require.NoError(t, err)
	assert.Equal(t, []int64{done.ID}, ids(list))

	list, err = env.tasks.List(ctx, 1, "pending", "")
	require.NoError(t, err)
	assert.Equal(t, []int64{pending.ID}, ids(list))

	_, err = env.tasks.List(ctx, 1, "archived", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "status")

	_, err = env.tasks.List(ctx, 1, "", "someday")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "due")
}

func TestListDueOverdue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := createTask(t, env.tasks, 1, "late")
	createTask(t, env.tasks, 1, "no due date")

	due := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	_, err := env.tasks.Update(ctx, 1, task.ID, model.UpdateTaskRequest{
		DueDate: model.NullableString{Set: true, Valid: true, Value: due},
	})
	require.NoError(t, err)

	// Move the clock forward so the due date has passed.
	env.tasks.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	list, err := env.tasks.List(ctx, 1, "", "overdue")
	require.NoError(t, err)
	assert.Equal(t, []int64{task.ID}, ids(list))
}

func TestUpdatePartial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task, err := env.tasks.Create(ctx, 1, model.CreateTaskRequest{
		Title:       "original",
		Description: "keep me",
		DueDate:     strPtr(time.Now().UTC().Add(24 * time.Hour).Format("2006-01-02 15:04:05")),
	})
	require.NoError(t, err)
	require.NotNil(t, task.DueDate)

	updated, err := env.tasks.Update(ctx, 1, task.ID, model.UpdateTaskRequest{
		Title:  strPtr("renamed"),
		Status: strPtr("completed"),
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, "keep me", updated.Description)
	assert.Equal(t, model.StatusCompleted, updated.Status)
	assert.NotNil(t, updated.DueDate)

	cleared, err := env.tasks.Update(ctx, 1, task.ID, model.UpdateTaskRequest{
		DueDate: model.NullableString{Set: true},
	})
	require.NoError(t, err)
	assert.Nil(t, cleared.DueDate)

	got, err := env.tasks.Get(ctx, 1, task.ID)
	require.NoError(t, err)
	assert.Equal(t, cleared, got)
}

func TestUpdateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task := createTask(t, env.tasks, 1, "t")

	tests := []struct {
		name  string
		req   model.UpdateTaskRequest
		field string
	}{
		{"blank title", model.UpdateTaskRequest{Title: strPtr(" ")}, "title"},
		{"blank description", model.UpdateTaskRequest{Description: strPtr("")}, "description"},
		{"bad status", model.UpdateTaskRequest{Status: strPtr("archived")}, "status"},
		{"past due date", model.UpdateTaskRequest{DueDate: model.NullableString{Set: true, Valid: true, Value: "2000-01-01"}}, "due_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.tasks.Update(ctx, 1, task.ID, tt.req)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	got, err := env.tasks.Get(ctx, 1, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task, got, "rejected updates change nothing")
}

func ids(tasks []model.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID
	}
	return out
}

// interleavedTaskRepository runs between right after the next GetByID, so a
// second request commits while the first still holds its copy of the task.
type interleavedTaskRepository struct {
	*repository.MemoryTaskRepository
	between func()
}

func (r *interleavedTaskRepository) GetByID(ctx context.Context, id int64, scope model.TaskScope) (*model.Task, error) {
	task, err := r.MemoryTaskRepository.GetByID(ctx, id, scope)
	if hook := r.between; hook != nil {
		r.between = nil
		hook()
	}
	return task, err
}

func newInterleavedTaskService() (*TaskService, *interleavedTaskRepository) {
	repo := &interleavedTaskRepository{MemoryTaskRepository: repository.NewMemoryTaskRepository()}
	return NewTaskService(repo, discardLogger()), repo
}

func TestUpdateDoesNotUndoConcurrentDelete(t *testing.T) {
	svc, repo := newInterleavedTaskService()
	ctx := context.Background()
	task := createTask(t, svc, 1, "contested")

	repo.between = func() {
		require.NoError(t, svc.Delete(ctx, 1, task.ID))
	}
	_, err := svc.Update(ctx, 1, task.ID, model.UpdateTaskRequest{Title: strPtr("renamed")})
	assert.ErrorIs(t, err, ErrTaskNotFound)

	active, err := svc.List(ctx, 1, "", "")
	require.NoError(t, err)
	assert.Empty(t, active)

	trashed, err := svc.ListTrashed(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{task.ID}, ids(trashed))
	assert.Equal(t, "contested", trashed[0].Title)
}

func TestDeleteKeepsConcurrentUpdate(t *testing.T) {
	svc, repo := newInterleavedTaskService()
	ctx := context.Background()
	task := createTask(t, svc, 1, "before")

	repo.between = func() {
		_, err := svc.Update(ctx, 1, task.ID, model.UpdateTaskRequest{Title: strPtr("after")})
		require.NoError(t, err)
	}
	require.NoError(t, svc.Delete(ctx, 1, task.ID))

	trashed, err := svc.ListTrashed(ctx, 1)
	require.NoError(t, err)
	require.Len(t, trashed, 1)
	assert.Equal(t, "after", trashed[0].Title)
}

func TestDeleteLosesToConcurrentDelete(t *testing.T) {
	svc, repo := newInterleavedTaskService()
	ctx := context.Background()
	task := createTask(t, svc, 1, "twice")

	repo.between = func() {
		require.NoError(t, svc.Delete(ctx, 1, task.ID))
	}
	assert.ErrorIs(t, svc.Delete(ctx, 1, task.ID), ErrTaskNotFound)

	trashed, err := svc.ListTrashed(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, trashed, 1)
}

func TestConcurrentRestoresBothSucceed(t *testing.T) {
	svc, repo := newInterleavedTaskService()
	ctx := context.Background()
	task := createTask(t, svc, 1, "back")
	require.NoError(t, svc.Delete(ctx, 1, task.ID))

	repo.between = func() {
		_, err := svc.Restore(ctx, 1, task.ID)
		require.NoError(t, err)
	}
	restored, err := svc.Restore(ctx, 1, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskActive, restored.State())

	trashed, err := svc.ListTrashed(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, trashed)
}

func TestReadOperationsAreAudited(t *testing.T) {
	var buf bytes.Buffer
	svc := NewTaskService(repository.NewMemoryTaskRepository(), slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx := context.Background()

	task := createTask(t, svc, 7, "audited")
	createTask(t, svc, 7, "other")
	_, err := svc.Get(ctx, 7, task.ID)
	require.NoError(t, err)
	_, err = svc.List(ctx, 7, "pending", "")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, 7, task.ID))
	_, err = svc.ListTrashed(ctx, 7)
	require.NoError(t, err)

	ops := make(map[string]map[string]any)
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var rec map[string]any
		require.NoError(t, dec.Decode(&rec))
		if rec["msg"] == "task operation" {
			ops[rec["operation"].(string)] = rec
		}
	}

	require.Contains(t, ops, "view")
	assert.EqualValues(t, task.ID, ops["view"]["task_id"])
	assert.EqualValues(t, 7, ops["view"]["user_id"])

	require.Contains(t, ops, "list")
	assert.EqualValues(t, 2, ops["list"]["count"])
	assert.Equal(t, map[string]any{"status": "pending", "due": ""}, ops["list"]["filter"])
	assert.NotContains(t, ops["list"], "task_id")

	require.Contains(t, ops, "list_trashed")
	assert.EqualValues(t, 1, ops["list_trashed"]["count"])
}
