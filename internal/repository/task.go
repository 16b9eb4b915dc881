package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/taskmanager/taskmanager-go/internal/model"
)

var ErrTaskNotFound = errors.New("task not found")

const taskColumns = `id, user_id, title, description, status, due_date, created_at, updated_at, deleted_at`

// TaskRepository handles task persistence operations.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new task and sets the generated ID on the task struct.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	query := `INSERT INTO tasks (user_id, title, description, status, due_date, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		task.UserID, task.Title, task.Description, string(task.Status), nullTime(task.DueDate),
		task.CreatedAt.UTC(), task.UpdatedAt.UTC(), nullTime(task.DeletedAt),
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	task.ID = id
	return nil
}

// GetByID retrieves a task by ID within the given lifecycle scope, regardless of owner.
func (r *TaskRepository) GetByID(ctx context.Context, id int64, scope model.TaskScope) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?` + scopeClause(scope)

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// List retrieves the user's tasks matching the filter. Active listings are
// ordered newest first; trashed listings by most recently deleted.
func (r *TaskRepository) List(ctx context.Context, userID int64, filter model.TaskFilter) ([]model.Task, error) {
	var b strings.Builder
	args := []any{userID}

	b.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ?`)
	b.WriteString(scopeClause(filter.Scope))

	if filter.Status != "" {
		b.WriteString(` AND status = ?`)
		args = append(args, string(filter.Status))
	}

	switch filter.Due {
	case model.DueOverdue:
		_, to := filter.Due.Bounds(filter.Now)
		b.WriteString(` AND due_date < ? AND status = ?`)
		args = append(args, to, string(model.StatusPending))
	case model.DueToday, model.DueWeek:
		from, to := filter.Due.Bounds(filter.Now)
		b.WriteString(` AND due_date >= ? AND due_date < ?`)
		args = append(args, from, to)
	}

	if filter.Scope == model.ScopeTrashed {
		b.WriteString(` ORDER BY deleted_at DESC, id DESC`)
	} else {
		b.WriteString(` ORDER BY created_at DESC, id DESC`)
	}

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}

	return tasks, rows.Err()
}

// Save writes the task only if the stored row is still in state from. When the
// task keeps its state the content columns are written; otherwise only the
// deletion marker moves. A row that is missing, owned by someone else or no
// longer in state from yields ErrTaskNotFound.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task, from model.TaskState) error {
	var (
		query string
		args  []any
	)
	if task.State() == from {
		query = `UPDATE tasks SET title = ?, description = ?, status = ?, due_date = ?, updated_at = ?
			WHERE id = ? AND user_id = ?`
		args = []any{task.Title, task.Description, string(task.Status), nullTime(task.DueDate), task.UpdatedAt.UTC()}
	} else {
		query = `UPDATE tasks SET deleted_at = ?, updated_at = ? WHERE id = ? AND user_id = ?`
		args = []any{nullTime(task.DeletedAt), task.UpdatedAt.UTC()}
	}
	query += scopeClause(from.Scope())
	args = append(args, task.ID, task.UserID)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	// Matched rather than changed rows; NewDB enables clientFoundRows.
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func scopeClause(scope model.TaskScope) string {
	switch scope {
	case model.ScopeActive:
		return ` AND deleted_at IS NULL`
	case model.ScopeTrashed:
		return ` AND deleted_at IS NOT NULL`
	default:
		return ""
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*model.Task, error) {
	var (
		task               model.Task
		status             string
		dueDate, deletedAt sql.NullTime
	)
	err := row.Scan(
		&task.ID, &task.UserID, &task.Title, &task.Description, &status,
		&dueDate, &task.CreatedAt, &task.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = model.TaskStatus(status)
	task.DueDate = timePtr(dueDate)
	task.DeletedAt = timePtr(deletedAt)
	return &task, nil
}
