package service

import (
	"context"
	"time"

	"github.com/taskmanager/taskmanager-go/internal/model"
)

// UserRepository is the credential store used by AuthService.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	Delete(ctx context.Context, id int64) error
}

// TokenRepository persists issued bearer tokens by hash.
type TokenRepository interface {
	Create(ctx context.Context, token *model.AuthToken) error
	GetByHash(ctx context.Context, hash string) (*model.AuthToken, error)
	DeleteByHash(ctx context.Context, hash string) error
	TouchLastUsed(ctx context.Context, id int64, at time.Time) error
}

// TaskRepository stores tasks. GetByID does not check ownership. Save only
// writes a row that is still owned by task.UserID and in state from, and
// reports repository.ErrTaskNotFound otherwise.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id int64, scope model.TaskScope) (*model.Task, error)
	List(ctx context.Context, userID int64, filter model.TaskFilter) ([]model.Task, error)
	Save(ctx context.Context, task *model.Task, from model.TaskState) error
}
