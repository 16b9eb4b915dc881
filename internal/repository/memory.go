package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/taskmanager/taskmanager-go/internal/model"
)

// MemoryUserRepository is an in-memory UserRepository used by the memory
// store driver and by tests. Emails compare case-insensitively, like the
// MySQL collation.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]model.User
	byEmail map[string]int64
}

// NewMemoryUserRepository creates an empty MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[int64]model.User),
		byEmail: make(map[string]int64),
	}
}

// Create stores the user, failing with ErrDuplicateEmail if the email is taken.
func (r *MemoryUserRepository) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, exists := r.byEmail[key]; exists {
		return ErrDuplicateEmail
	}

	r.nextID++
	user.ID = r.nextID
	r.byID[user.ID] = *user
	r.byEmail[key] = user.ID
	return nil
}

// GetByEmail retrieves a user by email.
func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	user := r.byID[id]
	return &user, nil
}

// GetByID retrieves a user by ID.
func (r *MemoryUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

// MemoryTokenRepository is an in-memory TokenRepository.
type MemoryTokenRepository struct {
	mu     sync.RWMutex
	nextID int64
	byHash map[string]model.AuthToken
}

// NewMemoryTokenRepository creates an empty MemoryTokenRepository.
func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{byHash: make(map[string]model.AuthToken)}
}

// Create stores a token record.
func (r *MemoryTokenRepository) Create(ctx context.Context, token *model.AuthToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	token.ID = r.nextID
	r.byHash[token.TokenHash] = *token
	return nil
}

// GetByHash retrieves a token record by hash.
func (r *MemoryTokenRepository) GetByHash(ctx context.Context, hash string) (*model.AuthToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.byHash[hash]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return &token, nil
}

// DeleteByHash removes a token record.
func (r *MemoryTokenRepository) DeleteByHash(ctx context.Context, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byHash[hash]; !ok {
		return ErrTokenNotFound
	}
	delete(r.byHash, hash)
	return nil
}

// TouchLastUsed records when a token was last presented.
func (r *MemoryTokenRepository) TouchLastUsed(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for hash, token := range r.byHash {
		if token.ID == id {
			at := at.UTC()
			token.LastUsedAt = &at
			r.byHash[hash] = token
			return nil
		}
	}
	return nil
}

// MemoryTaskRepository is an in-memory TaskRepository.
type MemoryTaskRepository struct {
	mu     sync.RWMutex
	nextID int64
	tasks  map[int64]model.Task
}

// NewMemoryTaskRepository creates an empty MemoryTaskRepository.
func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{tasks: make(map[int64]model.Task)}
}

// Create stores a new task and assigns its ID.
func (r *MemoryTaskRepository) Create(ctx context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	task.ID = r.nextID
	r.tasks[task.ID] = *task
	return nil
}

// GetByID retrieves a task by ID within the given scope.
func (r *MemoryTaskRepository) GetByID(ctx context.Context, id int64, scope model.TaskScope) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok || !scope.Includes(task.State()) {
		return nil, ErrTaskNotFound
	}
	return &task, nil
}

// List returns the user's tasks matching the filter, in the same order as the MySQL repository.
func (r *MemoryTaskRepository) List(ctx context.Context, userID int64, filter model.TaskFilter) ([]model.Task, error) {
	r.mu.RLock()
	var tasks []model.Task
	for _, task := range r.tasks {
		if task.UserID == userID && filter.Match(task) {
			tasks = append(tasks, task)
		}
	}
	r.mu.RUnlock()

	sort.Slice(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		ka, kb := a.CreatedAt, b.CreatedAt
		if filter.Scope == model.ScopeTrashed && a.DeletedAt != nil && b.DeletedAt != nil {
			ka, kb = *a.DeletedAt, *b.DeletedAt
		}
		if !ka.Equal(kb) {
			return ka.After(kb)
		}
		return a.ID > b.ID
	})
	return tasks, nil
}

// Save applies the same conditional write as the MySQL repository.
func (r *MemoryTaskRepository) Save(ctx context.Context, task *model.Task, from model.TaskState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tasks[task.ID]
	if !ok || stored.UserID != task.UserID || stored.State() != from {
		return ErrTaskNotFound
	}

	if task.State() == from {
		stored.Title = task.Title
		stored.Description = task.Description
		stored.Status = task.Status
		stored.DueDate = task.DueDate
	} else {
		stored.DeletedAt = task.DeletedAt
	}
	stored.UpdatedAt = task.UpdatedAt
	r.tasks[task.ID] = stored
	return nil
}

// Delete removes a user and its email reservation.
func (r *MemoryUserRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(r.byID, id)
	delete(r.byEmail, strings.ToLower(user.Email))
	return nil
}
