package service

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskmanager/taskmanager-go/internal/crypto"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

type testEnv struct {
	hasher PasswordHasher
	users  *repository.MemoryUserRepository
	tokens *TokenService
	auth   *AuthService
	tasks  *TaskService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hasher, err := crypto.NewPasswordHasher(crypto.HashParams{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	require.NoError(t, err)

	log := discardLogger()
	users := repository.NewMemoryUserRepository()
	tokens := NewTokenService(repository.NewMemoryTokenRepository(), crypto.NewTokenSigner("test-secret"), 0, log)

	return &testEnv{
		hasher: hasher,
		users:  users,
		tokens: tokens,
		auth:   NewAuthService(users, tokens, hasher, log),
		tasks:  NewTaskService(repository.NewMemoryTaskRepository(), log),
	}
}
