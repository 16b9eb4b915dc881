package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskmanager/taskmanager-go/internal/crypto"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

func TestTokenIssueAndValidate(t *testing.T) {
	repo := repository.NewMemoryTokenRepository()
	svc := NewTokenService(repo, crypto.NewTokenSigner("secret"), time.Hour, discardLogger())
	ctx := context.Background()

	token, err := svc.Issue(ctx, 42, "laptop")
	require.NoError(t, err)

	identity, err := svc.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), identity.UserID)
	assert.Len(t, identity.TokenHash, 64)

	record, err := repo.GetByHash(ctx, identity.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, "laptop", record.Name)
	require.NotNil(t, record.ExpiresAt)
	assert.NotNil(t, record.LastUsedAt, "validation touches last use")
}

func TestTokenValidateRejects(t *testing.T) {
	ctx := context.Background()
	svc := NewTokenService(repository.NewMemoryTokenRepository(), crypto.NewTokenSigner("secret"), 0, discardLogger())

	issued, err := svc.Issue(ctx, 1, "a")
	require.NoError(t, err)

	// A well-signed token whose id was never stored.
	unknown, err := crypto.NewTokenSigner("secret").Sign(1, "never-stored-token-id-0000000000000000", time.Now(), nil)
	require.NoError(t, err)

	other := NewTokenService(repository.NewMemoryTokenRepository(), crypto.NewTokenSigner("other-secret"), 0, discardLogger())
	foreign, err := other.Issue(ctx, 1, "a")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"unknown id", unknown},
		{"wrong secret", foreign},
		{"tampered", issued + "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Validate(ctx, tt.token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestTokenValidateUserMismatch(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryTokenRepository()
	signer := crypto.NewTokenSigner("secret")
	svc := NewTokenService(repo, signer, 0, discardLogger())

	token, err := svc.Issue(ctx, 1, "a")
	require.NoError(t, err)
	identity, err := svc.Validate(ctx, token)
	require.NoError(t, err)

	claims, err := signer.Parse(token)
	require.NoError(t, err)

	// Same token id, different user claim.
	forged, err := signer.Sign(2, claims.ID, time.Now(), nil)
	require.NoError(t, err)

	_, err = svc.Validate(ctx, forged)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.Validate(ctx, token)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), identity.UserID)
}

func TestTokenValidateExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("server-side record", func(t *testing.T) {
		svc := NewTokenService(repository.NewMemoryTokenRepository(), crypto.NewTokenSigner("secret"), time.Hour, discardLogger())
		token, err := svc.Issue(ctx, 1, "a")
		require.NoError(t, err)

		svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err = svc.Validate(ctx, token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("jwt expiry", func(t *testing.T) {
		svc := NewTokenService(repository.NewMemoryTokenRepository(), crypto.NewTokenSigner("secret"), time.Hour, discardLogger())
		svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := svc.Issue(ctx, 1, "a")
		require.NoError(t, err)

		svc.now = time.Now
		_, err = svc.Validate(ctx, token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
}

func TestTokenRevoke(t *testing.T) {
	ctx := context.Background()
	svc := NewTokenService(repository.NewMemoryTokenRepository(), crypto.NewTokenSigner("secret"), 0, discardLogger())

	token, err := svc.Issue(ctx, 7, "a")
	require.NoError(t, err)
	identity, err := svc.Validate(ctx, token)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, identity))

	_, err = svc.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.ErrorIs(t, svc.Revoke(ctx, identity), ErrTokenNotFound)
}
