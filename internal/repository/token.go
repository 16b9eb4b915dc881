package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/taskmanager/taskmanager-go/internal/model"
)

var ErrTokenNotFound = errors.New("auth token not found")

// TokenRepository persists issued bearer tokens by hash.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create inserts a token record and sets its generated ID.
func (r *TokenRepository) Create(ctx context.Context, token *model.AuthToken) error {
	query := `INSERT INTO auth_tokens (user_id, name, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		token.UserID, token.Name, token.TokenHash, nullTime(token.ExpiresAt), token.CreatedAt.UTC(),
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	token.ID = id
	return nil
}

// GetByHash retrieves a token record by the hash of its id.
func (r *TokenRepository) GetByHash(ctx context.Context, hash string) (*model.AuthToken, error) {
	query := `SELECT id, user_id, name, token_hash, expires_at, last_used_at, created_at
		FROM auth_tokens WHERE token_hash = ?`

	var (
		token              model.AuthToken
		expiresAt, lastUse sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, hash).Scan(
		&token.ID, &token.UserID, &token.Name, &token.TokenHash, &expiresAt, &lastUse, &token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	token.ExpiresAt = timePtr(expiresAt)
	token.LastUsedAt = timePtr(lastUse)
	return &token, nil
}

// DeleteByHash revokes a token. It returns ErrTokenNotFound if nothing was deleted.
func (r *TokenRepository) DeleteByHash(ctx context.Context, hash string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE token_hash = ?`, hash)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// TouchLastUsed records when a token was last presented.
func (r *TokenRepository) TouchLastUsed(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE auth_tokens SET last_used_at = ? WHERE id = ?`, at.UTC(), id)
	return err
}
