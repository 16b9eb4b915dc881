package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/taskmanager/taskmanager-go/internal/crypto"
	"github.com/taskmanager/taskmanager-go/internal/logging"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

// Identity is the caller resolved from a valid bearer token.
type Identity struct {
	UserID    int64
	TokenID   int64
	TokenHash string
}

// TokenService issues, validates and revokes bearer tokens. The client holds a
// signed JWT whose jti is a random token id; the server keeps only the id's
// hash, so deleting the row revokes the token.
type TokenService struct {
	repo   TokenRepository
	signer *crypto.TokenSigner
	expiry time.Duration
	log    *slog.Logger
	now    func() time.Time
}

// NewTokenService creates a TokenService. An expiry of zero issues tokens
// that never expire.
func NewTokenService(repo TokenRepository, signer *crypto.TokenSigner, expiry time.Duration, log *slog.Logger) *TokenService {
	return &TokenService{
		repo:   repo,
		signer: signer,
		expiry: expiry,
		log:    log,
		now:    time.Now,
	}
}

// Issue creates a new named token for the user.
func (s *TokenService) Issue(ctx context.Context, userID int64, name string) (string, error) {
	id, err := crypto.NewTokenID()
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	var expiresAt *time.Time
	if s.expiry > 0 {
		exp := now.Add(s.expiry)
		expiresAt = &exp
	}

	record := &model.AuthToken{
		UserID:    userID,
		Name:      name,
		TokenHash: crypto.HashTokenID(id),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return "", err
	}

	return s.signer.Sign(userID, id, now, expiresAt)
}

// Validate resolves a bearer token to the identity it was issued for.
func (s *TokenService) Validate(ctx context.Context, token string) (Identity, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, crypto.ErrExpiredToken) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, ErrTokenInvalid
	}

	hash := crypto.HashTokenID(claims.ID)
	record, err := s.repo.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return Identity{}, ErrTokenInvalid
		}
		return Identity{}, err
	}
	if record.UserID != claims.UserID {
		return Identity{}, ErrTokenInvalid
	}

	now := s.now()
	if record.Expired(now) {
		return Identity{}, ErrTokenExpired
	}

	if err := s.repo.TouchLastUsed(ctx, record.ID, now); err != nil {
		logging.FromContext(ctx, s.log).WarnContext(ctx, "failed to update token last use",
			"token_id", record.ID, "error", err)
	}

	return Identity{UserID: record.UserID, TokenID: record.ID, TokenHash: hash}, nil
}

// Revoke deletes the token behind identity. Revoked tokens never validate again.
func (s *TokenService) Revoke(ctx context.Context, identity Identity) error {
	err := s.repo.DeleteByHash(ctx, identity.TokenHash)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return ErrTokenNotFound
	}
	return err
}
