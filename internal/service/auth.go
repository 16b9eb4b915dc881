package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taskmanager/taskmanager-go/internal/logging"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

const msgBadCredentials = "The provided credentials are incorrect."

// PasswordHasher hashes and checks passwords. VerifyDummy burns the same
// time as a real check for accounts that do not exist.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	VerifyDummy(password string)
}

// AuthService handles authentication business logic.
type AuthService struct {
	users     UserRepository
	tokens    *TokenService
	hasher    PasswordHasher
	validator *requestValidator
	log       *slog.Logger
	now       func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserRepository, tokens *TokenService, hasher PasswordHasher, log *slog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		hasher:    hasher,
		validator: newRequestValidator(),
		log:       log,
		now:       time.Now,
	}
}

// Register creates a new user account and returns an auth token.
func (s *AuthService) Register(ctx context.Context, req model.CreateUserRequest) (model.AuthResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)

	verr := &ValidationError{}
	if err := s.validator.Struct(verr, req); err != nil {
		return model.AuthResponse{}, err
	}
	if !verr.Empty() {
		return model.AuthResponse{}, verr
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.AuthResponse{}, err
	}

	now := s.now().UTC()
	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.AuthResponse{}, NewValidationError("email", "The email has already been taken.").Wrap(ErrEmailTaken)
		}
		return model.AuthResponse{}, err
	}

	token, err := s.tokens.Issue(ctx, user.ID, model.DefaultTokenName)
	if err != nil {
		// Release the email so the client can retry the registration.
		if delErr := s.users.Delete(context.WithoutCancel(ctx), user.ID); delErr != nil {
			logging.FromContext(ctx, s.log).ErrorContext(ctx, "failed to remove user after token issue failure",
				"user_id", user.ID, "error", delErr)
		}
		return model.AuthResponse{}, fmt.Errorf("issuing token: %w", err)
	}

	logging.FromContext(ctx, s.log).InfoContext(ctx, "user registered", "user_id", user.ID)

	return model.AuthResponse{Token: token, User: user.Response()}, nil
}

// Login authenticates a user and returns an auth token.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)

	verr := &ValidationError{}
	if err := s.validator.Struct(verr, req); err != nil {
		return model.AuthResponse{}, err
	}
	if !verr.Empty() {
		return model.AuthResponse{}, verr
	}

	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return model.AuthResponse{}, err
	}

	token, err := s.tokens.Issue(ctx, user.ID, model.DefaultTokenName)
	if err != nil {
		return model.AuthResponse{}, err
	}

	return model.AuthResponse{Token: token, User: user.Response()}, nil
}

// IssueDeviceToken checks credentials and issues a token named after the device.
func (s *AuthService) IssueDeviceToken(ctx context.Context, req model.TokenRequest) (model.TokenResponse, error) {
	req.Email = normalizeEmail(req.Email)
	req.DeviceName = strings.TrimSpace(req.DeviceName)

	verr := &ValidationError{}
	if err := s.validator.Struct(verr, req); err != nil {
		return model.TokenResponse{}, err
	}
	if !verr.Empty() {
		return model.TokenResponse{}, verr
	}

	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return model.TokenResponse{}, err
	}

	token, err := s.tokens.Issue(ctx, user.ID, req.DeviceName)
	if err != nil {
		return model.TokenResponse{}, err
	}

	return model.TokenResponse{Token: token}, nil
}

// Logout revokes the token the caller authenticated with.
func (s *AuthService) Logout(ctx context.Context, identity Identity) error {
	if err := s.tokens.Revoke(ctx, identity); err != nil {
		return err
	}
	logging.FromContext(ctx, s.log).InfoContext(ctx, "user logged out",
		"user_id", identity.UserID, "token_id", identity.TokenID)
	return nil
}

// GetUser retrieves a user by ID and returns safe user data.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (model.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.UserResponse{}, err
	}
	return user.Response(), nil
}

func (s *AuthService) authenticate(ctx context.Context, email, password string) (*model.User, error) {
	log := logging.FromContext(ctx, s.log)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.VerifyDummy(password)
			logging.AuthAttempt(ctx, log, email, false, "unknown email")
			return nil, NewValidationError("email", msgBadCredentials).Wrap(ErrInvalidCredentials)
		}
		return nil, err
	}

	match, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !match {
		logging.AuthAttempt(ctx, log, email, false, "wrong password")
		return nil, NewValidationError("email", msgBadCredentials).Wrap(ErrInvalidCredentials)
	}

	logging.AuthAttempt(ctx, log, email, true, "")
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
