// Package service: authentication business logic.
//
// AuthService is the business logic layer for accounts and credentials. It sits
// between the HTTP handlers and the repository/auth utilities:
//
//	UserHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ PasswordService (bcrypt)
//	                   ↘ TokenService (JWT)
//
// KEY RESPONSIBILITIES:
//   - Register: validate input, refuse taken emails, hash, store, issue a token
//   - Login: look up by email, verify the password, issue a token
//   - Resolve token subjects to users for the request guard
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/time-capsule/internal/apperror"
	"github.com/sakif/time-capsule/internal/auth"
	"github.com/sakif/time-capsule/internal/model"
	"github.com/sakif/time-capsule/internal/repository"
)

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - tokens     *auth.TokenService         → generate JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult is returned by Register and Login.
// It bundles the user record and the issued JWT so the handler can respond
// with both in one body.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates an account and returns it with a fresh token.
//
// ERRORS:
//   - apperror.ErrValidation if a field is missing or the password is too long
//   - apperror.ErrConflict ("User already exists") if the email is taken
//
// The pre-check gives the common case a clean error. Two registrations racing
// on the same email can both pass it; the UNIQUE constraint in the store then
// rejects the second insert with the same Conflict error.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" || email == "" || password == "" {
		return nil, apperror.ValidationFailed("", "Username, email, and password are required")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("email", "User already exists")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password",
				fmt.Sprintf("Password must be %d bytes or fewer", auth.MaxPasswordBytes))
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	user.PasswordHash = ""
	return s.issue(user)
}

// Login checks the credentials and returns the user with a fresh token.
//
// An unknown email and a wrong password produce the same
// apperror.ErrInvalidCredentials, so the response does not reveal which
// addresses have accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.InvalidCredentials()
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Same bcrypt cost as a wrong password, so timing does not
			// tell the two apart.
			s.passwords.VerifyDecoy(password)
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("login rejected", slog.String("userID", user.ID))
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: verifying password for %s: %w", user.ID, err)
	}

	// The hash has done its job; nothing past this point needs it.
	user.PasswordHash = ""

	return s.issue(user)
}

// GetByID returns the user for the given internal ID, without the password hash.
//
// It satisfies auth.UserLookup, so the request guard resolves token subjects
// through the service rather than reaching into the repository.
func (s *AuthService) GetByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID must not be empty")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
