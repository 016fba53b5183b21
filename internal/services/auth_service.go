// Package services wires the stores, token issuer, and export queue together
// behind the operations the HTTP layer exposes. Dependencies are passed
// explicitly to the constructors; there is no registry.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/kabirpofficial/trackify/internal/auth"
	"github.com/kabirpofficial/trackify/internal/core"
	"github.com/kabirpofficial/trackify/internal/storage"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// responses cannot be used to probe which accounts exist.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailExists is returned when registering with an already used email.
	ErrEmailExists = errors.New("user already exists")
)

// AuthResult is what register and login hand back to the client.
type AuthResult struct {
	AccessToken string    `json:"access_token"`
	User        core.User `json:"user"`
}

// AuthService registers and authenticates users and issues bearer tokens.
type AuthService struct {
	store  *storage.SQLiteRepository
	tokens *auth.TokenIssuer
}

func NewAuthService(store *storage.SQLiteRepository, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{store: store, tokens: tokens}
}

// Register creates a new user and returns a token bound to it. The plaintext
// password is hashed before it reaches the store.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (AuthResult, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, name, email, hash)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			return AuthResult{}, ErrEmailExists
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}

	return AuthResult{AccessToken: token, User: user}, nil
}

// Login verifies credentials and returns a fresh token. Unknown email and
// wrong password produce the identical error.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("get user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return AuthResult{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}

	return AuthResult{AccessToken: token, User: user}, nil
}
