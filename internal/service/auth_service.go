package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"todocat/internal/auth"
	"todocat/internal/repository"
	"todocat/internal/todo"
)

const minPasswordLen = 6

// AuthService registers users and exchanges credentials for tokens.
type AuthService struct {
	users  *repository.UserRepository
	tokens *auth.Tokens
}

func NewAuthService(users *repository.UserRepository, tokens *auth.Tokens) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Register creates a user and returns a token for it.
func (s *AuthService) Register(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.HasPrefix(username, "tg:") {
		return "", fmt.Errorf("%w: invalid username", todo.ErrValidation)
	}
	if len(password) < minPasswordLen {
		return "", fmt.Errorf("%w: password must be at least %d characters", todo.ErrValidation, minPasswordLen)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}
	user, err := s.users.Create(ctx, username, hash)
	if err != nil {
		return "", err
	}
	log.Printf("[info] user registered id=%s", user.ID)
	return s.tokens.Issue(user.ID)
}

// Login checks the credentials and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: invalid credentials", todo.ErrUnauthorized)
		}
		return "", err
	}
	if user.PasswordHash == "" || !auth.CheckPassword(user.PasswordHash, password) {
		return "", fmt.Errorf("%w: invalid credentials", todo.ErrUnauthorized)
	}
	return s.tokens.Issue(user.ID)
}

// Authenticate resolves a token to a user id.
func (s *AuthService) Authenticate(token string) (string, error) {
	return s.tokens.Verify(token)
}
