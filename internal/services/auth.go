package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/docflow/apiserver/internal/auth"
	"github.com/docflow/apiserver/internal/store"
	"github.com/docflow/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      types.User
}

// AuthService verifies credentials and issues session tokens.
type AuthService struct {
	users  UserRepository
	tokens *auth.TokenManager

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(users UserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Authenticate checks username and password and returns a signed session.
// Unknown users still pay for a bcrypt comparison.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, newValidationError("credentials", "username and password are required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("docflow-dummy-password"), bcrypt.DefaultCost)
	})
	return s.dummyHash
}
