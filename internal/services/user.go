package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/docflow/apiserver/internal/store"
	"github.com/docflow/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates account provisioning.
type UserService struct {
	repo UserRepository
	cost int
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo, cost: bcrypt.DefaultCost}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Provision creates an account with a bcrypt-hashed password. It reports
// created=false without error when the username already exists.
func (s *UserService) Provision(ctx context.Context, username, password string, role types.Role) (types.User, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return types.User{}, false, newValidationError("credentials", "username and password are required")
	}
	if role == "" {
		role = types.RoleManager
	}
	if !role.Valid() {
		return types.User{}, false, newValidationError("role", fmt.Sprintf("unknown role %q", role))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return types.User{}, false, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		Role:         role,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			existing, getErr := s.repo.GetByUsername(ctx, username)
			if getErr != nil {
				return types.User{}, false, getErr
			}
			return existing, false, nil
		}
		return types.User{}, false, err
	}
	return user, true, nil
}
