package services_test

import (
	"errors"
	"testing"
	"time"

	"github.com/docflow/apiserver/internal/auth"
	"github.com/docflow/apiserver/internal/services"
	"github.com/docflow/apiserver/internal/store"
	"github.com/docflow/apiserver/internal/testutils"
	"github.com/docflow/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T) (*services.AuthService, *services.UserService, *auth.TokenManager) {
	t.Helper()
	users := store.NewUserRepository(testutils.NewSQLite(t))
	tokens, err := auth.NewTokenManager("test-secret-with-enough-entropy-0123456789", time.Hour)
	require.NoError(t, err)
	return services.NewAuthService(users, tokens), services.NewUserService(users), tokens
}

func TestAuthService_Authenticate(t *testing.T) {
	authSvc, userSvc, tokens := newAuthFixture(t)
	ctx, cancel := testutils.ContextWithTimeout(t)
	defer cancel()

	_, created, err := userSvc.Provision(ctx, "admin", "admin123", types.RoleAdministrator)
	require.NoError(t, err)
	require.True(t, created)

	session, err := authSvc.Authenticate(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "admin", session.User.Username)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)

	identity, err := tokens.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, identity.ID)
	assert.Equal(t, types.RoleAdministrator, identity.Role)
}

func TestAuthService_Rejections(t *testing.T) {
	authSvc, userSvc, _ := newAuthFixture(t)
	ctx, cancel := testutils.ContextWithTimeout(t)
	defer cancel()

	_, _, err := userSvc.Provision(ctx, "manager", "manager123", types.RoleManager)
	require.NoError(t, err)

	_, err = authSvc.Authenticate(ctx, "manager", "wrong")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, err = authSvc.Authenticate(ctx, "ghost", "whatever")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, err = authSvc.Authenticate(ctx, "", "manager123")
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = authSvc.Authenticate(ctx, "manager", "")
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestUserService_Provision(t *testing.T) {
	_, userSvc, _ := newAuthFixture(t)
	ctx, cancel := testutils.ContextWithTimeout(t)
	defer cancel()

	first, created, err := userSvc.Provision(ctx, "  clerk ", "secret", "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "clerk", first.Username)
	assert.Equal(t, types.RoleManager, first.Role)
	assert.NotEqual(t, "secret", first.PasswordHash)

	again, created, err := userSvc.Provision(ctx, "clerk", "other", types.RoleAdministrator)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, types.RoleManager, again.Role)

	fetched, err := userSvc.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "clerk", fetched.Username)

	_, _, err = userSvc.Provision(ctx, "boss", "secret", types.Role("owner"))
	var verr *services.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "role")
}
