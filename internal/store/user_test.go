package store_test

import (
	"testing"

	"github.com/docflow/apiserver/internal/store"
	"github.com/docflow/apiserver/internal/testutils"
	"github.com/docflow/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	repo := store.NewUserRepository(testutils.NewSQLite(t))
	ctx, cancel := testutils.ContextWithTimeout(t)
	defer cancel()

	created, err := repo.Create(ctx, types.User{Username: "admin", Role: types.RoleAdministrator, PasswordHash: "hash"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	byName, err := repo.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)
	assert.Equal(t, types.RoleAdministrator, byName.Role)
	assert.Equal(t, "hash", byName.PasswordHash)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", byID.Username)

	_, err = repo.Create(ctx, types.User{Username: "admin", PasswordHash: "other"})
	assert.ErrorIs(t, err, store.ErrUsernameTaken)

	defaulted, err := repo.Create(ctx, types.User{Username: "clerk", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.Equal(t, types.RoleManager, defaulted.Role)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
