package store_test

import (
	"testing"

	"github.com/docflow/apiserver/internal/store"
	"github.com/docflow/apiserver/internal/testutils"
	"github.com/docflow/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDocument(code int64) types.Document {
	return types.Document{
		Code:     code,
		Subject:  "Тема",
		Sender:   "Иванов",
		Receiver: "Петров",
		Message:  "Текст",
	}
}

func TestDocumentRepository_CreateAndGet(t *testing.T) {
	repo := store.NewDocumentRepository(testutils.NewSQLite(t))
	ctx, cancel := testutils.ContextWithTimeout(t)
	defer cancel()

	created, err := repo.Create(ctx, newDocument(1001))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, types.StatusDraft, created.Status)

	fetched, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), fetched.Code)
	assert.Equal(t, "Тема", fetched.Subject)
	assert.Equal(t, "Иванов", fetched.Sender)
	assert.Equal(t, "Петров", fetched.Receiver)
	assert.Equal(t, "Текст", fetched.Message)
	assert.Equal(t, types.StatusDraft, fetched.Status)
	assert.False(t, fetched.CreatedAt.IsZero())

	_, err = repo.Get(ctx, 99999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDocumentRepository_UniqueCodeBackstop(t *testing.T) {
	repo := store.NewDocumentRepository(testutils.NewSQLite(t))
	ctx, cancel := testutils.ContextWithTimeout(t)
	defer cancel()

	first, err := repo.Create(ctx, newDocument(7))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newDocument(7))
	assert.ErrorIs(t, err, store.ErrDuplicateCode)

	second, err := repo.Create(ctx, newDocument(8))
	require.NoError(t, err)

	second.Code = first.Code
	_, err = repo.Update(ctx, second)
	assert.ErrorIs(t, err, store.ErrDuplicateCode)
}

func TestDocumentRepository_CodeTaken(t *testing.T) {
	repo := store.NewDocumentRepository(testutils.NewSQLite(t))
	ctx, cancel := testutils.ContextWithTimeout(t)
	defer cancel()

	created, err := repo.Create(ctx, newDocument(42))
	require.NoError(t, err)

	taken, err := repo.CodeTaken(ctx, 42, 0)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.CodeTaken(ctx, 42, created.ID)
	require.NoError(t, err)
	assert.False(t, taken, "own code is not a collision")

	taken, err = repo.CodeTaken(ctx, 43, 0)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestDocumentRepository_StatusGuards(t *testing.T) {
	repo := store.NewDocumentRepository(testutils.NewSQLite(t))
	ctx, cancel := testutils.ContextWithTimeout(t)
	defer cancel()

	created, err := repo.Create(ctx, newDocument(5))
	require.NoError(t, err)

	sent, err := repo.MarkSent(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSent, sent.Status)
	assert.False(t, sent.UpdatedAt.Before(created.UpdatedAt))

	_, err = repo.MarkSent(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrNotDraft)

	sent.Subject = "Другая тема"
	_, err = repo.Update(ctx, sent)
	assert.ErrorIs(t, err, store.ErrNotDraft)

	assert.ErrorIs(t, repo.Delete(ctx, created.ID), store.ErrNotDraft)

	fetched, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Тема", fetched.Subject)

	_, err = repo.MarkSent(ctx, 99999)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, 99999), store.ErrNotFound)
}

func TestDocumentRepository_UpdateKeepsReceiver(t *testing.T) {
	repo := store.NewDocumentRepository(testutils.NewSQLite(t))
	ctx, cancel := testutils.ContextWithTimeout(t)
	defer cancel()

	created, err := repo.Create(ctx, newDocument(9))
	require.NoError(t, err)

	created.Receiver = "Сидоров"
	created.Message = ""
	updated, err := repo.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "Петров", updated.Receiver)
	assert.Equal(t, "", updated.Message)
}

func TestDocumentRepository_Delete(t *testing.T) {
	repo := store.NewDocumentRepository(testutils.NewSQLite(t))
	ctx, cancel := testutils.ContextWithTimeout(t)
	defer cancel()

	created, err := repo.Create(ctx, newDocument(11))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, created.ID))

	_, err = repo.Get(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDocumentRepository_List(t *testing.T) {
	repo := store.NewDocumentRepository(testutils.NewSQLite(t))
	ctx, cancel := testutils.ContextWithTimeout(t)
	defer cancel()

	var ids []int
	for code := int64(1); code <= 5; code++ {
		created, err := repo.Create(ctx, newDocument(code))
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}
	_, err := repo.MarkSent(ctx, ids[0])
	require.NoError(t, err)

	all, total, err := repo.List(ctx, types.DocumentFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, all, 5)
	assert.Equal(t, ids[4], all[0].ID, "newest first")
	assert.Equal(t, ids[0], all[4].ID)

	page, total, err := repo.List(ctx, types.DocumentFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)

	drafts, total, err := repo.List(ctx, types.DocumentFilter{Status: types.StatusDraft, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, drafts, 4)

	sent, total, err := repo.List(ctx, types.DocumentFilter{Status: types.StatusSent, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, sent, 1)
	assert.Equal(t, ids[0], sent[0].ID)
}
