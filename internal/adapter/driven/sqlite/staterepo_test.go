package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRepo_SetThenGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStateRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "github_token", []byte(`{"access_token":"abc"}`)))

	value, ok, err := repo.Get(ctx, "github_token")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"access_token":"abc"}`, string(value))
}

func TestStateRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStateRepo(db)

	_, ok, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateRepo_SetReplaces(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStateRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "pingcode_credentials", []byte(`{"client_id":"old"}`)))
	require.NoError(t, repo.Set(ctx, "pingcode_credentials", []byte(`{"client_id":"new"}`)))

	value, ok, err := repo.Get(ctx, "pingcode_credentials")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"client_id":"new"}`, string(value))
}

func TestStateRepo_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStateRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "github_token", []byte("x")))
	require.NoError(t, repo.Delete(ctx, "github_token"))

	_, ok, err := repo.Get(ctx, "github_token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateRepo_DeleteMissingIsNoop(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStateRepo(db)

	assert.NoError(t, repo.Delete(context.Background(), "never_existed"))
}
