package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/omarshaarawi/courtside/internal/models"
	"github.com/omarshaarawi/courtside/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestStore_EmptyLoad(t *testing.T) {
	store, _ := openTemp(t)

	session, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, session.Authenticated())
	assert.Nil(t, session.Profile)
}

func TestStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	store, _ := openTemp(t)

	profile := models.UserProfile{ID: 3, Username: "ana", Email: "ana@example.com"}
	require.NoError(t, store.Save(ctx, "tok-1", profile))

	session, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", session.Token)
	require.NotNil(t, session.Profile)
	assert.Equal(t, profile, *session.Profile)

	require.NoError(t, store.Save(ctx, "tok-2", models.UserProfile{Username: "ana"}))
	session, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", session.Token)
	assert.Equal(t, "ana", session.Profile.Username)
	assert.Empty(t, session.Profile.Email)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))

	session, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, session.Token)
	assert.Nil(t, session.Profile)
}

func TestStore_RejectsEmptyToken(t *testing.T) {
	ctx := context.Background()
	store, _ := openTemp(t)

	err := store.Save(ctx, "", models.UserProfile{Username: "ghost"})
	assert.ErrorIs(t, err, repository.ErrEmptyToken)

	session, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, session.Profile)
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	store, path := openTemp(t)
	require.NoError(t, store.Save(ctx, "persisted", models.UserProfile{Username: "ana"}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	session, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "persisted", session.Token)
	assert.Equal(t, "ana", session.Profile.Username)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestStore_CanceledContext(t *testing.T) {
	store, _ := openTemp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Save(ctx, "t", models.UserProfile{}), context.Canceled)
	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Clear(ctx), context.Canceled)
}

func TestStore_UpdateProfileOnlyUnderSameToken(t *testing.T) {
	ctx := context.Background()
	store, _ := openTemp(t)

	ok, err := store.UpdateProfile(ctx, "tok", models.UserProfile{Username: "ana"})
	require.NoError(t, err)
	assert.False(t, ok)
	session, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, session.Authenticated(), "an update never creates a session")

	require.NoError(t, store.Save(ctx, "tok", models.UserProfile{Username: "ana"}))
	ok, err = store.UpdateProfile(ctx, "stale", models.UserProfile{Username: "mallory"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.UpdateProfile(ctx, "tok", models.UserProfile{Username: "ana", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.True(t, ok)

	session, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", session.Token)
	assert.Equal(t, "ana@example.com", session.Profile.Email)
}
