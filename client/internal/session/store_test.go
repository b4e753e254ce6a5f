package session_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/idealvisual/client/internal/session"
	"github.com/maynagashev/idealvisual/models"
)

func newStore(t *testing.T) *session.Store {
	t.Helper()
	return session.NewStore(filepath.Join(t.TempDir(), "idealvisual.session"))
}

func TestStore_LoadWithoutFile(t *testing.T) {
	store := newStore(t)

	_, err := store.Load(context.Background())
	require.ErrorIs(t, err, session.ErrNoSession)
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	user := models.User{ID: 3, Username: "ketnipz513", Email: "ketnipz@mail.ru", Password: "secret", Token: "tok"}

	require.NoError(t, store.Save(ctx, "tok", user))

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", sess.Token)
	assert.Equal(t, int64(3), sess.User.ID)
	assert.Empty(t, sess.User.Password, "пароль не сохраняется")
	assert.Empty(t, sess.User.Token, "токен хранится только на верхнем уровне")
	assert.False(t, sess.SavedAt.IsZero())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStore_SaveEmptyToken(t *testing.T) {
	err := newStore(t).Save(context.Background(), "", models.User{})
	require.Error(t, err)
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	// Удаление отсутствующей сессии не ошибка.
	require.NoError(t, store.Clear(ctx))

	require.NoError(t, store.Save(ctx, "tok", models.User{Username: "u"}))
	require.NoError(t, store.Clear(ctx))

	_, err := store.Load(ctx)
	require.ErrorIs(t, err, session.ErrNoSession)
}

func TestStore_CorruptedFile(t *testing.T) {
	store := newStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o600))

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ошибка декодирования файла сессии")
}

func TestStore_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "idealvisual.session")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Отдельные Store на один путь, как у параллельно запущенных команд.
			store := session.NewStore(path)
			assert.NoError(t, store.Save(ctx, "tok", models.User{ID: int64(i + 1)}))
		}()
	}
	wg.Wait()

	sess, err := session.NewStore(path).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", sess.Token)
	assert.Positive(t, sess.User.ID)
}
