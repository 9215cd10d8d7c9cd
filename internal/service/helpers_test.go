package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"todo-service/internal/repository"
	"todo-service/internal/repository/sqlite"
)

type testStore struct {
	todos repository.TodoRepository
	users repository.UserRepository
}

func newTestStore(t *testing.T) testStore {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := testStore{
		todos: sqlite.NewTodoRepository(db),
		users: sqlite.NewUserRepository(db),
	}
	ctx := context.Background()
	require.NoError(t, store.todos.Init(ctx))
	require.NoError(t, store.users.Init(ctx))
	return store
}

// fakeClock returns a settable time source.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
