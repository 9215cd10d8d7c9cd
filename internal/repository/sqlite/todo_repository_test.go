package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-service/internal/domain"
	"todo-service/internal/repository"
)

func insertTodo(t *testing.T, repo repository.TodoRepository, id int64, owner, title string) {
	t.Helper()
	err := repo.Insert(context.Background(), &domain.Todo{
		ID:        id,
		Owner:     owner,
		Title:     title,
		CreatedAt: 100,
		UpdatedAt: 100,
	})
	require.NoError(t, err)
}

func TestTodoRepository_InsertAndGet(t *testing.T) {
	repo := NewTodoRepository(setupTestDB(t))
	ctx := context.Background()

	insertTodo(t, repo, 1, "alice", "buy milk")

	todo, err := repo.Get(ctx, repository.TodoByID(1).OwnedBy("alice"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), todo.ID)
	assert.Equal(t, "alice", todo.Owner)
	assert.Equal(t, "buy milk", todo.Title)
	assert.False(t, todo.Completed)
	assert.Equal(t, int64(100), todo.CreatedAt)
	assert.Equal(t, int64(100), todo.UpdatedAt)
}

func TestTodoRepository_GetWrongOwner(t *testing.T) {
	repo := NewTodoRepository(setupTestDB(t))

	insertTodo(t, repo, 1, "alice", "buy milk")

	_, err := repo.Get(context.Background(), repository.TodoByID(1).OwnedBy("bob"))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTodoRepository_InsertDuplicate(t *testing.T) {
	repo := NewTodoRepository(setupTestDB(t))

	insertTodo(t, repo, 1, "alice", "first")
	err := repo.Insert(context.Background(), &domain.Todo{ID: 1, Owner: "alice", Title: "again"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	// same id under a different owner is a distinct record
	insertTodo(t, repo, 1, "bob", "bob's first")
}

func TestTodoRepository_ListFiltersByOwner(t *testing.T) {
	repo := NewTodoRepository(setupTestDB(t))
	ctx := context.Background()

	insertTodo(t, repo, 2, "alice", "b")
	insertTodo(t, repo, 1, "alice", "a")
	insertTodo(t, repo, 3, "bob", "c")

	all, err := repo.List(ctx, repository.AllTodos())
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := repo.List(ctx, repository.AllTodos().OwnedBy("alice"))
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, int64(1), mine[0].ID)
	assert.Equal(t, int64(2), mine[1].ID)

	none, err := repo.List(ctx, repository.AllTodos().OwnedBy("carol"))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestTodoRepository_Update(t *testing.T) {
	repo := NewTodoRepository(setupTestDB(t))
	ctx := context.Background()

	insertTodo(t, repo, 1, "alice", "old")

	err := repo.Update(ctx, repository.TodoByID(1).OwnedBy("alice"), &domain.Todo{
		Title:     "new",
		Completed: true,
		UpdatedAt: 200,
	})
	require.NoError(t, err)

	todo, err := repo.Get(ctx, repository.TodoByID(1))
	require.NoError(t, err)
	assert.Equal(t, "new", todo.Title)
	assert.True(t, todo.Completed)
	assert.Equal(t, int64(100), todo.CreatedAt)
	assert.Equal(t, int64(200), todo.UpdatedAt)
}

func TestTodoRepository_UpdateOtherOwnerLeavesRecord(t *testing.T) {
	repo := NewTodoRepository(setupTestDB(t))
	ctx := context.Background()

	insertTodo(t, repo, 1, "alice", "mine")

	err := repo.Update(ctx, repository.TodoByID(1).OwnedBy("bob"), &domain.Todo{Title: "hijacked", UpdatedAt: 200})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	todo, err := repo.Get(ctx, repository.TodoByID(1))
	require.NoError(t, err)
	assert.Equal(t, "mine", todo.Title)
}

func TestTodoRepository_RemoveAndContains(t *testing.T) {
	repo := NewTodoRepository(setupTestDB(t))
	ctx := context.Background()

	insertTodo(t, repo, 1, "alice", "a")

	ok, err := repo.Contains(ctx, repository.TodoByID(1).OwnedBy("alice"))
	require.NoError(t, err)
	assert.True(t, ok)

	err = repo.Remove(ctx, repository.TodoByID(1).OwnedBy("bob"))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.Remove(ctx, repository.TodoByID(1).OwnedBy("alice")))

	ok, err = repo.Contains(ctx, repository.TodoByID(1))
	require.NoError(t, err)
	assert.False(t, ok)

	err = repo.Remove(ctx, repository.TodoByID(1))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTodoRepository_IDs(t *testing.T) {
	repo := NewTodoRepository(setupTestDB(t))
	ctx := context.Background()

	ids, err := repo.IDs(ctx, repository.AllTodos())
	require.NoError(t, err)
	assert.Empty(t, ids)

	insertTodo(t, repo, 4, "alice", "a")
	insertTodo(t, repo, 1, "bob", "b")

	ids, err = repo.IDs(ctx, repository.AllTodos())
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 4}, ids)

	ids, err = repo.IDs(ctx, repository.AllTodos().OwnedBy("alice"))
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, ids)
}

func TestTodoRepository_InitUpgradesLegacyTable(t *testing.T) {
	db, err := Open(t.TempDir() + "/legacy.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()

	_, err = db.ExecContext(ctx, `
CREATE TABLE todos (
	id INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO todos (id, title, completed, created_at, updated_at) VALUES (1, 'legacy', 0, 1, 1)`)
	require.NoError(t, err)

	repo := NewTodoRepository(db)
	require.NoError(t, repo.Init(ctx))
	require.NoError(t, repo.Init(ctx), "init must be idempotent")

	todo, err := repo.Get(ctx, repository.TodoByID(1).OwnedBy(""))
	require.NoError(t, err)
	assert.Equal(t, "legacy", todo.Title)
	assert.Equal(t, "", todo.Owner)

	insertTodo(t, repo, 1, "alice", "alice's first")
	insertTodo(t, repo, 1, "bob", "bob's first")

	todos, err := repo.List(ctx, repository.TodoByID(1))
	require.NoError(t, err)
	assert.Len(t, todos, 3)
}

func TestTodoRepository_InitRekeysOwnerColumnTable(t *testing.T) {
	db, err := Open(t.TempDir() + "/owner-column.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()

	_, err = db.ExecContext(ctx, `
CREATE TABLE todos (
	id INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	owner TEXT NOT NULL DEFAULT ''
)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO todos (id, title, completed, created_at, updated_at, owner) VALUES (1, 'kept', 1, 5, 6, 'alice')`)
	require.NoError(t, err)

	repo := NewTodoRepository(db)
	require.NoError(t, repo.Init(ctx))

	todo, err := repo.Get(ctx, repository.TodoByID(1).OwnedBy("alice"))
	require.NoError(t, err)
	assert.Equal(t, "kept", todo.Title)
	assert.True(t, todo.Completed)
	assert.Equal(t, int64(5), todo.CreatedAt)
	assert.Equal(t, int64(6), todo.UpdatedAt)

	insertTodo(t, repo, 1, "bob", "bob's first")

	err = repo.Insert(ctx, &domain.Todo{ID: 1, Owner: "bob", Title: "again", CreatedAt: 1, UpdatedAt: 1})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestAcquireLock_SecondHolderRejected(t *testing.T) {
	path := t.TempDir() + "/todos.db"

	first, err := AcquireLock(path)
	require.NoError(t, err)

	_, err = AcquireLock(path)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, first.Unlock())

	again, err := AcquireLock(path)
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}
