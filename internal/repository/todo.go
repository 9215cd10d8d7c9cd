package repository

import (
	"context"

	"todo-service/internal/domain"
)

// TodoFilter is a typed predicate over todo records. The zero value matches
// every record; each With/OwnedBy call conjoins an equality test.
type TodoFilter struct {
	id    *int64
	owner *string
}

// AllTodos matches every todo record.
func AllTodos() TodoFilter {
	return TodoFilter{}
}

// TodoByID matches the todo with the given id.
func TodoByID(id int64) TodoFilter {
	return TodoFilter{}.WithID(id)
}

func (f TodoFilter) WithID(id int64) TodoFilter {
	f.id = &id
	return f
}

func (f TodoFilter) OwnedBy(owner string) TodoFilter {
	f.owner = &owner
	return f
}

func (f TodoFilter) ID() (int64, bool) {
	if f.id == nil {
		return 0, false
	}
	return *f.id, true
}

func (f TodoFilter) Owner() (string, bool) {
	if f.owner == nil {
		return "", false
	}
	return *f.owner, true
}

// Matches reports whether todo satisfies every conjunct of the filter.
func (f TodoFilter) Matches(todo domain.Todo) bool {
	if f.id != nil && todo.ID != *f.id {
		return false
	}
	if f.owner != nil && todo.Owner != *f.owner {
		return false
	}
	return true
}

// TodoRepository is the record table holding todos.
type TodoRepository interface {
	Init(ctx context.Context) error
	Insert(ctx context.Context, todo *domain.Todo) error
	Get(ctx context.Context, filter TodoFilter) (*domain.Todo, error)
	List(ctx context.Context, filter TodoFilter) ([]domain.Todo, error)
	// Update writes title, completed and updated_at of todo onto the record
	// selected by filter.
	Update(ctx context.Context, filter TodoFilter, todo *domain.Todo) error
	Remove(ctx context.Context, filter TodoFilter) error
	Contains(ctx context.Context, filter TodoFilter) (bool, error)
	IDs(ctx context.Context, filter TodoFilter) ([]int64, error)
}
