package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"todo-service/internal/domain"
	"todo-service/internal/repository"
)

// memoryTodos is an in-process TodoRepository keyed by (owner, id).
type memoryTodos struct {
	mu      sync.Mutex
	records []domain.Todo

	// beforeInsert runs ahead of each Insert, standing in for another writer.
	beforeInsert func(m *memoryTodos, todo domain.Todo)
}

var _ repository.TodoRepository = (*memoryTodos)(nil)

func (m *memoryTodos) Init(context.Context) error { return nil }

func (m *memoryTodos) Insert(_ context.Context, todo *domain.Todo) error {
	if m.beforeInsert != nil {
		m.beforeInsert(m, *todo)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := repository.TodoByID(todo.ID).OwnedBy(todo.Owner)
	for _, rec := range m.records {
		if key.Matches(rec) {
			return fmt.Errorf("insert todo %d: %w", todo.ID, repository.ErrDuplicate)
		}
	}
	m.records = append(m.records, *todo)
	return nil
}

func (m *memoryTodos) put(todo domain.Todo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, todo)
}

func (m *memoryTodos) Get(ctx context.Context, filter repository.TodoFilter) (*domain.Todo, error) {
	todos, _ := m.List(ctx, filter)
	if len(todos) == 0 {
		return nil, repository.ErrNotFound
	}
	return &todos[0], nil
}

func (m *memoryTodos) List(_ context.Context, filter repository.TodoFilter) ([]domain.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	todos := []domain.Todo{}
	for _, rec := range m.records {
		if filter.Matches(rec) {
			todos = append(todos, rec)
		}
	}
	sort.Slice(todos, func(i, j int) bool {
		if todos[i].ID != todos[j].ID {
			return todos[i].ID < todos[j].ID
		}
		return todos[i].Owner < todos[j].Owner
	})
	return todos, nil
}

func (m *memoryTodos) Update(_ context.Context, filter repository.TodoFilter, todo *domain.Todo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	updated := false
	for i := range m.records {
		if filter.Matches(m.records[i]) {
			m.records[i].Title = todo.Title
			m.records[i].Completed = todo.Completed
			m.records[i].UpdatedAt = todo.UpdatedAt
			updated = true
		}
	}
	if !updated {
		return repository.ErrNotFound
	}
	return nil
}

func (m *memoryTodos) Remove(_ context.Context, filter repository.TodoFilter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	for _, rec := range m.records {
		if !filter.Matches(rec) {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(m.records) {
		return repository.ErrNotFound
	}
	m.records = kept
	return nil
}

func (m *memoryTodos) Contains(ctx context.Context, filter repository.TodoFilter) (bool, error) {
	todos, _ := m.List(ctx, filter)
	return len(todos) > 0, nil
}

func (m *memoryTodos) IDs(ctx context.Context, filter repository.TodoFilter) ([]int64, error) {
	todos, _ := m.List(ctx, filter)
	ids := make([]int64, len(todos))
	for i := range todos {
		ids[i] = todos[i].ID
	}
	return ids, nil
}
