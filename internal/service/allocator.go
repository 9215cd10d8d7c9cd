package service

import (
	"context"
	"fmt"
	"sort"

	"todo-service/internal/repository"
)

// IDScope selects which records compete for the same id space.
type IDScope string

const (
	// IDScopeGlobal allocates over every todo regardless of owner.
	IDScopeGlobal IDScope = "global"
	// IDScopeOwner allocates over the caller's todos only.
	IDScopeOwner IDScope = "owner"
)

// ParseIDScope validates a configured scope name. Empty means global.
func ParseIDScope(s string) (IDScope, error) {
	switch IDScope(s) {
	case "", IDScopeGlobal:
		return IDScopeGlobal, nil
	case IDScopeOwner:
		return IDScopeOwner, nil
	default:
		return "", fmt.Errorf("unknown id scope %q", s)
	}
}

// IDAllocator hands out the smallest positive id not currently in use.
// It only reads; callers serialize allocate+insert themselves.
type IDAllocator struct {
	todos repository.TodoRepository
	scope IDScope
}

func NewIDAllocator(todos repository.TodoRepository, scope IDScope) *IDAllocator {
	if scope == "" {
		scope = IDScopeGlobal
	}
	return &IDAllocator{todos: todos, scope: scope}
}

func (a *IDAllocator) Scope() IDScope {
	return a.scope
}

// Next returns the id the next todo created by owner should receive.
func (a *IDAllocator) Next(ctx context.Context, owner string) (int64, error) {
	filter := repository.AllTodos()
	if a.scope == IDScopeOwner {
		filter = filter.OwnedBy(owner)
	}
	ids, err := a.todos.IDs(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("read todo ids: %w", err)
	}
	return SmallestFreeID(ids), nil
}

// SmallestFreeID returns the first integer in 1, 2, 3, ... absent from ids.
func SmallestFreeID(ids []int64) int64 {
	sorted := make([]int64, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	expected := int64(1)
	for _, id := range sorted {
		if id < expected {
			continue
		}
		if id > expected {
			break
		}
		expected++
	}
	return expected
}
