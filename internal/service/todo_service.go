package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"todo-service/internal/domain"
	"todo-service/internal/repository"
)

// TodoService is the todo registry. Every method takes the caller's username;
// it is ignored unless the service was built with owner scoping.
type TodoService interface {
	List(ctx context.Context, owner string) ([]domain.Todo, error)
	Create(ctx context.Context, owner, title string) (*domain.Todo, error)
	Get(ctx context.Context, owner string, id int64) (*domain.Todo, error)
	Delete(ctx context.Context, owner string, id int64) error
	UpdateStatus(ctx context.Context, owner string, id int64, completed bool) (*domain.Todo, error)
	UpdateTitle(ctx context.Context, owner string, id int64, title string) (*domain.Todo, error)
}

type todoService struct {
	todos  repository.TodoRepository
	ids    *IDAllocator
	scoped bool
	now    func() time.Time

	// mu covers allocate+insert so two creates cannot take the same id.
	mu sync.Mutex
}

func NewTodoService(todos repository.TodoRepository, ids *IDAllocator, ownerScoped bool) TodoService {
	return &todoService{
		todos:  todos,
		ids:    ids,
		scoped: ownerScoped,
		now:    time.Now,
	}
}

func (s *todoService) List(ctx context.Context, owner string) ([]domain.Todo, error) {
	filter, err := s.visibleTo(owner)
	if err != nil {
		return nil, err
	}
	todos, err := s.todos.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []domain.Todo{}
	}
	return todos, nil
}

func (s *todoService) Create(ctx context.Context, owner, title string) (*domain.Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if _, err := s.visibleTo(owner); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.ids.Next(ctx, owner)
	if err != nil {
		return nil, err
	}

	now := s.now().Unix()
	todo := &domain.Todo{
		ID:        id,
		Title:     title,
		Completed: false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.scoped {
		todo.Owner = owner
	}

	if err := s.todos.Insert(ctx, todo); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrTodoIDTaken
		}
		return nil, err
	}
	return todo, nil
}

func (s *todoService) Get(ctx context.Context, owner string, id int64) (*domain.Todo, error) {
	filter, err := s.visibleTo(owner)
	if err != nil {
		return nil, err
	}
	return s.lookup(ctx, filter.WithID(id))
}

func (s *todoService) Delete(ctx context.Context, owner string, id int64) error {
	filter, err := s.visibleTo(owner)
	if err != nil {
		return err
	}
	filter = filter.WithID(id)

	ok, err := s.todos.Contains(ctx, filter)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTodoNotFound
	}
	if err := s.todos.Remove(ctx, filter); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTodoNotFound
		}
		return err
	}
	return nil
}

func (s *todoService) UpdateStatus(ctx context.Context, owner string, id int64, completed bool) (*domain.Todo, error) {
	return s.modify(ctx, owner, id, func(todo *domain.Todo) {
		todo.Completed = completed
	})
}

func (s *todoService) UpdateTitle(ctx context.Context, owner string, id int64, title string) (*domain.Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	return s.modify(ctx, owner, id, func(todo *domain.Todo) {
		todo.Title = title
	})
}

// modify loads the visible record, applies change, bumps updated_at and
// writes it back through the same owner-conjoined filter.
func (s *todoService) modify(ctx context.Context, owner string, id int64, change func(*domain.Todo)) (*domain.Todo, error) {
	filter, err := s.visibleTo(owner)
	if err != nil {
		return nil, err
	}
	filter = filter.WithID(id)

	todo, err := s.lookup(ctx, filter)
	if err != nil {
		return nil, err
	}

	change(todo)
	todo.UpdatedAt = s.now().Unix()
	if todo.UpdatedAt < todo.CreatedAt {
		todo.UpdatedAt = todo.CreatedAt
	}

	if err := s.todos.Update(ctx, filter, todo); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTodoNotFound
		}
		return nil, err
	}
	return todo, nil
}

func (s *todoService) lookup(ctx context.Context, filter repository.TodoFilter) (*domain.Todo, error) {
	todo, err := s.todos.Get(ctx, filter)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTodoNotFound
		}
		return nil, err
	}
	return todo, nil
}

// visibleTo returns the base filter for records the caller may see.
func (s *todoService) visibleTo(owner string) (repository.TodoFilter, error) {
	filter := repository.AllTodos()
	if !s.scoped {
		return filter, nil
	}
	if owner == "" {
		return filter, ErrNoCaller
	}
	return filter.OwnedBy(owner), nil
}
