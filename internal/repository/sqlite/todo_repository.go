package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"todo-service/internal/domain"
	"todo-service/internal/repository"
)

const createTodosTable = `
CREATE TABLE IF NOT EXISTS todos (
	id INTEGER NOT NULL,
	owner TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (owner, id)
)`

const createTodosIDIndex = `CREATE INDEX IF NOT EXISTS idx_todos_id ON todos(id)`

const selectTodoColumns = `SELECT id, owner, title, completed, created_at, updated_at FROM todos`

type TodoRepository struct {
	db *sql.DB
}

func NewTodoRepository(db *sql.DB) repository.TodoRepository {
	return &TodoRepository{db: db}
}

func (r *TodoRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTodosTable); err != nil {
		return fmt.Errorf("create todos table: %w", err)
	}
	if err := r.ensureTodoColumns(ctx); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, createTodosIDIndex); err != nil {
		return fmt.Errorf("create todos index: %w", err)
	}
	return nil
}

// ensureTodoColumns upgrades a todos table created before records carried an
// owner. Such tables are keyed by id alone, so they are rebuilt with the
// (owner, id) key rather than just gaining the column.
func (r *TodoRepository) ensureTodoColumns(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `PRAGMA table_info(todos)`)
	if err != nil {
		return fmt.Errorf("describe todos table: %w", err)
	}
	defer rows.Close()

	columns := map[string]struct{}{}
	var keyColumns []string
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("scan pragma table info: %w", err)
		}
		columns[name] = struct{}{}
		if pk > 0 {
			keyColumns = append(keyColumns, name)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate pragma table info: %w", err)
	}
	rows.Close()

	_, hasOwner := columns["owner"]
	if hasOwner && len(keyColumns) == 2 {
		return nil
	}
	return r.rebuildTodosTable(ctx, hasOwner)
}

func (r *TodoRepository) rebuildTodosTable(ctx context.Context, hasOwner bool) error {
	ownerExpr := "''"
	if hasOwner {
		ownerExpr = "owner"
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin todos rebuild: %w", err)
	}
	defer tx.Rollback()

	statements := []string{
		strings.Replace(createTodosTable, "todos (", "todos_new (", 1),
		`INSERT INTO todos_new (id, owner, title, completed, created_at, updated_at)
SELECT id, ` + ownerExpr + `, title, completed, created_at, updated_at FROM todos`,
		`DROP TABLE todos`,
		`ALTER TABLE todos_new RENAME TO todos`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("rebuild todos table: %w", err)
		}
	}
	return tx.Commit()
}

func (r *TodoRepository) Insert(ctx context.Context, todo *domain.Todo) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO todos (id, owner, title, completed, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		todo.ID,
		todo.Owner,
		todo.Title,
		todo.Completed,
		todo.CreatedAt,
		todo.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert todo %d: %w", todo.ID, repository.ErrDuplicate)
		}
		return fmt.Errorf("insert todo: %w", err)
	}
	return nil
}

func (r *TodoRepository) Get(ctx context.Context, filter repository.TodoFilter) (*domain.Todo, error) {
	where, args := todoWhere(filter)
	row := r.db.QueryRowContext(ctx, selectTodoColumns+where+` ORDER BY id ASC, owner ASC LIMIT 1`, args...)
	return scanTodo(row)
}

func (r *TodoRepository) List(ctx context.Context, filter repository.TodoFilter) ([]domain.Todo, error) {
	where, args := todoWhere(filter)
	rows, err := r.db.QueryContext(ctx, selectTodoColumns+where+` ORDER BY id ASC, owner ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query todos: %w", err)
	}
	defer rows.Close()

	todos := []domain.Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, *todo)
	}

	return todos, rows.Err()
}

func (r *TodoRepository) Update(ctx context.Context, filter repository.TodoFilter, todo *domain.Todo) error {
	where, args := todoWhere(filter)
	args = append([]any{todo.Title, todo.Completed, todo.UpdatedAt}, args...)
	res, err := r.db.ExecContext(ctx, `UPDATE todos SET title=?, completed=?, updated_at=?`+where, args...)
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("todo update rows affected: %w", err)
	}
	if aff == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TodoRepository) Remove(ctx context.Context, filter repository.TodoFilter) error {
	where, args := todoWhere(filter)
	res, err := r.db.ExecContext(ctx, `DELETE FROM todos`+where, args...)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("todo delete rows affected: %w", err)
	}
	if aff == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TodoRepository) Contains(ctx context.Context, filter repository.TodoFilter) (bool, error) {
	where, args := todoWhere(filter)
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM todos`+where, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("count todos: %w", err)
	}
	return count > 0, nil
}

func (r *TodoRepository) IDs(ctx context.Context, filter repository.TodoFilter) ([]int64, error) {
	where, args := todoWhere(filter)
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM todos`+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query todo ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan todo id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func todoWhere(filter repository.TodoFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if id, ok := filter.ID(); ok {
		clauses = append(clauses, "id=?")
		args = append(args, id)
	}
	if owner, ok := filter.Owner(); ok {
		clauses = append(clauses, "owner=?")
		args = append(args, owner)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanTodo(scanner interface {
	Scan(dest ...any) error
}) (*domain.Todo, error) {
	var todo domain.Todo
	if err := scanner.Scan(
		&todo.ID,
		&todo.Owner,
		&todo.Title,
		&todo.Completed,
		&todo.CreatedAt,
		&todo.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan todo: %w", err)
	}
	return &todo, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}
