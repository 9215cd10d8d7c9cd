package domain

// Todo is a single todo-list entry. Timestamps are unix seconds.
type Todo struct {
	ID        int64
	Title     string
	Completed bool
	CreatedAt int64
	UpdatedAt int64
	// Owner is the username the todo belongs to; empty when owner scoping is off.
	Owner string
}
