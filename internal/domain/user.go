package domain

// User represents a registered account. Users are never updated or removed.
type User struct {
	Username     string
	PasswordHash string
	CreatedAt    int64
}
