package service

import "errors"

// Error kinds. Every error returned by the services unwraps to one of these,
// so callers classify with errors.Is.
var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("authentication error")
)

var (
	ErrTitleRequired    = newError(ErrValidation, "title must not be empty")
	ErrUsernameRequired = newError(ErrValidation, "username is required")
	ErrPasswordRequired = newError(ErrValidation, "password is required")
	ErrPasswordTooShort = newError(ErrValidation, "password must be at least 8 characters")
	// ErrCredentialsRequired is returned by Login when either field is empty.
	ErrCredentialsRequired = newError(ErrValidation, "username and password are required")

	ErrTodoNotFound = newError(ErrNotFound, "Not Found")
	// ErrTodoIDTaken is returned when another writer stored the allocated id first.
	ErrTodoIDTaken = newError(ErrConflict, "todo id already taken, please retry")

	// ErrUserAlreadyExists is returned when attempting to register with an existing username.
	ErrUserAlreadyExists = newError(ErrConflict, "username already exists")

	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = newError(ErrUnauthenticated, "invalid username or password")
	ErrTokenMissing       = newError(ErrUnauthenticated, "authentication required: provide a valid Bearer token")
	ErrTokenInvalid       = newError(ErrUnauthenticated, "invalid token")
	ErrTokenExpired       = newError(ErrUnauthenticated, "token has expired, please log in again")
	// ErrNoCaller is returned when an owner-scoped call arrives without an identity.
	ErrNoCaller = newError(ErrUnauthenticated, "caller identity is required")
)

// kindError carries a caller-facing message and unwraps to its kind.
type kindError struct {
	kind error
	msg  string
}

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }
