package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"todo-service/internal/domain"
	"todo-service/internal/repository"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes = 72
)

var errPasswordTooLong = newError(ErrValidation, "password must be at most 72 bytes")

// UserService registers users, logs them in and resolves bearer tokens.
type UserService interface {
	Register(ctx context.Context, username, password string) (string, error)
	// Login returns a token and the stored username it was issued for.
	Login(ctx context.Context, username, password string) (token, canonical string, err error)
	Authenticate(token string) (string, error)
}

type userService struct {
	users  repository.UserRepository
	tokens *TokenIssuer
	cost   int
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewUserService builds the auth service. cost outside bcrypt's range falls
// back to bcrypt.DefaultCost.
func NewUserService(users repository.UserRepository, tokens *TokenIssuer, cost int) UserService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &userService{
		users:  users,
		tokens: tokens,
		cost:   cost,
		now:    time.Now,
	}
}

func (s *userService) Register(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrUsernameRequired
	}
	if password == "" {
		return "", ErrPasswordRequired
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return "", ErrPasswordTooShort
	}
	if len(password) > maxPasswordBytes {
		return "", errPasswordTooLong
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return "", ErrUserAlreadyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.now().Unix(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", ErrUserAlreadyExists
		}
		return "", err
	}

	return s.issue(username)
}

func (s *userService) Login(ctx context.Context, username, password string) (string, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", "", ErrCredentialsRequired
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return "", "", err
		}
		// burn the same bcrypt work as a real comparison
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return "", "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", ErrInvalidCredentials
	}

	token, err := s.issue(user.Username)
	if err != nil {
		return "", "", err
	}
	return token, user.Username, nil
}

func (s *userService) Authenticate(token string) (string, error) {
	return s.tokens.Verify(token)
}

func (s *userService) issue(username string) (string, error) {
	token, err := s.tokens.Issue(username)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

func (s *userService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
	})
	return s.dummyHash
}
