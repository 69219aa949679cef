package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crucial707/webdemo/internal/models"
	"github.com/crucial707/webdemo/internal/repo"
)

// ErrInvalidCredentials is returned for both an unknown email and a wrong
// password so callers cannot tell the two apart.
var ErrInvalidCredentials = errors.New("invalid email or password")

// UserStore is the persistence the service depends on. *repo.UserRepo implements it.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash, name string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// Hasher is implemented by PasswordHasher.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hashed string) bool
}

// Service implements registration and credential checks on top of a UserStore.
type Service struct {
	users  UserStore
	hasher Hasher
	logger *slog.Logger

	// dummyHash is compared against when the email is unknown so both failure
	// paths cost one bcrypt comparison.
	dummyHash string
}

func NewService(users UserStore, hasher Hasher) *Service {
	s := &Service{
		users:  users,
		hasher: hasher,
		logger: slog.Default().With("component", "auth"),
	}
	if h, err := hasher.Hash("dummy-password-for-timing"); err == nil {
		s.dummyHash = h
	} else {
		s.dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
	}
	return s
}

// Register validates the input, hashes the password and stores the user.
// It returns *models.ValidationError for bad input and repo.ErrDuplicateEmail
// when the email is taken.
func (s *Service) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	if err := models.ValidateUser(email, password, name); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return nil, &models.ValidationError{Fields: map[string]string{"password": "must be at most 72 bytes"}}
		}
		return nil, err
	}

	user, err := s.users.Create(ctx, email, hashed, name)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate returns the user whose email and password match. Unknown email
// and wrong password both yield ErrInvalidCredentials; storage failures are
// returned wrapped.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if !s.hasher.Verify(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// UserByID loads the user behind an authenticated identity.
// UserExists reports whether a user row with id exists. It backs the
// remember-me check in the session manager.
func (s *Service) UserExists(ctx context.Context, id int64) (bool, error) {
	_, err := s.UserByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) UserByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return user, nil
}
