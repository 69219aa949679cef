package auth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/crucial707/webdemo/internal/models"
	"github.com/crucial707/webdemo/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memUsers is an in-memory UserStore with the same uniqueness rule as the table.
type memUsers struct {
	mu     sync.Mutex
	nextID int64
	rows   []models.User
	err    error
}

func (m *memUsers) Create(_ context.Context, email, hash, name string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.rows {
		if u.Email == email {
			return nil, repo.ErrDuplicateEmail
		}
	}
	m.nextID++
	u := models.User{ID: m.nextID, Email: email, Password: hash, Name: name}
	m.rows = append(m.rows, u)
	return &u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.rows {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.rows {
		if u.ID == id {
			u := u
			return &u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memUsers) count(email string) int {
	n := 0
	for _, u := range m.rows {
		if u.Email == email {
			n++
		}
	}
	return n
}

// countingHasher records Verify calls to check both failure paths do the same work.
type countingHasher struct {
	PasswordHasher
	verifies int
}

func (c *countingHasher) Verify(plaintext, hashed string) bool {
	c.verifies++
	return c.PasswordHasher.Verify(plaintext, hashed)
}

func newTestService(t *testing.T) (*Service, *memUsers) {
	t.Helper()
	users := &memUsers{}
	return NewService(users, testHasher()), users
}

func TestService_RegisterStoresHash(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, "test@example.com", "password123", "Test User")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	stored, err := users.GetByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", stored.Password)
	assert.True(t, testHasher().Verify("password123", stored.Password))
}

func TestService_RegisterDuplicateEmail(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "test@example.com", "password123", "First")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "test@example.com", "other", "Second")
	assert.ErrorIs(t, err, repo.ErrDuplicateEmail)
	assert.Equal(t, 1, users.count("test@example.com"))
}

func TestService_RegisterEmailIsCaseSensitive(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "test@example.com", "pw", "Lower")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "Test@Example.com", "pw", "Mixed")
	require.NoError(t, err)
	assert.Len(t, users.rows, 2)
}

func TestService_RegisterValidation(t *testing.T) {
	svc, users := newTestService(t)

	_, err := svc.Register(context.Background(), "", "", "")
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "email")
	assert.Contains(t, ve.Fields, "password")
	assert.Contains(t, ve.Fields, "name")
	assert.Empty(t, users.rows)
}

func TestService_RegisterPasswordTooLong(t *testing.T) {
	svc, _ := newTestService(t)

	long := make([]byte, 80)
	for i := range long {
		long[i] = 'x'
	}
	_, err := svc.Register(context.Background(), "a@b.c", string(long), "A")
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "must be at most 72 bytes", ve.Fields["password"])
}

func TestService_RegisterStorageFailure(t *testing.T) {
	svc, users := newTestService(t)
	users.err = errors.New("db down")

	_, err := svc.Register(context.Background(), "a@b.c", "pw", "A")
	require.Error(t, err)
	assert.NotErrorIs(t, err, repo.ErrDuplicateEmail)
}

func TestService_Authenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, "test@example.com", "password123", "Test User")
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, "test@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestService_AuthenticateFailuresAreIndistinguishable(t *testing.T) {
	users := &memUsers{}
	hasher := &countingHasher{PasswordHasher: testHasher()}
	svc := NewService(users, hasher)
	ctx := context.Background()

	_, err := svc.Register(ctx, "test@example.com", "password123", "Test User")
	require.NoError(t, err)

	hasher.verifies = 0
	_, wrongPassword := svc.Authenticate(ctx, "test@example.com", "nope")
	wrongPasswordVerifies := hasher.verifies

	hasher.verifies = 0
	_, unknownEmail := svc.Authenticate(ctx, "ghost@example.com", "anything")
	unknownEmailVerifies := hasher.verifies

	assert.Same(t, ErrInvalidCredentials, wrongPassword)
	assert.Same(t, ErrInvalidCredentials, unknownEmail)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.Equal(t, 1, wrongPasswordVerifies)
	assert.Equal(t, wrongPasswordVerifies, unknownEmailVerifies)
}

func TestService_AuthenticateStorageFailure(t *testing.T) {
	svc, users := newTestService(t)
	users.err = errors.New("db down")

	_, err := svc.Authenticate(context.Background(), "a@b.c", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_UserByID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, "test@example.com", "pw", "Test User")
	require.NoError(t, err)

	got, err := svc.UserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test User", got.Name)

	_, err = svc.UserByID(ctx, 404)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestService_UserExists(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, "test@example.com", "pw", "Test User")
	require.NoError(t, err)

	ok, err := svc.UserExists(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.UserExists(ctx, 99)
	require.NoError(t, err)
	assert.False(t, ok)

	users.err = errors.New("db down")
	_, err = svc.UserExists(ctx, created.ID)
	assert.Error(t, err)
}
