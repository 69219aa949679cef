package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/crucial707/webdemo/internal/db"
	"github.com/crucial707/webdemo/internal/models"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when an insert violates the email unique constraint.
	ErrDuplicateEmail = errors.New("email already registered")
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// ==========================
// UserRepo
// ==========================
type UserRepo struct {
	DB db.DBTX
}

// ==========================
// Constructor
// ==========================
func NewUserRepo(conn db.DBTX) *UserRepo {
	return &UserRepo{DB: conn}
}

// conn prefers the request transaction over the pool.
func (r *UserRepo) conn(ctx context.Context) db.DBTX {
	return db.Conn(ctx, r.DB)
}

// ==========================
// Create User
// ==========================
func (r *UserRepo) Create(ctx context.Context, email, passwordHash, name string) (*models.User, error) {
	query := `
		INSERT INTO "user" (email, password, name)
		VALUES ($1, $2, $3)
		RETURNING id, email, password, name
	`

	user := &models.User{}

	err := r.conn(ctx).QueryRowContext(ctx, query, email, passwordHash, name).
		Scan(&user.ID, &user.Email, &user.Password, &user.Name)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// ==========================
// Get By ID
// ==========================
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, email, password, name
		FROM "user"
		WHERE id = $1
	`
	return r.getOne(ctx, query, id)
}

// ==========================
// Get By Email (exact match)
// ==========================
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, password, name
		FROM "user"
		WHERE email = $1
	`
	return r.getOne(ctx, query, email)
}

// ==========================
// Count By Email
// ==========================
func (r *UserRepo) CountByEmail(ctx context.Context, email string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM "user" WHERE email = $1`, email).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}

	err := r.conn(ctx).QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Email, &user.Password, &user.Name)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
