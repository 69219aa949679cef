package users

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

var userColumns = []string{"id", "email", "password", "name"}

func mockOpener(t *testing.T) (opener, sqlmock.Sqlmock) {
	t.Helper()
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return func(context.Context) (*sql.DB, int, error) {
		return database, bcrypt.MinCost, nil
	}, mock
}

func run(t *testing.T, open opener, args ...string) (string, error) {
	t.Helper()
	cmd := usersCmd(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCreateUser(t *testing.T) {
	open, mock := mockOpener(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "user" \(email, password, name\)`).
		WithArgs("alice@example.com", sqlmock.AnyArg(), "Alice").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(1, "alice@example.com", "$2a$04$x", "Alice"))
	mock.ExpectCommit()

	out, err := run(t, open, "create", "--email", "alice@example.com", "--name", "Alice", "--password", "password123")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(out, "Created user 1 (alice@example.com)") {
		t.Errorf("unexpected output: %s", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestCreateUser_PromptsForPassword(t *testing.T) {
	open, mock := mockOpener(t)

	prompts := 0
	old := readPassword
	readPassword = func(string) (string, error) {
		prompts++
		return "from-prompt", nil
	}
	defer func() { readPassword = old }()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "user"`).
		WithArgs("bob@example.com", sqlmock.AnyArg(), "Bob").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(2, "bob@example.com", "$2a$04$x", "Bob"))
	mock.ExpectCommit()

	if _, err := run(t, open, "create", "--email", "bob@example.com", "--name", "Bob"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if prompts != 2 {
		t.Errorf("expected 2 prompts, got %d", prompts)
	}
}

func TestCreateUser_PasswordMismatch(t *testing.T) {
	answers := []string{"one", "two"}
	old := readPassword
	readPassword = func(string) (string, error) {
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}
	defer func() { readPassword = old }()

	open := func(context.Context) (*sql.DB, int, error) {
		t.Fatal("database must not be opened")
		return nil, 0, nil
	}

	_, err := run(t, open, "create", "--email", "c@example.com", "--name", "C")
	if err == nil || !strings.Contains(err.Error(), "do not match") {
		t.Fatalf("expected mismatch error, got %v", err)
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	open, mock := mockOpener(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "user"`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := run(t, open, "create", "--email", "alice@example.com", "--name", "Alice", "--password", "pw")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestCreateUser_Invalid(t *testing.T) {
	open, mock := mockOpener(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := run(t, open, "create", "--email", "not-an-email", "--name", "X", "--password", "pw")
	if err == nil || !strings.Contains(err.Error(), "invalid input") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestShowUser_TableOutput(t *testing.T) {
	open, mock := mockOpener(t)

	mock.ExpectQuery(`SELECT id, email, password, name`).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(1, "alice@example.com", "$2a$04$secret", "Alice"))

	out, err := run(t, open, "show", "--email", "alice@example.com")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "alice@example.com") || !strings.Contains(out, "Alice") {
		t.Fatalf("expected user in output, got: %s", out)
	}
	if strings.Contains(out, "secret") {
		t.Errorf("password hash leaked: %s", out)
	}
}

func TestShowUser_JSONOutput(t *testing.T) {
	open, mock := mockOpener(t)

	mock.ExpectQuery(`SELECT id, email, password, name`).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(1, "alice@example.com", "$2a$04$secret", "Alice"))

	out, err := run(t, open, "show", "--email", "alice@example.com", "--json")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, `"email": "alice@example.com"`) {
		t.Fatalf("expected JSON output, got: %s", out)
	}
	if strings.Contains(out, "password") {
		t.Errorf("password field leaked: %s", out)
	}
}

func TestShowUser_NotFound(t *testing.T) {
	open, mock := mockOpener(t)

	mock.ExpectQuery(`SELECT id, email, password, name`).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := run(t, open, "show", "--email", "nobody@example.com")
	if err == nil || !strings.Contains(err.Error(), "no user") {
		t.Fatalf("expected not found error, got %v", err)
	}
}
