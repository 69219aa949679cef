// Package session maps signed session cookies to user identities.
//
// An identity is either Anonymous or Authenticated(user id, fresh). Login
// moves a client from Anonymous to Authenticated with Fresh set; a session
// restored from the remember-me cookie is Authenticated with Fresh unset.
// Logout, invalidation and expiry move it back to Anonymous.
package session

import (
	"context"
	"errors"
	"net/url"
	"time"
)

var (
	// ErrNotFound is returned by stores for unknown or expired sessions.
	ErrNotFound = errors.New("session not found")
	// ErrAuthRequired matches every *AuthRequiredError.
	ErrAuthRequired = errors.New("authentication required")
)

// Session is the server-side record behind a session cookie.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Fresh     bool      `json:"fresh"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions outside the relational database.
type Store interface {
	Create(ctx context.Context, s *Session) error
	// Get returns ErrNotFound for unknown or expired sessions.
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes expired sessions and reports how many were removed.
	DeleteExpired(ctx context.Context) (int, error)
}

// Identity is the result of resolving a request's session.
// The zero value is Anonymous.
type Identity struct {
	UserID    int64
	Fresh     bool
	SessionID string
}

// Anonymous is the identity of a request without a valid session.
var Anonymous = Identity{}

func (i Identity) Authenticated() bool {
	return i.UserID != 0 && i.SessionID != ""
}

// AuthRequiredError is returned when a protected resource is requested
// anonymously. Next is the path (and query) that was requested.
type AuthRequiredError struct {
	Next string
}

func (e *AuthRequiredError) Error() string {
	return "authentication required for " + e.Next
}

func (e *AuthRequiredError) Is(target error) bool {
	return target == ErrAuthRequired
}

// LoginURL returns loginPath with Next as the "next" query parameter.
func (e *AuthRequiredError) LoginURL(loginPath string) string {
	if e.Next == "" {
		return loginPath
	}
	return loginPath + "?next=" + url.QueryEscape(e.Next)
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by the manager's middleware,
// or Anonymous.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}
