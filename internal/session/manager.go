package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	SessionCookie  = "demo_session"
	RememberCookie = "demo_remember"
)

// Options configure a Manager. Zero durations fall back to the defaults below.
type Options struct {
	Secret      []byte
	SessionTTL  time.Duration
	RememberTTL time.Duration
	Secure      bool
	// OnCreate is called after a session is stored, e.g. to count it.
	OnCreate func(s *Session)
	// UserExists, when set, is consulted before a remember-me cookie is
	// turned into a session. Cookies naming a missing user are cleared.
	UserExists func(ctx context.Context, userID int64) (bool, error)
}

const (
	DefaultSessionTTL  = 24 * time.Hour
	DefaultRememberTTL = 365 * 24 * time.Hour
)

// Manager issues, resolves and revokes sessions.
type Manager struct {
	store       Store
	signer      signer
	ttl         time.Duration
	rememberTTL time.Duration
	secure      bool
	onCreate    func(s *Session)
	userExists  func(ctx context.Context, userID int64) (bool, error)
	now         func() time.Time
	logger      *slog.Logger
}

func NewManager(store Store, opts Options) *Manager {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.RememberTTL <= 0 {
		opts.RememberTTL = DefaultRememberTTL
	}
	m := &Manager{
		store:       store,
		ttl:         opts.SessionTTL,
		rememberTTL: opts.RememberTTL,
		secure:      opts.Secure,
		onCreate:    opts.OnCreate,
		userExists:  opts.UserExists,
		now:         time.Now,
		logger:      slog.Default().With("component", "session"),
	}
	m.signer = signer{secret: opts.Secret, now: m.clock}
	return m
}

func (m *Manager) clock() time.Time { return m.now() }

// Login starts a fresh session for userID and sets the session cookie.
// With remember set, a long-lived remember-me cookie is set as well.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, userID int64, remember bool) (*Session, error) {
	sess, err := m.start(ctx, w, userID, true)
	if err != nil {
		return nil, err
	}

	if remember {
		expires := m.now().Add(m.rememberTTL)
		token, err := m.signer.rememberToken(userID, expires)
		if err != nil {
			return nil, fmt.Errorf("signing remember token: %w", err)
		}
		m.setCookie(w, RememberCookie, token, expires)
	} else {
		m.clearCookie(w, RememberCookie)
	}

	return sess, nil
}

func (m *Manager) start(ctx context.Context, w http.ResponseWriter, userID int64, fresh bool) (*Session, error) {
	now := m.now()
	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Fresh:     fresh,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	token, err := m.signer.sessionToken(sess)
	if err != nil {
		_ = m.store.Delete(ctx, sess.ID)
		return nil, fmt.Errorf("signing session token: %w", err)
	}
	m.setCookie(w, SessionCookie, token, sess.ExpiresAt)

	if m.onCreate != nil {
		m.onCreate(sess)
	}
	return sess, nil
}

// Logout deletes the request's session, if any, and clears both cookies.
// A session restored by Middleware during this request is deleted too.
// Logging out an anonymous request is a no-op apart from clearing cookies.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	m.clearCookie(w, SessionCookie)
	m.clearCookie(w, RememberCookie)

	id := IdentityFromContext(r.Context()).SessionID
	if id == "" {
		id = m.sessionIDFromRequest(r)
	}
	if id == "" {
		return nil
	}
	return m.Invalidate(ctx, id)
}

// Invalidate deletes a session server-side; later requests carrying its
// cookie resolve to Anonymous.
func (m *Manager) Invalidate(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Identify resolves the request's session cookie without side effects.
// Invalid, unknown and expired sessions resolve to Anonymous; only store
// failures are returned as errors.
func (m *Manager) Identify(r *http.Request) (Identity, error) {
	id := m.sessionIDFromRequest(r)
	if id == "" {
		return Anonymous, nil
	}

	sess, err := m.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		return Anonymous, nil
	}
	if err != nil {
		return Anonymous, err
	}

	return Identity{UserID: sess.UserID, Fresh: sess.Fresh, SessionID: sess.ID}, nil
}

func (m *Manager) sessionIDFromRequest(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	id, err := m.signer.sessionID(c.Value)
	if err != nil {
		m.logger.Debug("rejected session cookie", "error", err)
		return ""
	}
	return id
}

// Middleware resolves the identity of every request and stores it in the
// request context. An anonymous request carrying a valid remember-me cookie
// gets a new, non-fresh session.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, err := m.Identify(r)
		if err != nil {
			m.logger.Error("session lookup failed", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		if !ident.Authenticated() {
			ident = m.restore(w, r)
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
	})
}

func (m *Manager) restore(w http.ResponseWriter, r *http.Request) Identity {
	c, err := r.Cookie(RememberCookie)
	if err != nil || c.Value == "" {
		return Anonymous
	}

	userID, err := m.signer.rememberedUser(c.Value)
	if err != nil {
		m.logger.Debug("rejected remember cookie", "error", err)
		m.clearCookie(w, RememberCookie)
		return Anonymous
	}

	if m.userExists != nil {
		ok, err := m.userExists(r.Context(), userID)
		if err != nil {
			m.logger.Error("checking remembered user failed", "user_id", userID, "error", err)
			return Anonymous
		}
		if !ok {
			m.logger.Info("remember cookie names a missing user", "user_id", userID)
			m.clearCookie(w, RememberCookie)
			return Anonymous
		}
	}

	sess, err := m.start(r.Context(), w, userID, false)
	if err != nil {
		m.logger.Error("restoring remembered session failed", "user_id", userID, "error", err)
		return Anonymous
	}

	m.logger.Info("session restored from remember cookie", "user_id", userID)
	return Identity{UserID: userID, Fresh: false, SessionID: sess.ID}
}

// CurrentIdentity returns the identity resolved by Middleware for this request.
func (m *Manager) CurrentIdentity(ctx context.Context) Identity {
	return IdentityFromContext(ctx)
}

// RequireAuthenticated returns the current user's id, or an *AuthRequiredError
// naming the requested path so the caller can redirect to the login page.
func (m *Manager) RequireAuthenticated(r *http.Request) (int64, error) {
	ident := m.CurrentIdentity(r.Context())
	if !ident.Authenticated() {
		return 0, &AuthRequiredError{Next: r.URL.RequestURI()}
	}
	return ident.UserID, nil
}

func (m *Manager) setCookie(w http.ResponseWriter, name, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
