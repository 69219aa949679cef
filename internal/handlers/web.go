package handlers

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crucial707/webdemo/internal/auth"
	"github.com/crucial707/webdemo/internal/db"
	"github.com/crucial707/webdemo/internal/metrics"
	"github.com/crucial707/webdemo/internal/models"
	"github.com/crucial707/webdemo/internal/repo"
	"github.com/crucial707/webdemo/internal/session"
)

// LoginPath is where anonymous users are sent for protected pages.
const LoginPath = "/login"

const defaultNext = "/profile"

// Pinger reports database reachability for the readiness probe.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ==========================
// Web Handler
// ==========================
type WebHandler struct {
	Auth     *auth.Service
	Sessions *session.Manager
	DB       Pinger

	pages  map[string]*template.Template
	logger *slog.Logger
}

// ==========================
// Constructor
// ==========================
func NewWebHandler(authSvc *auth.Service, sessions *session.Manager, pinger Pinger) (*WebHandler, error) {
	pages, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &WebHandler{
		Auth:     authSvc,
		Sessions: sessions,
		DB:       pinger,
		pages:    pages,
		logger:   slog.Default().With("component", "handlers"),
	}, nil
}

// currentUser loads the user behind the request's identity, or nil when anonymous.
func (h *WebHandler) currentUser(ctx context.Context) (*models.User, session.Identity, error) {
	ident := h.Sessions.CurrentIdentity(ctx)
	if !ident.Authenticated() {
		return nil, ident, nil
	}
	user, err := h.Auth.UserByID(ctx, ident.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ident, nil
	}
	if err != nil {
		return nil, ident, err
	}
	return user, ident, nil
}

// ==========================
// Index
// ==========================
func (h *WebHandler) Index(w http.ResponseWriter, r *http.Request) {
	user, _, err := h.currentUser(r.Context())
	if err != nil {
		h.fail(w, r, "index", &pageData{Title: "Home"}, err)
		return
	}
	h.render(w, http.StatusOK, "index", &pageData{Title: "Home", User: user})
}

// ==========================
// Login
// ==========================
func (h *WebHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	data := &pageData{Title: "Log in", Next: next}

	// A session whose user row is gone counts as anonymous here.
	user, _, err := h.currentUser(r.Context())
	if err != nil {
		h.fail(w, r, "login", data, err)
		return
	}
	if user != nil {
		http.Redirect(w, r, orDefault(next), http.StatusFound)
		return
	}
	h.render(w, http.StatusOK, "login", data)
}

func (h *WebHandler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	remember := r.PostFormValue("remember") != ""
	next := safeNext(r.PostFormValue("next"))
	if next == "" {
		next = safeNext(r.URL.Query().Get("next"))
	}

	data := &pageData{Title: "Log in", Email: email, Next: next, Remember: remember}

	user, err := h.Auth.Authenticate(r.Context(), email, password)
	if err != nil {
		outcome := "error"
		if errors.Is(err, auth.ErrInvalidCredentials) {
			outcome = "invalid"
			h.logger.Info("login failed", "reason", "invalid credentials")
		}
		metrics.IncLoginAttempt(outcome)
		h.fail(w, r, "login", data, err)
		return
	}

	if err := h.login(r.Context(), w, user.ID, remember); err != nil {
		metrics.IncLoginAttempt("error")
		h.fail(w, r, "login", data, err)
		return
	}

	metrics.IncLoginAttempt("success")
	h.logger.Info("user logged in", "user_id", user.ID, "remember", remember)
	http.Redirect(w, r, orDefault(next), http.StatusSeeOther)
}

// login starts a session for userID. The session lives outside the request
// transaction, so it is deleted again if that transaction does not commit.
func (h *WebHandler) login(ctx context.Context, w http.ResponseWriter, userID int64, remember bool) error {
	sess, err := h.Sessions.Login(ctx, w, userID, remember)
	if err != nil {
		return err
	}
	db.OnRollback(ctx, func(ctx context.Context) {
		if err := h.Sessions.Invalidate(ctx, sess.ID); err != nil {
			h.logger.Error("discarding session of rolled back request failed", "user_id", userID, "error", err)
		}
	})
	return nil
}

// ==========================
// Register
// ==========================
func (h *WebHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	data := &pageData{Title: "Register"}
	user, _, err := h.currentUser(r.Context())
	if err != nil {
		h.fail(w, r, "register", data, err)
		return
	}
	if user != nil {
		http.Redirect(w, r, defaultNext, http.StatusFound)
		return
	}
	h.render(w, http.StatusOK, "register", data)
}

func (h *WebHandler) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	email := strings.TrimSpace(r.PostFormValue("email"))
	name := strings.TrimSpace(r.PostFormValue("name"))
	password := r.PostFormValue("password")

	data := &pageData{Title: "Register", Email: email, Name: name}

	user, err := h.Auth.Register(r.Context(), email, password, name)
	if err != nil {
		var ve *models.ValidationError
		switch {
		case errors.As(err, &ve):
			metrics.IncRegistration("invalid")
		case errors.Is(err, repo.ErrDuplicateEmail):
			metrics.IncRegistration("duplicate")
		default:
			metrics.IncRegistration("error")
		}
		h.fail(w, r, "register", data, err)
		return
	}

	if err := h.login(r.Context(), w, user.ID, false); err != nil {
		metrics.IncRegistration("error")
		h.fail(w, r, "register", data, err)
		return
	}

	metrics.IncRegistration("success")
	http.Redirect(w, r, defaultNext, http.StatusSeeOther)
}

// ==========================
// Profile (protected)
// ==========================
func (h *WebHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ident, err := h.currentUser(r.Context())
	if err != nil {
		h.fail(w, r, "profile", &pageData{Title: "Profile"}, err)
		return
	}

	if user == nil {
		// The session outlived its user row. Logging out also drops the
		// remember cookie, which would otherwise restore the session again.
		if ident.Authenticated() {
			if err := h.Sessions.Logout(r.Context(), w, r); err != nil {
				h.fail(w, r, "profile", &pageData{Title: "Profile"}, err)
				return
			}
			h.logger.Warn("session user missing; logged out", "user_id", ident.UserID)
		}
		authErr := &session.AuthRequiredError{Next: r.URL.RequestURI()}
		http.Redirect(w, r, authErr.LoginURL(LoginPath), http.StatusFound)
		return
	}

	h.render(w, http.StatusOK, "profile", &pageData{Title: "Profile", User: user, Fresh: ident.Fresh})
}

// ==========================
// Logout
// ==========================
func (h *WebHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ident := h.Sessions.CurrentIdentity(r.Context())
	if err := h.Sessions.Logout(r.Context(), w, r); err != nil {
		h.fail(w, r, "index", &pageData{Title: "Home"}, err)
		return
	}
	if ident.Authenticated() {
		h.logger.Info("user logged out", "user_id", ident.UserID)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ==========================
// Health / Ready
// ==========================
func (h *WebHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (h *WebHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := h.DB.PingContext(ctx); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	_, _ = w.Write([]byte("ready"))
}

// parseForm parses the posted form. Bodies cut off by middleware.MaxBytes
// get 413, other malformed bodies 400.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	err := r.ParseForm()
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
		return false
	}
	http.Error(w, "bad form", http.StatusBadRequest)
	return false
}

// safeNext accepts only local absolute paths so the login redirect cannot
// leave the site. Anything else yields "".
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return next
}

func orDefault(next string) string {
	if next == "" {
		return defaultNext
	}
	return next
}
