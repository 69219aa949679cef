package main

import (
	"database/sql"
	"net/http"

	"github.com/crucial707/webdemo/internal/auth"
	"github.com/crucial707/webdemo/internal/config"
	"github.com/crucial707/webdemo/internal/handlers"
	"github.com/crucial707/webdemo/internal/middleware"
	"github.com/crucial707/webdemo/internal/repo"
	"github.com/crucial707/webdemo/internal/session"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newAuthService builds the account service on the user repository.
func newAuthService(database *sql.DB, cfg config.Config) *auth.Service {
	return auth.NewService(repo.NewUserRepo(database), auth.NewPasswordHasher(cfg.BcryptCost))
}

// newRouter builds the full HTTP handler. database also backs the
// per-request transactions.
func newRouter(database *sql.DB, cfg config.Config, authService *auth.Service, sessions *session.Manager) (http.Handler, error) {
	web, err := handlers.NewWebHandler(authService, sessions, database)
	if err != nil {
		return nil, err
	}

	authLimiter := middleware.AuthRateLimiter()
	requestTx := middleware.RequestTx(database)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.CookieSecure))

	// ==========================
	// Probes (no session)
	// ==========================
	r.Get("/health", web.Health)
	r.Get("/ready", web.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)

		// ==========================
		// Public pages
		// ==========================
		r.Get("/", web.Index)
		r.Get("/login", web.LoginForm)
		r.Get("/register", web.RegisterForm)
		r.Get("/logout", web.Logout)
		r.Post("/logout", web.Logout)

		// ==========================
		// Credential submissions
		// ==========================
		r.Group(func(r chi.Router) {
			r.Use(middleware.MaxBytes(middleware.DefaultMaxFormBytes))
			r.Use(authLimiter.Middleware)
			r.Use(requestTx)
			r.Post("/login", web.LoginSubmit)
			r.Post("/register", web.RegisterSubmit)
		})

		// ==========================
		// Protected pages
		// ==========================
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessions, handlers.LoginPath))
			r.Use(requestTx)
			r.Get("/profile", web.Profile)
		})
	})

	return r, nil
}
