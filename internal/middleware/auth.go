package middleware

import (
	"errors"
	"net/http"

	"github.com/crucial707/webdemo/internal/session"
)

// RequireAuth redirects anonymous requests to loginPath with the requested
// path in the "next" query parameter. It must run after the session middleware.
func RequireAuth(sessions *session.Manager, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := sessions.RequireAuthenticated(r); err != nil {
				var authErr *session.AuthRequiredError
				if errors.As(err, &authErr) {
					http.Redirect(w, r, authErr.LoginURL(loginPath), http.StatusFound)
					return
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
