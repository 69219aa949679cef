package middleware

import (
	"net/http"
)

// DefaultMaxFormBytes caps login and registration posts (64 KiB). Those forms
// carry an email, a name, a password and two short fields.
const DefaultMaxFormBytes = 64 << 10

// MaxBytes caps the request body at maxBytes, or DefaultMaxFormBytes when
// maxBytes is not positive. A declared Content-Length over the cap is answered
// with 413 Request Entity Too Large before next runs. Otherwise reads past the
// cap fail with *http.MaxBytesError, which form handlers turn into a 413.
func MaxBytes(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFormBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				w.Header().Set("Connection", "close")
				http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
