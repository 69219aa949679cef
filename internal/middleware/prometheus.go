package middleware

import (
	"net/http"
	"time"

	"github.com/crucial707/webdemo/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// unmatchedRoute labels requests that no route handled, so scans of random
// paths share one series.
const unmatchedRoute = "unmatched"

// Prometheus records request duration and count for each request, labelled
// with the chi route pattern rather than the raw path. Mount it on the chi
// router after recovery and request ID.
func Prometheus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		statusW := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(statusW, r)
		if r.URL.Path == "/metrics" {
			return
		}
		metrics.RecordRequest(r.Method, routeLabel(r), statusW.status, time.Since(start).Seconds())
	})
}

// routeLabel returns the pattern chi matched for r. Outside a chi router it
// falls back to the normalized request path.
func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		if r.URL.Path == "" {
			return "/"
		}
		return metrics.NormalizePath(r.URL.Path)
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return unmatchedRoute
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
