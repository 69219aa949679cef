package middleware

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/crucial707/webdemo/internal/db"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// bufferedWriter holds the response until the request transaction has ended.
type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header)}
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(code int) {
	if b.status == 0 {
		b.status = code
	}
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedWriter) statusCode() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}

func (b *bufferedWriter) flushTo(w http.ResponseWriter) {
	dst := w.Header()
	for k, v := range b.header {
		dst[k] = v
	}
	w.WriteHeader(b.statusCode())
	_, _ = b.body.WriteTo(w)
}

// RequestTx runs each request in one database transaction. Responses below
// 400 commit; 400 and above roll back, as does a panic (which is rethrown).
// The response is buffered and only sent once the transaction has ended, so a
// failed commit can still turn into a 500. Hooks registered with
// db.OnRollback run whenever the transaction does not commit.
func RequestTx(pool *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := slog.Default().With("request_id", chimw.GetReqID(r.Context()))

			tx, err := pool.BeginTx(r.Context(), nil)
			if err != nil {
				logger.Error("begin transaction failed", "error", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			ctx, rollbackHooks := db.ContextWithRollbackHooks(db.ContextWithTx(r.Context(), tx))
			cleanupCtx := context.WithoutCancel(r.Context())

			done := false
			defer func() {
				if !done {
					_ = tx.Rollback()
					rollbackHooks(cleanupCtx)
				}
			}()

			buf := newBufferedWriter()
			next.ServeHTTP(buf, r.WithContext(ctx))

			done = true
			if buf.statusCode() >= http.StatusBadRequest {
				if err := tx.Rollback(); err != nil {
					logger.Warn("rollback failed", "error", err)
				}
				rollbackHooks(cleanupCtx)
				buf.flushTo(w)
				return
			}

			if err := tx.Commit(); err != nil {
				logger.Error("commit failed", "error", err)
				rollbackHooks(cleanupCtx)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			buf.flushTo(w)
		})
	}
}
