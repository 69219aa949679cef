package handlers

import (
	"errors"
	"net/http"

	"github.com/crucial707/webdemo/internal/auth"
	"github.com/crucial707/webdemo/internal/models"
	"github.com/crucial707/webdemo/internal/repo"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const (
	// ErrMessageInternal is the generic message for 500 responses. Do not expose internal details to clients.
	ErrMessageInternal = "internal server error"

	MsgInvalidCredentials = "Invalid email or password"
	MsgDuplicateEmail     = "An account with this email already exists"
	MsgValidation         = "Please correct the errors below"
)

// fail maps err to a status and re-renders page with data. Errors that are not
// user-facing are logged and rendered as the generic error page.
func (h *WebHandler) fail(w http.ResponseWriter, r *http.Request, page string, data *pageData, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		data.Error = MsgValidation
		data.Fields = ve.Fields
		h.render(w, http.StatusBadRequest, page, data)
	case errors.Is(err, repo.ErrDuplicateEmail):
		data.Error = MsgDuplicateEmail
		h.render(w, http.StatusConflict, page, data)
	case errors.Is(err, auth.ErrInvalidCredentials):
		data.Error = MsgInvalidCredentials
		h.render(w, http.StatusUnauthorized, page, data)
	default:
		h.logger.Error("request failed",
			"request_id", chimw.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		h.render(w, http.StatusInternalServerError, "error", &pageData{Title: "Error", Message: ErrMessageInternal})
	}
}
