package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/crucial707/webdemo/internal/models"
)

//go:embed templates
var templatesFS embed.FS

var pageNames = []string{"index", "login", "register", "profile", "error"}

// pageData is the view model shared by all pages.
type pageData struct {
	Title    string
	User     *models.User
	Fresh    bool
	Error    string
	Message  string
	Fields   map[string]string
	Email    string
	Name     string
	Next     string
	Remember bool
}

// parseTemplates parses every page together with the shared layout.
func parseTemplates() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// render executes the page into a buffer first so a template error becomes a
// clean 500 instead of a half-written page.
func (h *WebHandler) render(w http.ResponseWriter, status int, name string, data *pageData) {
	t, ok := h.pages[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.Error("template execute", "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("write response", "error", err)
	}
}
