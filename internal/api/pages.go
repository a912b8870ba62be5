package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"kioskboard/internal/kitchen"
	"kioskboard/internal/screen"
)

//go:embed templates/*.html
var templateFS embed.FS

type pages map[string]*template.Template

var funcs = template.FuncMap{
	"arriving": func(b bool) string {
		if b {
			return "Yes"
		}
		return "No"
	},
}

// loadPages parses each page together with the shared layout.
func loadPages() (pages, error) {
	p := make(pages)
	for _, name := range []string{"kiosk", "kitchen", "login"} {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s page: %w", name, err)
		}
		p[name] = t
	}
	return p, nil
}

type kioskData struct {
	State        screen.State
	Error        string
	ResetSeconds int
}

type kitchenData struct {
	View      kitchen.BoardView
	StaffAuth bool
}

type loginData struct {
	Next  string
	Error string
}

func (s *Server) render(w http.ResponseWriter, status int, page string, data any) {
	var buf bytes.Buffer
	if err := s.pages[page].Execute(&buf, data); err != nil {
		s.log.WithError(err).WithFields(map[string]any{"page": page}).Error("render failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.log.WithError(err).Debug("page write aborted")
	}
}
