package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"sync"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

type TemplateRegistry struct {
	cache map[string]*template.Template
	mu    sync.RWMutex
}

func NewTemplateRegistry() (*TemplateRegistry, error) {
	funcMap := templateFuncMap()

	layout, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, err
	}

	tr := &TemplateRegistry{
		cache: make(map[string]*template.Template),
	}

	// Pages rendered inside the dashboard layout
	pages := []string{
		"templates/dashboard.html",
		"templates/analytics.html",
		"templates/feedback.html",
	}
	for _, page := range pages {
		t, err := template.Must(layout.Clone()).ParseFS(templateFS, page)
		if err != nil {
			return nil, err
		}
		tr.cache[page] = t
	}

	// Public pages carry their own markup
	for _, name := range []string{"profile.html", "not_found.html"} {
		t, err := template.New(name).Funcs(funcMap).ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, err
		}
		tr.cache["templates/"+name] = t
	}

	return tr, nil
}

// Render executes the named template into a buffer first so a failing
// template never leaves a half-written page behind.
func (tr *TemplateRegistry) Render(w http.ResponseWriter, name string, data any) {
	tr.RenderStatus(w, http.StatusOK, name, data)
}

func (tr *TemplateRegistry) RenderStatus(w http.ResponseWriter, status int, name string, data any) {
	tr.mu.RLock()
	t, ok := tr.cache[name]
	tr.mu.RUnlock()

	if !ok {
		http.Error(w, "template not found: "+name, http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		http.Error(w, fmt.Sprintf("render %s: %v", name, err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
