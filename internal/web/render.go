// Package web holds the response helpers shared by the HTTP handlers:
// JSON bodies, classified error responses and embedded HTML pages.
package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/shopspring/decimal"
)

// Page is the data handed to every page template
type Page struct {
	Username string
	Error    string
	Data     any
}

// Renderer executes the embedded page templates. Each page is parsed together
// with base.html and partials.html so pages can override the base blocks.
type Renderer struct {
	pages map[string]*template.Template
}

// Funcs are the template helpers available to every page
func Funcs() template.FuncMap {
	return template.FuncMap{
		"usd":    domain.FormatUSD,
		"signed": domain.SignedUSD,
		"fixed":  func(d decimal.Decimal) string { return d.StringFixed(2) },
	}
}

// NewRenderer parses every page found in files
func NewRenderer(files fs.FS) (*Renderer, error) {
	names, err := fs.Glob(files, "*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		if name == "base.html" || name == "partials.html" {
			continue
		}
		tmpl, err := template.New(name).Funcs(Funcs()).ParseFS(files, "base.html", "partials.html", name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.pages[strings.TrimSuffix(name, ".html")] = tmpl
	}

	if len(r.pages) == 0 {
		return nil, fmt.Errorf("no page templates found")
	}
	return r, nil
}

// Has reports whether a page exists
func (r *Renderer) Has(page string) bool {
	_, ok := r.pages[page]
	return ok
}

// Render writes page with the given status. The page is executed into a buffer
// first so a template error never leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data Page) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
