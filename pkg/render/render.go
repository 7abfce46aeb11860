package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"time"
)

//go:embed templates/*.tmpl templates/pages/*.tmpl
var templatesFS embed.FS

// TimeLayout is used by the "datetime" template function.
const TimeLayout = "2006-01-02 15:04:05"

// Engine renders the embedded layout, pages and fragments.
type Engine struct {
	base  *template.Template
	pages map[string]*template.Template
	loc   *time.Location
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocation sets the zone timestamps are displayed in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// New parses all embedded templates. Every file under templates/pages is
// parsed into its own copy of the layout so pages can each define "content".
func New(opts ...Option) (*Engine, error) {
	e := &Engine{loc: time.Local, pages: map[string]*template.Template{}}
	for _, opt := range opts {
		opt(e)
	}

	base, err := template.New("render").Funcs(e.funcs()).ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	e.base = base

	pageFiles, err := fs.Glob(templatesFS, "templates/pages/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	for _, file := range pageFiles {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", file, err)
		}
		page, err := clone.ParseFS(templatesFS, file)
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", file, err)
		}
		e.pages[strings.TrimSuffix(path.Base(file), ".tmpl")] = page
	}

	return e, nil
}

// Render executes the named fragment with the provided data and returns the rendered string.
func (e *Engine) Render(name string, data any) (string, error) {
	if e == nil || e.base == nil {
		return "", fmt.Errorf("nil engine")
	}

	buf := bytes.NewBuffer(nil)
	if err := e.base.ExecuteTemplate(buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderPage executes the layout with the named page as its content.
func (e *Engine) RenderPage(name string, data any) (string, error) {
	if e == nil || e.base == nil {
		return "", fmt.Errorf("nil engine")
	}
	page, ok := e.pages[name]
	if !ok {
		return "", fmt.Errorf("unknown page %q", name)
	}

	buf := bytes.NewBuffer(nil)
	if err := page.ExecuteTemplate(buf, "layout", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (e *Engine) funcs() template.FuncMap {
	return template.FuncMap{
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.In(e.loc).Format(TimeLayout)
		},
		"taskClass": func(status string) string {
			switch status {
			case "completed":
				return "tag-green"
			case "failed":
				return "tag-red"
			case "running":
				return "tag-blue"
			default:
				return "tag-grey"
			}
		},
	}
}
