package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ppiankov/heritage/internal/model"
	"github.com/ppiankov/heritage/internal/timeline"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// pages are rendered inside templates/layout.html
var pages = []string{"home.html", "timeline.html", "detail.html", "error.html"}

// page is the data every template receives
type page struct {
	Title        string
	Active       string // Highlighted nav entry
	LowBandwidth bool
	Data         interface{}
}

// errorView is the body of error.html
type errorView struct {
	Status  int
	Heading string
	Message string
}

type views struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"str":     model.Str,
	"comma":   func(n int) string { return humanize.Comma(int64(n)) },
	"ago":     ago,
	"century": century,
	"period":  func(m *model.Monument) string { return timeline.BucketKey(*m) },
	"plural":  plural,
	"toggle":  toggle,
}

func loadViews() (*views, error) {
	v := &views{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

// render writes a full page. Rendering happens into a buffer so a template
// error never produces a half-written 200.
func (v *views) render(w http.ResponseWriter, r *http.Request, code int, name string, p page) {
	t, ok := v.pages[name]
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	p.LowBandwidth = lowBandwidthFrom(r.Context())

	var buf bytes.Buffer
	if err := t.Execute(&buf, p); err != nil {
		loggerFrom(r.Context()).Error("render template", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

// ago formats a timestamp relative to now, or "" for the zero time
func ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

// century names the century of a CE year, e.g. 1632 -> "17th century"
func century(year *int) string {
	if year == nil || *year <= 0 {
		return ""
	}
	return humanize.Ordinal((*year-1)/100+1) + " century"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// toggle links a timeline section to its opposite state
func toggle(period string, expanded bool) string {
	if expanded {
		return "/timeline"
	}
	return "/timeline?" + url.Values{"period": {period}}.Encode()
}
