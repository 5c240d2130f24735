// Package embed validates third-party viewer fragments (3D models, street
// view, video) before they are rendered on a monument page.
package embed

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/ppiankov/heritage/internal/model"
	"golang.org/x/net/html"
)

// Kind identifies the viewer an embed targets
type Kind string

const (
	KindModel      Kind = "model"       // Sketchfab 3D viewer
	KindStreetView Kind = "street_view" // Google Street View
	KindVideo      Kind = "video"       // YouTube
)

var (
	// ErrEmpty is returned for a blank fragment
	ErrEmpty = errors.New("empty embed")
	// ErrNoSource is returned when the fragment has no acceptable iframe
	ErrNoSource = errors.New("no allowed iframe source")
)

// Embed is a validated, sanitized viewer
type Embed struct {
	Kind      Kind          `json:"kind"`
	Title     string        `json:"title"`
	SourceURL string        `json:"source_url"`
	Host      string        `json:"host"`
	HTML      template.HTML `json:"-"`
}

// allowedHosts lists the registrable domains accepted per kind. Subdomains
// match too.
var allowedHosts = map[Kind][]string{
	KindModel:      {"sketchfab.com"},
	KindStreetView: {"google.com"},
	KindVideo:      {"youtube.com", "youtube-nocookie.com"},
}

var titles = map[Kind]string{
	KindModel:      "3D Model",
	KindStreetView: "360° Street View",
	KindVideo:      "Video",
}

// Title returns the section heading for a kind
func (k Kind) Title() string {
	if t, ok := titles[k]; ok {
		return t
	}
	return string(k)
}

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowURLSchemes("https")
	p.RequireParseableURLs(true)
	p.AllowAttrs("src").OnElements("iframe")
	p.AllowAttrs("width", "height").Matching(bluemonday.NumberOrPercent).OnElements("iframe")
	p.AllowAttrs("title", "allow", "allowfullscreen", "frameborder", "loading").OnElements("iframe")
	return p
}

// Parse validates a raw fragment of the given kind
func Parse(kind Kind, fragment string) (*Embed, error) {
	if strings.TrimSpace(fragment) == "" {
		return nil, ErrEmpty
	}

	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("parse %s embed: %w", kind, err)
	}

	iframe, src := firstIframe(doc, kind)
	if iframe == nil {
		return nil, fmt.Errorf("%s embed: %w", kind, ErrNoSource)
	}

	setAttr(iframe, "loading", "lazy")
	if attr(iframe, "title") == "" {
		setAttr(iframe, "title", kind.Title())
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, iframe); err != nil {
		return nil, fmt.Errorf("render %s embed: %w", kind, err)
	}

	return &Embed{
		Kind:      kind,
		Title:     kind.Title(),
		SourceURL: src.String(),
		Host:      src.Hostname(),
		HTML:      template.HTML(policy.Sanitize(buf.String())), //nolint:gosec // sanitized above
	}, nil
}

// FromRecord returns the valid embeds of a record in display order: 3D
// model, street view, video. Invalid fragments are skipped.
func FromRecord(rec *model.MonumentEmbed) []Embed {
	if rec == nil {
		return nil
	}

	fragments := []struct {
		kind Kind
		raw  *string
	}{
		{KindModel, rec.SketchfabEmbed},
		{KindStreetView, rec.GoogleStreetViewEmbed},
		{KindVideo, rec.YouTubeEmbed},
	}

	var out []Embed
	for _, f := range fragments {
		e, err := Parse(f.kind, model.Str(f.raw))
		if err != nil {
			continue
		}
		out = append(out, *e)
	}
	return out
}

// firstIframe walks the tree in document order and returns the first iframe
// with an acceptable source
func firstIframe(n *html.Node, kind Kind) (*html.Node, *url.URL) {
	if n.Type == html.ElementNode && n.Data == "iframe" {
		if src, ok := allowedSource(kind, attr(n, "src")); ok {
			return n, src
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found, src := firstIframe(c, kind); found != nil {
			return found, src
		}
	}
	return nil, nil
}

// allowedSource parses raw and checks scheme and host against the allowlist
func allowedSource(kind Kind, raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	// Protocol-relative sources are common in copied embed codes
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return nil, false
	}

	host := strings.ToLower(u.Hostname())
	for _, domain := range allowedHosts[kind] {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			if kind == KindStreetView && !isMapsURL(host, u.Path) {
				return nil, false
			}
			return u, true
		}
	}
	return nil, false
}

// isMapsURL reports whether a google.com URL points at Maps
func isMapsURL(host, path string) bool {
	return host == "maps.google.com" || strings.HasPrefix(path, "/maps")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Hosts returns every allowed frame origin, for Content-Security-Policy
func Hosts() []string {
	var out []string
	for _, k := range []Kind{KindModel, KindStreetView, KindVideo} {
		for _, d := range allowedHosts[k] {
			out = append(out, "https://"+d, "https://*."+d)
		}
	}
	return out
}
