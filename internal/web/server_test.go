package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/heritage/internal/catalog"
	"github.com/ppiankov/heritage/internal/embed"
	"github.com/ppiankov/heritage/internal/model"
	"github.com/ppiankov/heritage/internal/search"
	"github.com/ppiankov/heritage/internal/store"
	"github.com/ppiankov/heritage/internal/timeline"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var errUpstream = errors.New("store unavailable")

// fakeCatalog serves fixed pages; a non-nil err fails every call
type fakeCatalog struct {
	err      error
	readyErr error
	panicky  bool
}

var taj = model.Monument{
	ID: "1", Slug: "taj-mahal", Name: "Taj Mahal",
	Location:   model.StringPtr("Agra"),
	BuildYear:  model.IntPtr(1632),
	About:      model.StringPtr("Ivory-white marble mausoleum."),
	QuickFacts: []byte(`["UNESCO site"]`),
}

var sanchi = model.Monument{ID: "2", Slug: "sanchi", Name: "Sanchi Stupa", BuildYear: model.IntPtr(250)}

func (f *fakeCatalog) Home(ctx context.Context, q string) (*catalog.Home, error) {
	if f.panicky {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	all := []model.Monument{taj, sanchi}
	if q == "" {
		return &catalog.Home{Total: 2, Monuments: all}, nil
	}
	return &catalog.Home{Query: q, Total: 2, Monuments: search.Filter(all, q)}, nil
}

func (f *fakeCatalog) Timeline(ctx context.Context, selected string) (*catalog.Timeline, error) {
	if f.err != nil {
		return nil, f.err
	}
	page := &catalog.Timeline{Total: 2, Sections: []catalog.Section{}}
	for _, p := range timeline.Classify([]model.Monument{taj, sanchi}) {
		ex := p.Name == selected
		if ex {
			page.Selected = selected
		}
		page.Sections = append(page.Sections, catalog.Section{Period: p, Expanded: ex})
	}
	return page, nil
}

func (f *fakeCatalog) Detail(ctx context.Context, slug string) (*catalog.Detail, error) {
	if f.err != nil {
		return nil, f.err
	}
	if slug != taj.Slug {
		return nil, fmt.Errorf("detail: %w", store.ErrNotFound)
	}
	m := taj
	e, err := embed.Parse(embed.KindVideo, `<iframe src="https://www.youtube.com/embed/tour"></iframe>`)
	if err != nil {
		return nil, err
	}
	return &catalog.Detail{
		Monument: &m,
		Audios:   []model.MonumentAudio{{Language: "English", AudioURL: "https://cdn.example/en.mp3"}},
		Gallery:  []model.GalleryImage{},
		Embeds:   []embed.Embed{*e},
		Facts:    model.DecodeQuickFacts(m.QuickFacts),
	}, nil
}

func (f *fakeCatalog) Palette(ctx context.Context, q string) (search.Result, error) {
	if f.err != nil {
		return search.Result{}, f.err
	}
	return search.Palette([]model.Monument{taj, sanchi}, q, 1), nil
}

func (f *fakeCatalog) Ready(ctx context.Context) error { return f.readyErr }

func newTestServer(t *testing.T, c Catalog, cfg model.ServerConfig, logger *zap.Logger) *Server {
	t.Helper()
	s, err := New(c, cfg, logger)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func get(t *testing.T, h http.Handler, path string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPages(t *testing.T) {
	h := newTestServer(t, &fakeCatalog{}, model.ServerConfig{}, nil).Handler()

	tests := []struct {
		name     string
		path     string
		status   int
		contains []string
		excludes []string
	}{
		{"home", "/", 200, []string{"Taj Mahal", "Sanchi Stupa", "2 monuments"}, nil},
		{"home search", "/?q=agra", 200, []string{"1 result for", "Taj Mahal"}, []string{"Sanchi Stupa"}},
		{"home empty search", "/?q=atlantis", 200, []string{"No monuments found for"}, nil},
		{"timeline collapsed", "/timeline", 200, []string{"Ancient Period", "Before 500 CE", "Mughal Era", "from-purple-500"}, []string{"/monuments/taj-mahal"}},
		{"timeline expanded", "/timeline?period=Mughal+Era", 200, []string{"/monuments/taj-mahal", `aria-expanded="true"`}, []string{"/monuments/sanchi"}},
		{"detail", "/monuments/taj-mahal", 200, []string{"Taj Mahal", "UNESCO site", "17th century", "Audio Guide", "youtube.com/embed/tour", "Mughal Era"}, nil},
		{"detail missing", "/monuments/atlantis", 404, []string{"Monument Not Found"}, nil},
		{"unknown page", "/nowhere", 404, []string{"Page Not Found"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.path)
			if rec.Code != tt.status {
				t.Fatalf("GET %s = %d, want %d", tt.path, rec.Code, tt.status)
			}
			body := rec.Body.String()
			for _, want := range tt.contains {
				if !strings.Contains(body, want) {
					t.Errorf("GET %s: body missing %q", tt.path, want)
				}
			}
			for _, banned := range tt.excludes {
				if strings.Contains(body, banned) {
					t.Errorf("GET %s: body should not contain %q", tt.path, banned)
				}
			}
		})
	}
}

func TestPages_UpstreamError(t *testing.T) {
	h := newTestServer(t, &fakeCatalog{err: errUpstream}, model.ServerConfig{}, nil).Handler()

	for path, want := range map[string]string{
		"/":                    "Unable to load monuments",
		"/timeline":            "Unable to load timeline",
		"/monuments/taj-mahal": "Unable to load monument",
	} {
		rec := get(t, h, path)
		if rec.Code != http.StatusBadGateway {
			t.Errorf("GET %s = %d, want 502", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("GET %s: body missing %q", path, want)
		}
		if strings.Contains(rec.Body.String(), errUpstream.Error()) {
			t.Errorf("GET %s leaks the internal error", path)
		}
	}
}

func TestTimeline_Empty(t *testing.T) {
	h := newTestServer(t, emptyCatalog{&fakeCatalog{}}, model.ServerConfig{}, nil).Handler()
	rec := get(t, h, "/timeline")
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), "No timeline data available") {
		t.Errorf("expected empty timeline state, got %d %s", rec.Code, rec.Body.String())
	}
}

type emptyCatalog struct{ *fakeCatalog }

func (emptyCatalog) Timeline(ctx context.Context, selected string) (*catalog.Timeline, error) {
	return &catalog.Timeline{Sections: []catalog.Section{}}, nil
}

func TestDetail_LowBandwidth(t *testing.T) {
	h := newTestServer(t, &fakeCatalog{}, model.ServerConfig{}, nil).Handler()

	for _, hdr := range [][]string{{"Save-Data", "on"}, {"ECT", "slow-2g"}, {"ECT", "2g"}} {
		rec := get(t, h, "/monuments/taj-mahal", hdr...)
		body := rec.Body.String()
		if strings.Contains(body, "<iframe") {
			t.Errorf("%s: embeds must be hidden", hdr)
		}
		if !strings.Contains(body, "Low bandwidth mode") {
			t.Errorf("%s: missing low bandwidth notice", hdr)
		}
	}

	rec := get(t, h, "/monuments/taj-mahal", "ECT", "4g")
	if !strings.Contains(rec.Body.String(), "<iframe") {
		t.Error("fast connections must see embeds")
	}
}

func TestAPI(t *testing.T) {
	h := newTestServer(t, &fakeCatalog{}, model.ServerConfig{}, nil).Handler()

	rec := get(t, h, "/api/monuments")
	if rec.Code != 200 || !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("unexpected /api/monuments response %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	var home catalog.Home
	if err := json.Unmarshal(rec.Body.Bytes(), &home); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if home.Total != 2 || len(home.Monuments) != 2 {
		t.Errorf("unexpected home payload %+v", home)
	}

	rec = get(t, h, "/api/monuments/atlantis")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	rec = get(t, h, "/api/monuments/taj-mahal")
	var detail struct {
		Monument model.Monument `json:"monument"`
		Embeds   []struct {
			Kind string `json:"kind"`
		} `json:"embeds"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.Monument.Slug != "taj-mahal" || len(detail.Embeds) != 1 || detail.Embeds[0].Kind != "video" {
		t.Errorf("unexpected detail payload %s", rec.Body.String())
	}

	rec = get(t, h, "/api/timeline?period=Ancient+Period")
	var tl struct {
		Selected string `json:"selected"`
		Periods  []struct {
			Name     string `json:"name"`
			Expanded bool   `json:"expanded"`
		} `json:"periods"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tl); err != nil {
		t.Fatalf("decode timeline: %v", err)
	}
	if tl.Selected != timeline.Ancient || len(tl.Periods) != 2 || !tl.Periods[0].Expanded {
		t.Errorf("unexpected timeline payload %s", rec.Body.String())
	}

	rec = get(t, h, "/api/search?q=a")
	var res struct {
		Total int `json:"total"`
		More  int `json:"more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if res.Total != 2 || res.More != 1 {
		t.Errorf("unexpected search payload %s", rec.Body.String())
	}

	rec = get(t, h, "/api/nothing")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"error"`) {
		t.Errorf("expected JSON 404, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestAPI_UpstreamError(t *testing.T) {
	h := newTestServer(t, &fakeCatalog{err: errUpstream}, model.ServerConfig{}, nil).Handler()
	for _, path := range []string{"/api/monuments", "/api/monuments/taj-mahal", "/api/timeline", "/api/search?q=x"} {
		if rec := get(t, h, path); rec.Code != http.StatusBadGateway {
			t.Errorf("GET %s = %d, want 502", path, rec.Code)
		}
	}
}

func TestHealthAndReady(t *testing.T) {
	fc := &fakeCatalog{}
	h := newTestServer(t, fc, model.ServerConfig{}, nil).Handler()

	if rec := get(t, h, "/healthz"); rec.Code != 200 {
		t.Errorf("healthz = %d", rec.Code)
	}
	if rec := get(t, h, "/readyz"); rec.Code != 200 {
		t.Errorf("readyz = %d", rec.Code)
	}

	fc.readyErr = errUpstream
	if rec := get(t, h, "/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz with failing store = %d, want 503", rec.Code)
	}
	if rec := get(t, h, "/healthz"); rec.Code != 200 {
		t.Errorf("healthz must not depend on the store, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, &fakeCatalog{}, model.ServerConfig{}, nil).Handler()
	get(t, h, "/")

	rec := get(t, h, "/metrics")
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), "heritage_http_requests_total") {
		t.Errorf("expected heritage metrics, got %d", rec.Code)
	}
}

func TestRobots(t *testing.T) {
	h := newTestServer(t, &fakeCatalog{}, model.ServerConfig{}, nil).Handler()

	rec := get(t, h, "/robots.txt")
	if rec.Body.String() != model.DefaultRobots {
		t.Errorf("unexpected robots body %q", rec.Body.String())
	}

	if tag := get(t, h, "/api/monuments").Header().Get("X-Robots-Tag"); tag != "noindex" {
		t.Errorf("API responses must be noindex, got %q", tag)
	}
	if tag := get(t, h, "/").Header().Get("X-Robots-Tag"); tag != "" {
		t.Errorf("pages must be indexable, got %q", tag)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := get(t, newTestServer(t, &fakeCatalog{}, model.ServerConfig{}, nil).Handler(), "/")

	csp := rec.Header().Get("Content-Security-Policy")
	for _, want := range []string{"frame-src", "https://sketchfab.com", "https://*.youtube.com", "frame-ancestors 'none'"} {
		if !strings.Contains(csp, want) {
			t.Errorf("CSP missing %q: %s", want, csp)
		}
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff")
	}
}

func TestRequestID(t *testing.T) {
	h := newTestServer(t, &fakeCatalog{}, model.ServerConfig{}, nil).Handler()

	id := get(t, h, "/healthz").Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("expected generated uuid, got %q", id)
	}

	incoming := uuid.NewString()
	if got := get(t, h, "/healthz", RequestIDHeader, incoming).Header().Get(RequestIDHeader); got != incoming {
		t.Errorf("expected incoming id to be kept, got %q", got)
	}

	if got := get(t, h, "/healthz", RequestIDHeader, "<script>").Header().Get(RequestIDHeader); got == "<script>" {
		t.Error("malformed incoming ids must be replaced")
	}
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, &fakeCatalog{}, model.ServerConfig{RateLimit: 0.001, RateBurst: 1}, nil).Handler()

	if rec := get(t, h, "/api/monuments"); rec.Code != 200 {
		t.Fatalf("first request = %d", rec.Code)
	}
	rec := get(t, h, "/api/monuments")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if rec := get(t, h, "/healthz"); rec.Code != 200 {
		t.Errorf("health checks must bypass the limiter, got %d", rec.Code)
	}
}

func TestAccessLogAndRecovery(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := newTestServer(t, &fakeCatalog{panicky: true}, model.ServerConfig{}, zap.New(core)).Handler()

	rec := get(t, h, "/")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("panic must become 500, got %d", rec.Code)
	}

	if logs.FilterMessage("handler panic").Len() != 1 {
		t.Error("expected panic to be logged")
	}
	access := logs.FilterMessage("request").All()
	if len(access) != 1 {
		t.Fatalf("expected 1 access log entry, got %d", len(access))
	}
	fields := access[0].ContextMap()
	if fields["status"] != int64(500) || fields["path"] != "/" || fields["request_id"] == "" {
		t.Errorf("unexpected access log fields %v", fields)
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	s := newTestServer(t, &fakeCatalog{}, model.ServerConfig{ShutdownTimeout: time.Second}, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("healthz = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestCentury(t *testing.T) {
	tests := []struct {
		year *int
		want string
	}{
		{nil, ""},
		{model.IntPtr(0), ""},
		{model.IntPtr(1), "1st century"},
		{model.IntPtr(100), "1st century"},
		{model.IntPtr(101), "2nd century"},
		{model.IntPtr(1632), "17th century"},
		{model.IntPtr(2001), "21st century"},
	}
	for _, tt := range tests {
		if got := century(tt.year); got != tt.want {
			t.Errorf("century(%v) = %q, want %q", tt.year, got, tt.want)
		}
	}
}
