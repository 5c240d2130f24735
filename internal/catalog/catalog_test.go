package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/heritage/internal/embed"
	"github.com/ppiankov/heritage/internal/model"
	"github.com/ppiankov/heritage/internal/store"
	"github.com/ppiankov/heritage/internal/timeline"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeStore serves fixed data and counts calls
type fakeStore struct {
	mu        sync.Mutex
	monuments []model.Monument
	audios    []model.MonumentAudio
	gallery   []model.GalleryImage
	embeds    *model.MonumentEmbed
	listErr   error
	childErr  error
	pingErr   error
	searched  []string
}

func (f *fakeStore) ListMonuments(ctx context.Context) ([]model.Monument, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.monuments, nil
}

func (f *fakeStore) MonumentBySlug(ctx context.Context, slug string) (*model.Monument, error) {
	for i := range f.monuments {
		if f.monuments[i].Slug == slug {
			m := f.monuments[i]
			return &m, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) Audios(ctx context.Context, id string) ([]model.MonumentAudio, error) {
	if f.childErr != nil {
		return nil, f.childErr
	}
	return f.audios, nil
}

func (f *fakeStore) Gallery(ctx context.Context, id string) ([]model.GalleryImage, error) {
	if f.childErr != nil {
		return nil, f.childErr
	}
	return f.gallery, nil
}

func (f *fakeStore) Embeds(ctx context.Context, id string) (*model.MonumentEmbed, error) {
	if f.childErr != nil {
		return nil, f.childErr
	}
	return f.embeds, nil
}

func (f *fakeStore) SearchMonuments(ctx context.Context, q string) ([]model.Monument, error) {
	f.mu.Lock()
	f.searched = append(f.searched, q)
	f.mu.Unlock()
	return f.monuments[:1], nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

func fixtures() *fakeStore {
	return &fakeStore{
		monuments: []model.Monument{
			{ID: "1", Slug: "taj-mahal", Name: "Taj Mahal", BuildYear: model.IntPtr(1632),
				QuickFacts: []byte(`{"Architect":"Ustad Ahmad Lahauri","Height":73}`)},
			{ID: "2", Slug: "sanchi", Name: "Sanchi Stupa", BuildYear: model.IntPtr(250)},
			{ID: "3", Slug: "unknown", Name: "Old Well"},
		},
		audios:  []model.MonumentAudio{{ID: "a1", Language: "English"}},
		gallery: []model.GalleryImage{{ID: "g1"}},
		embeds: &model.MonumentEmbed{
			YouTubeEmbed: model.StringPtr(`<iframe src="https://www.youtube.com/embed/x"></iframe>`),
		},
	}
}

func TestHome(t *testing.T) {
	fs := fixtures()
	svc := NewService(fs, nil)

	page, err := svc.Home(context.Background(), "  ")
	if err != nil {
		t.Fatalf("Home failed: %v", err)
	}
	if page.Total != 3 || len(page.Monuments) != 3 || page.Query != "" {
		t.Errorf("unexpected home page %+v", page)
	}
	if len(fs.searched) != 0 {
		t.Error("blank query must not search")
	}

	page, err = svc.Home(context.Background(), " taj ")
	if err != nil {
		t.Fatalf("Home search failed: %v", err)
	}
	if page.Total != 3 || len(page.Monuments) != 1 || page.Query != "taj" {
		t.Errorf("unexpected search page %+v", page)
	}
	if diff := cmp.Diff([]string{"taj"}, fs.searched); diff != "" {
		t.Errorf("search calls mismatch (-want +got):\n%s", diff)
	}
}

func TestHome_Error(t *testing.T) {
	fs := fixtures()
	fs.listErr = errors.New("upstream down")

	_, err := NewService(fs, nil).Home(context.Background(), "")
	if err == nil || !errors.Is(err, fs.listErr) {
		t.Errorf("expected wrapped upstream error, got %v", err)
	}
}

func TestTimeline(t *testing.T) {
	svc := NewService(fixtures(), nil)

	page, err := svc.Timeline(context.Background(), timeline.Mughal)
	if err != nil {
		t.Fatalf("Timeline failed: %v", err)
	}

	var got []string
	var expanded []string
	for _, s := range page.Sections {
		got = append(got, s.Name)
		if s.Expanded {
			expanded = append(expanded, s.Name)
		}
	}

	want := []string{timeline.UnknownPeriod, timeline.Ancient, timeline.Mughal}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("period order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{timeline.Mughal}, expanded); diff != "" {
		t.Errorf("expanded mismatch (-want +got):\n%s", diff)
	}
	if page.Selected != timeline.Mughal || page.Total != 3 {
		t.Errorf("unexpected page state %q %d", page.Selected, page.Total)
	}
}

func TestTimeline_UnknownSelection(t *testing.T) {
	page, err := NewService(fixtures(), nil).Timeline(context.Background(), "Bronze Age")
	if err != nil {
		t.Fatal(err)
	}
	if page.Selected != "" {
		t.Errorf("selection of a missing period must be dropped, got %q", page.Selected)
	}
	for _, s := range page.Sections {
		if s.Expanded {
			t.Errorf("no section should be expanded, got %s", s.Name)
		}
	}
}

func TestTimeline_Empty(t *testing.T) {
	fs := fixtures()
	fs.monuments = []model.Monument{}

	page, err := NewService(fs, nil).Timeline(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if page.Sections == nil || len(page.Sections) != 0 {
		t.Errorf("expected empty non-nil sections, got %v", page.Sections)
	}
}

func TestDetail(t *testing.T) {
	d, err := NewService(fixtures(), nil).Detail(context.Background(), "taj-mahal")
	if err != nil {
		t.Fatalf("Detail failed: %v", err)
	}

	if d.Monument.Name != "Taj Mahal" {
		t.Errorf("unexpected monument %q", d.Monument.Name)
	}
	if len(d.Audios) != 1 || len(d.Gallery) != 1 {
		t.Errorf("expected media sections, got %d audios %d images", len(d.Audios), len(d.Gallery))
	}
	if len(d.Embeds) != 1 || d.Embeds[0].Kind != embed.KindVideo {
		t.Errorf("expected one video embed, got %+v", d.Embeds)
	}

	wantFacts := []model.Fact{
		{Key: "Architect", Value: "Ustad Ahmad Lahauri"},
		{Key: "Height", Value: "73"},
	}
	if diff := cmp.Diff(wantFacts, d.Facts); diff != "" {
		t.Errorf("facts mismatch (-want +got):\n%s", diff)
	}
}

func TestDetail_NotFound(t *testing.T) {
	_, err := NewService(fixtures(), nil).Detail(context.Background(), "atlantis")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDetail_ChildFailuresDegrade(t *testing.T) {
	fs := fixtures()
	fs.childErr = errors.New("timeout")

	core, logs := observer.New(zap.WarnLevel)
	d, err := NewService(fs, zap.New(core)).Detail(context.Background(), "sanchi")
	if err != nil {
		t.Fatalf("child failures must not fail the page: %v", err)
	}

	if d.Audios == nil || len(d.Audios) != 0 || len(d.Gallery) != 0 || len(d.Embeds) != 0 {
		t.Errorf("expected empty sections, got %+v", d)
	}

	if logs.Len() != 3 {
		t.Fatalf("expected 3 warnings, got %d", logs.Len())
	}
	for _, entry := range logs.All() {
		if entry.ContextMap()["slug"] != "sanchi" {
			t.Errorf("warning missing slug field: %v", entry.ContextMap())
		}
	}
}

func TestDetail_NoEmbeds(t *testing.T) {
	fs := fixtures()
	fs.embeds = nil

	d, err := NewService(fs, nil).Detail(context.Background(), "sanchi")
	if err != nil {
		t.Fatal(err)
	}
	if d.Embeds == nil || len(d.Embeds) != 0 {
		t.Errorf("expected empty non-nil embeds, got %v", d.Embeds)
	}
}

func TestPalette(t *testing.T) {
	res, err := NewService(fixtures(), nil).Palette(context.Background(), "stupa")
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 || res.Monuments[0].Slug != "sanchi" {
		t.Errorf("unexpected palette %+v", res)
	}
}

func TestSlugsAndPrefetch(t *testing.T) {
	svc := NewService(fixtures(), nil)

	slugs, err := svc.Slugs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"taj-mahal", "sanchi", "unknown"}, slugs); diff != "" {
		t.Errorf("slugs mismatch (-want +got):\n%s", diff)
	}

	if err := svc.Prefetch(context.Background(), "sanchi"); err != nil {
		t.Errorf("Prefetch failed: %v", err)
	}
	if err := svc.Prefetch(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReady(t *testing.T) {
	fs := fixtures()
	svc := NewService(fs, nil)
	if err := svc.Ready(context.Background()); err != nil {
		t.Errorf("Ready failed: %v", err)
	}

	fs.pingErr = errors.New("refused")
	if err := svc.Ready(context.Background()); !errors.Is(err, fs.pingErr) {
		t.Errorf("expected ping error, got %v", err)
	}
}
