// Package catalog assembles page data from the data store: the home grid,
// the timeline and monument detail pages.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/heritage/internal/embed"
	"github.com/ppiankov/heritage/internal/model"
	"github.com/ppiankov/heritage/internal/search"
	"github.com/ppiankov/heritage/internal/timeline"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PaletteLimit caps the command palette result list
const PaletteLimit = 10

// Store is the data source the catalog reads from
type Store interface {
	ListMonuments(ctx context.Context) ([]model.Monument, error)
	MonumentBySlug(ctx context.Context, slug string) (*model.Monument, error)
	Audios(ctx context.Context, monumentID string) ([]model.MonumentAudio, error)
	Gallery(ctx context.Context, monumentID string) ([]model.GalleryImage, error)
	Embeds(ctx context.Context, monumentID string) (*model.MonumentEmbed, error)
	SearchMonuments(ctx context.Context, query string) ([]model.Monument, error)
	Ping(ctx context.Context) error
}

// Service builds page data. It is safe for concurrent use.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a catalog over store
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Home is the landing page grid
type Home struct {
	Query     string           `json:"query,omitempty"`
	Total     int              `json:"total"` // All published monuments
	Monuments []model.Monument `json:"monuments"`
}

// Section is a timeline period with its expanded state
type Section struct {
	timeline.Period
	Expanded bool `json:"expanded"`
}

// Timeline is the timeline page
type Timeline struct {
	Selected string    `json:"selected,omitempty"`
	Total    int       `json:"total"`
	Sections []Section `json:"periods"`
}

// Detail is a monument page. Child sections are empty when their query
// failed.
type Detail struct {
	Monument *model.Monument      `json:"monument"`
	Audios   []model.MonumentAudio `json:"audios"`
	Gallery  []model.GalleryImage  `json:"gallery"`
	Embeds   []embed.Embed         `json:"embeds"`
	Facts    []model.Fact          `json:"quick_facts"`
}

// Home returns every published monument, or the remote search results for
// a non-blank query
func (s *Service) Home(ctx context.Context, query string) (*Home, error) {
	query = strings.TrimSpace(query)

	all, err := s.store.ListMonuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("home: %w", err)
	}

	page := &Home{Query: query, Total: len(all), Monuments: all}
	if query == "" {
		return page, nil
	}

	found, err := s.store.SearchMonuments(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("home search: %w", err)
	}
	page.Monuments = found
	return page, nil
}

// Timeline classifies every published monument into periods. The period
// named selected, if present, is expanded.
func (s *Service) Timeline(ctx context.Context, selected string) (*Timeline, error) {
	all, err := s.store.ListMonuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}

	periods := timeline.Classify(all)
	page := &Timeline{Total: len(all), Sections: make([]Section, 0, len(periods))}
	for _, p := range periods {
		expanded := selected != "" && p.Name == selected
		if expanded {
			page.Selected = selected
		}
		page.Sections = append(page.Sections, Section{Period: p, Expanded: expanded})
	}
	return page, nil
}

// Periods returns the classified timeline without page state
func (s *Service) Periods(ctx context.Context) ([]timeline.Period, error) {
	all, err := s.store.ListMonuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("periods: %w", err)
	}
	return timeline.Classify(all), nil
}

// Detail returns a monument with its media. Only the monument lookup can
// fail; audio, gallery and embed failures are logged and leave the section
// empty.
func (s *Service) Detail(ctx context.Context, slug string) (*Detail, error) {
	m, err := s.store.MonumentBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("detail: %w", err)
	}

	d := &Detail{
		Monument: m,
		Audios:   []model.MonumentAudio{},
		Gallery:  []model.GalleryImage{},
		Embeds:   []embed.Embed{},
		Facts:    model.DecodeQuickFacts(m.QuickFacts),
	}

	log := s.logger.With(zap.String("slug", m.Slug), zap.String("monument_id", m.ID))

	var g errgroup.Group
	g.Go(func() error {
		audios, err := s.store.Audios(ctx, m.ID)
		if err != nil {
			log.Warn("load audios failed", zap.Error(err))
			return nil
		}
		d.Audios = audios
		return nil
	})
	g.Go(func() error {
		gallery, err := s.store.Gallery(ctx, m.ID)
		if err != nil {
			log.Warn("load gallery failed", zap.Error(err))
			return nil
		}
		d.Gallery = gallery
		return nil
	})
	g.Go(func() error {
		rec, err := s.store.Embeds(ctx, m.ID)
		if err != nil {
			log.Warn("load embeds failed", zap.Error(err))
			return nil
		}
		if parsed := embed.FromRecord(rec); parsed != nil {
			d.Embeds = parsed
		}
		return nil
	})
	_ = g.Wait()

	return d, nil
}

// Palette returns the top matches for the command palette
func (s *Service) Palette(ctx context.Context, query string) (search.Result, error) {
	all, err := s.store.ListMonuments(ctx)
	if err != nil {
		return search.Result{}, fmt.Errorf("palette: %w", err)
	}
	return search.Palette(all, query, PaletteLimit), nil
}

// Slugs returns the slug of every published monument
func (s *Service) Slugs(ctx context.Context) ([]string, error) {
	all, err := s.store.ListMonuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("slugs: %w", err)
	}
	slugs := make([]string, 0, len(all))
	for _, m := range all {
		slugs = append(slugs, m.Slug)
	}
	return slugs, nil
}

// Prefetch loads a monument page so its queries land in the cache
func (s *Service) Prefetch(ctx context.Context, slug string) error {
	_, err := s.Detail(ctx, slug)
	return err
}

// Ready reports whether the data store is reachable
func (s *Service) Ready(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store not ready: %w", err)
	}
	return nil
}
