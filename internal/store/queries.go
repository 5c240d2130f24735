package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ppiankov/heritage/internal/model"
)

// Table names in the data store
const (
	tableMonuments = "monuments"
	tableAudios    = "monument_audios"
	tableGallery   = "monument_gallery"
	tableEmbeds    = "monument_embeds"
)

// ListMonuments returns all published monuments, newest first
func (c *Client) ListMonuments(ctx context.Context) ([]model.Monument, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("published", "eq.true")
	q.Set("order", "created_at.desc")

	var out []model.Monument
	if err := c.query(ctx, tableMonuments, q, false, &out); err != nil {
		return nil, fmt.Errorf("list monuments: %w", err)
	}
	return nonNil(out), nil
}

// MonumentBySlug returns one published monument. A missing or unpublished
// slug yields ErrNotFound.
func (c *Client) MonumentBySlug(ctx context.Context, slug string) (*model.Monument, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("monument by slug: %w", ErrNotFound)
	}

	q := url.Values{}
	q.Set("select", "*")
	q.Set("slug", "eq."+slug)
	q.Set("published", "eq.true")

	var out model.Monument
	if err := c.query(ctx, tableMonuments, q, true, &out); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("monument %q: %w", slug, ErrNotFound)
		}
		return nil, fmt.Errorf("monument %q: %w", slug, err)
	}
	return &out, nil
}

// Audios returns a monument's narration tracks ordered by language
func (c *Client) Audios(ctx context.Context, monumentID string) ([]model.MonumentAudio, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("monument_id", "eq."+monumentID)
	q.Set("order", "language")

	var out []model.MonumentAudio
	if err := c.query(ctx, tableAudios, q, false, &out); err != nil {
		return nil, fmt.Errorf("audios for %s: %w", monumentID, err)
	}
	return nonNil(out), nil
}

// Gallery returns a monument's images in upload order
func (c *Client) Gallery(ctx context.Context, monumentID string) ([]model.GalleryImage, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("monument_id", "eq."+monumentID)
	q.Set("order", "created_at")

	var out []model.GalleryImage
	if err := c.query(ctx, tableGallery, q, false, &out); err != nil {
		return nil, fmt.Errorf("gallery for %s: %w", monumentID, err)
	}
	return nonNil(out), nil
}

// Embeds returns a monument's AR/VR fragments, or nil if it has none
func (c *Client) Embeds(ctx context.Context, monumentID string) (*model.MonumentEmbed, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("monument_id", "eq."+monumentID)

	var out model.MonumentEmbed
	if err := c.query(ctx, tableEmbeds, q, true, &out); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("embeds for %s: %w", monumentID, err)
	}
	return &out, nil
}

// SearchMonuments returns published monuments whose name or location
// contains query (case-insensitive), ordered by name. A blank query lists
// everything.
func (c *Client) SearchMonuments(ctx context.Context, query string) ([]model.Monument, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return c.ListMonuments(ctx)
	}

	pattern := quote("*" + query + "*")
	q := url.Values{}
	q.Set("select", "*")
	q.Set("published", "eq.true")
	q.Set("or", fmt.Sprintf("(name.ilike.%s,location.ilike.%s)", pattern, pattern))
	q.Set("order", "name")

	var out []model.Monument
	if err := c.query(ctx, tableMonuments, q, false, &out); err != nil {
		return nil, fmt.Errorf("search monuments %q: %w", query, err)
	}
	return nonNil(out), nil
}

// Ping checks that the store answers. It bypasses the cache.
func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("limit", "1")

	if _, err := c.fetch(ctx, tableMonuments, c.baseURL+restPathPrefix+tableMonuments+"?"+q.Encode(), acceptList); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// quote wraps a filter value in double quotes so PostgREST treats commas,
// dots and parentheses literally
func quote(v string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) + `"`
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
