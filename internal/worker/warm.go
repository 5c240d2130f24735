package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Prefetcher loads everything a detail page needs for one monument, filling
// the response cache as a side effect
type Prefetcher interface {
	Prefetch(ctx context.Context, slug string) error
}

// WarmJob prefetches one monument
type WarmJob struct {
	Index      int
	Slug       string
	Prefetcher Prefetcher
}

// Execute runs the prefetch
func (j *WarmJob) Execute(ctx context.Context) Result {
	start := time.Now()
	err := j.Prefetcher.Prefetch(ctx, j.Slug)
	return &WarmResult{
		Index:    j.Index,
		Slug:     j.Slug,
		Duration: time.Since(start),
		Error:    err,
	}
}

// WarmResult reports one prefetch
type WarmResult struct {
	Index    int
	Slug     string
	Duration time.Duration
	Error    error
}

// GetError returns the prefetch error
func (r *WarmResult) GetError() error {
	return r.Error
}

// Warmer prefetches detail pages concurrently
type Warmer struct {
	prefetcher  Prefetcher
	concurrency int
}

// NewWarmer creates a warmer
func NewWarmer(prefetcher Prefetcher, concurrency int) *Warmer {
	return &Warmer{
		prefetcher:  prefetcher,
		concurrency: concurrency,
	}
}

// Warm prefetches every slug and returns results in input order
func (w *Warmer) Warm(ctx context.Context, slugs []string) []*WarmResult {
	if len(slugs) == 0 {
		return []*WarmResult{}
	}

	pool := NewPool(ctx, w.concurrency)
	pool.Start()

	for i, slug := range slugs {
		if !pool.Submit(&WarmJob{Index: i, Slug: slug, Prefetcher: w.prefetcher}) {
			break
		}
	}

	results := pool.Wait()

	done := make(map[int]bool, len(results))
	out := make([]*WarmResult, 0, len(slugs))
	for _, r := range results {
		wr := r.(*WarmResult)
		done[wr.Index] = true
		out = append(out, wr)
	}

	// Jobs never run because ctx ended first
	for i, slug := range slugs {
		if !done[i] {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			out = append(out, &WarmResult{Index: i, Slug: slug, Error: err})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	return out
}

// Failed counts results with errors
func Failed(results []*WarmResult) int {
	n := 0
	for _, r := range results {
		if r.Error != nil {
			n++
		}
	}
	return n
}

// ReadSlugsFromFile reads slugs from a file (one per line). Blank lines and
// # comments are skipped; duplicates are dropped.
func ReadSlugsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var slugs []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			slugs = append(slugs, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return slugs, nil
}
