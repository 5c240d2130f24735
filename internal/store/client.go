// Package store queries the remote PostgREST data store that holds
// monuments and their media.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/heritage/internal/cache"
	"github.com/ppiankov/heritage/internal/metrics"
	"github.com/ppiankov/heritage/internal/model"
	"github.com/ppiankov/heritage/internal/util"
	"github.com/ppiankov/heritage/internal/worker"
	"go.uber.org/zap"
)

const (
	maxAttempts    = 3
	baseBackoff    = 500 * time.Millisecond
	maxRetryAfter  = 5 * time.Second
	acceptList     = "application/json"
	acceptSingle   = "application/vnd.pgrst.object+json"
	restPathPrefix = "/rest/v1/"
)

// sleepFunc waits between retries (injectable for tests)
var sleepFunc = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Client talks to the data store. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	maxBytes   int64
	httpClient *http.Client
	limiter    *worker.Limiter
	cache      cache.Cache
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithCache caches successful response bodies
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(cl *Client) {
		cl.cache = c
		cl.cacheTTL = ttl
	}
}

// WithLimiter shares a rate limiter; requests are keyed by upstream host
func WithLimiter(l *worker.Limiter) Option {
	return func(cl *Client) { cl.limiter = l }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(cl *Client) { cl.httpClient = h }
}

// New creates a client for the store described by cfg
func New(cfg model.StoreConfig, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("store base URL is required")
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse store base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("store base URL must be http or https: %s", base)
	}

	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = model.DefaultConfig().Store.MaxBodyBytes
	}

	c := &Client{
		baseURL:   base,
		apiKey:    cfg.APIKey,
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, ""),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		limiter: worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		cache:   cache.Noop{},
		logger:  zap.NewNop(),
	}

	for _, o := range opts {
		o(c)
	}
	if c.cache == nil {
		c.cache = cache.Noop{}
	}

	return c, nil
}

// query fetches table rows matching q and decodes them into out. With
// single set the store must return exactly one object.
func (c *Client) query(ctx context.Context, table string, q url.Values, single bool, out interface{}) error {
	endpoint := c.baseURL + restPathPrefix + table + "?" + q.Encode()
	accept := acceptList
	if single {
		accept = acceptSingle
	}

	key := cache.Key(endpoint, accept)
	if body, ok := c.cache.Get(key); ok {
		if err := json.Unmarshal(body, out); err == nil {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return nil
		}
		// Undecodable entry: drop it and refetch
		_ = c.cache.Delete(key)
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	body, err := c.fetchWithRetry(ctx, table, endpoint, accept)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", table, err)
	}

	if err := c.cache.Set(key, body, c.cacheTTL); err != nil {
		c.logger.Warn("cache write failed", zap.String("table", table), zap.Error(err))
	}

	return nil
}

// fetchWithRetry performs the request, retrying transient failures with
// exponential backoff
func (c *Client) fetchWithRetry(ctx context.Context, table, endpoint, accept string) ([]byte, error) {
	host, err := worker.HostKey(endpoint)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoff(attempt, lastErr)
			metrics.UpstreamRetries.Inc()
			c.logger.Warn("retrying store request",
				zap.String("table", table),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			if err := sleepFunc(ctx, delay); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.Wait(ctx, host); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}

		body, err := c.fetch(ctx, table, endpoint, accept)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

// backoff returns the delay before the given attempt. A 429 Retry-After
// hint is honoured up to maxRetryAfter.
func backoff(attempt int, lastErr error) time.Duration {
	if ra, ok := lastErr.(*retryAfterError); ok && ra.after > 0 {
		if ra.after > maxRetryAfter {
			return maxRetryAfter
		}
		return ra.after
	}
	return baseBackoff * time.Duration(1<<(attempt-1))
}

// retryAfterError carries a server-provided retry hint alongside the API error
type retryAfterError struct {
	*APIError
	after time.Duration
}

func (e *retryAfterError) Unwrap() error { return e.APIError }

// fetch performs one request
func (c *Client) fetch(ctx context.Context, table, endpoint, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", accept)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamDuration.WithLabelValues(table).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(table, "error").Inc()
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.UpstreamRequests.WithLabelValues(table, strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debug("store request",
		zap.String("table", table),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	// Read one byte past the cap to detect truncation
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("%s: %w (limit %d bytes)", table, ErrTooLarge, c.maxBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		if resp.StatusCode == http.StatusTooManyRequests {
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				return nil, &retryAfterError{APIError: apiErr, after: time.Duration(secs) * time.Second}
			}
		}
		return nil, apiErr
	}

	return body, nil
}
