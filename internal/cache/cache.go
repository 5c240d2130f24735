// Package cache stores upstream response bodies.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for caching response bodies
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key from the parts that identify a request
// (typically the full URL and the Accept header).
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "heritage:v1:" + hex.EncodeToString(hash[:])
}

// Noop is a Cache that stores nothing. Used when caching is disabled.
type Noop struct{}

func (Noop) Get(string) ([]byte, bool)                { return nil, false }
func (Noop) Set(string, []byte, time.Duration) error { return nil }
func (Noop) Delete(string) error                     { return nil }
func (Noop) Clear() error                            { return nil }
