package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds the complete heritage configuration
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// StoreConfig configures the remote PostgREST data store
type StoreConfig struct {
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`                       // Project URL, e.g. https://xyz.supabase.co
	APIKey            string        `yaml:"api_key,omitempty" mapstructure:"api_key"`               // Anon key; prefer HERITAGE_STORE_API_KEY
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`                         // Per-request timeout
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`                   // Sent on every upstream request
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`           // Response size cap
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"` // Upstream rate limit
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// CacheConfig configures the upstream response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`               // Disk layer directory
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"` // Hot layer TTL
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`     // Disk layer TTL
}

// ServerConfig configures the HTTP site
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	RateLimit       float64       `yaml:"rate_limit" mapstructure:"rate_limit"` // Requests per second per client IP, 0 disables
	RateBurst       int           `yaml:"rate_burst" mapstructure:"rate_burst"`
	Robots          string        `yaml:"robots" mapstructure:"robots"` // robots.txt body
}

// ConcurrencyConfig controls worker counts
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"` // Cache warm-up workers
}

// OutputConfig controls CLI output
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultRobots disallows the JSON API and leaves pages crawlable
const DefaultRobots = "User-agent: *\nDisallow: /api/\nAllow: /\n"

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	cacheDir := filepath.Join(os.TempDir(), "heritage-cache")
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(dir, "heritage")
	}

	return &Config{
		Store: StoreConfig{
			Timeout:           10 * time.Second,
			UserAgent:         "Heritage/0.1 (+https://github.com/ppiankov/heritage)",
			MaxBodyBytes:      5_000_000,
			RequestsPerSecond: 20,
			Burst:             10,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       cacheDir,
			MemoryTTL: 2 * time.Minute,
			DiskTTL:   30 * time.Minute,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       10,
			RateBurst:       20,
			Robots:          DefaultRobots,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
	}
}
