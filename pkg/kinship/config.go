package kinship

import (
	"fmt"
	"time"

	"github.com/dan-solli/kinship/pkg/layout"
	"github.com/dan-solli/kinship/pkg/store"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config holds configuration for a tree session
type Config struct {
	// API base URL of the family-tree backend
	APIBaseURL string `yaml:"api_base_url"`

	// Bearer token sent with every request
	APIToken string `yaml:"api_token"`

	// Websocket URL for live updates (optional)
	LiveURL string `yaml:"live_url"`

	// Family loaded by default
	FamilyID string `yaml:"family_id"`

	Cache CacheConfig `yaml:"cache"`

	Layout layout.Options `yaml:"layout"`

	// Prometheus collector instead of the no-op collector
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// JSONL trace output; only written in builds with the tracing tag
	TracePath string `yaml:"trace_path"`
}

// CacheConfig selects and configures the snapshot cache.
type CacheConfig struct {
	// Backend is memory, sqlite, redis or none (default: memory)
	Backend string `yaml:"backend"`

	// SQLite database path (default: "kinship-cache.db")
	Path string `yaml:"path"`

	// SQLite driver: "sqlite" (pure Go, default) or "sqlite3" (cgo builds only)
	Driver string `yaml:"driver"`

	// Redis address (default: "localhost:6379")
	RedisAddr string `yaml:"redis_addr"`

	// How long a snapshot stays valid (default: 24h)
	TTL time.Duration `yaml:"ttl"`
}

// applyDefaults fills zero values
func (c *Config) applyDefaults() {
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheMemory
	}
	if c.Cache.Path == "" {
		c.Cache.Path = "kinship-cache.db"
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = store.DriverPure
	}
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = "localhost:6379"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 24 * time.Hour
	}
	def := layout.DefaultOptions()
	if c.Layout.BoxWidth <= 0 {
		c.Layout.BoxWidth = def.BoxWidth
	}
	if c.Layout.BoxHeight <= 0 {
		c.Layout.BoxHeight = def.BoxHeight
	}
}

// validate checks settings New cannot default
func (c *Config) validate() error {
	switch c.Cache.Backend {
	case CacheMemory, CacheSQLite, CacheRedis, CacheNone:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}
	return nil
}
