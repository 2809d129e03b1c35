// Package ratelimit provides token-bucket throttling. The process uses one
// Keyed limiter, keyed by workspace id, and takes one token per inbound
// Slack event; outbound model and tool calls are not rate limited.
package ratelimit

import (
	"sync"
	"time"
)

// Config configures a single bucket.
type Config struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
	Enabled           bool    `yaml:"enabled"`
}

// DefaultConfig is a permissive default for services without an explicit
// override.
func DefaultConfig() Config {
	return Config{RequestsPerSecond: 10.0, BurstSize: 20, Enabled: true}
}

// Bucket implements token-bucket rate limiting.
type Bucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
	enabled    bool
}

// NewBucket creates a token bucket starting full.
func NewBucket(cfg Config) *Bucket {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10.0
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = int(cfg.RequestsPerSecond * 2)
	}
	return &Bucket{
		tokens:     float64(cfg.BurstSize),
		maxTokens:  float64(cfg.BurstSize),
		refillRate: cfg.RequestsPerSecond,
		lastRefill: time.Now(),
		enabled:    cfg.Enabled,
	}
}

// Allow consumes one token if available.
func (b *Bucket) Allow() bool {
	return b.AllowN(1)
}

// AllowN consumes n tokens if available.
func (b *Bucket) AllowN(n int) bool {
	if n <= 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.enabled {
		return true
	}
	b.refill()
	if b.tokens >= float64(n) {
		b.tokens -= float64(n)
		return true
	}
	return false
}

func (b *Bucket) refill() {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.lastRefill = now
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
}

// Keyed owns one Bucket per string key (e.g. workspace id, tool name),
// created lazily with a shared config.
type Keyed struct {
	mu      sync.Mutex
	cfg     Config
	buckets map[string]*Bucket
}

// NewKeyed builds a Keyed limiter using cfg for every bucket it creates.
func NewKeyed(cfg Config) *Keyed {
	return &Keyed{cfg: cfg, buckets: map[string]*Bucket{}}
}

// Allow consumes one token from the bucket for key, creating it if needed.
func (k *Keyed) Allow(key string) bool {
	k.mu.Lock()
	b, ok := k.buckets[key]
	if !ok {
		b = NewBucket(k.cfg)
		k.buckets[key] = b
	}
	k.mu.Unlock()
	return b.Allow()
}
