package cache

import "time"

const (
	// DefaultMaxSize is used when Options.MaxSize is zero or negative.
	DefaultMaxSize = 100
	// DefaultCleanupInterval is used when Options.CleanupInterval is zero.
	DefaultCleanupInterval = time.Minute

	// evictFraction is the share of entries dropped by one batch eviction.
	evictFraction = 5 // 1/5 = 20%
)

// Options configures one named cache.
type Options struct {
	// MaxSize bounds the entry count at write time. Default: 100.
	MaxSize int `yaml:"max_size"`

	// TTL is the default time-to-live for entries. Zero means entries never
	// expire unless Set is given an explicit TTL.
	TTL time.Duration `yaml:"ttl"`

	// CleanupInterval is the minimum time between two expiry sweeps.
	// Default: 1m.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

func (o Options) withDefaults() Options {
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
	if o.CleanupInterval <= 0 {
		o.CleanupInterval = DefaultCleanupInterval
	}
	return o
}

// SetOption customizes a single Set call.
type SetOption func(*setConfig)

type setConfig struct {
	ttl time.Duration
}

// WithTTL overrides the cache's default TTL for one entry. Zero keeps the
// default; a negative value stores the entry without expiry.
func WithTTL(ttl time.Duration) SetOption {
	return func(c *setConfig) {
		if ttl != 0 {
			c.ttl = ttl
		}
	}
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock replaces time.Now, mainly for deterministic tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}
