package cache

import (
	"slices"
	"sync"
	"time"
)

// Entry is a single cached value. A zero ExpiresAt means the entry never expires.
type Entry struct {
	Value      any
	InsertedAt time.Time
	ExpiresAt  time.Time

	seq uint64 // insertion order, breaks InsertedAt ties
}

func (e *Entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Stats is a point-in-time view of a cache's counters.
type Stats struct {
	Name        string  `json:"name"`
	Size        int     `json:"size"`
	MaxSize     int     `json:"max_size"`
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Sets        int64   `json:"sets"`
	Deletes     int64   `json:"deletes"`
	Evictions   int64   `json:"evictions"`
	Expirations int64   `json:"expirations"`
	HitRate     float64 `json:"hit_rate"`
}

// Cache is one named key/value cache. All methods are safe for concurrent use
// and never panic; absent keys are reported with ok == false.
type Cache struct {
	mu          sync.Mutex
	name        string
	options     Options
	entries     map[string]*Entry
	stats       Stats
	seq         uint64
	lastCleanup time.Time
	now         func() time.Time
}

func newCache(name string, options Options, now func() time.Time) *Cache {
	options = options.withDefaults()
	return &Cache{
		name:        name,
		options:     options,
		entries:     make(map[string]*Entry, options.MaxSize),
		lastCleanup: now(),
		now:         now,
	}
}

// Name returns the cache name.
func (c *Cache) Name() string {
	return c.name
}

// Set stores value under key. When the key is new and the cache is full, the
// oldest 20% of entries are evicted first, then single oldest entries until
// there is room.
func (c *Cache) Set(key string, value any, opts ...SetOption) {
	cfg := setConfig{ttl: c.options.TTL}
	for _, opt := range opts {
		opt(&cfg)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.maybeSweepLocked(now)

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.options.MaxSize {
		c.evictLocked()
	}

	c.seq++
	entry := &Entry{Value: value, InsertedAt: now, seq: c.seq}
	if cfg.ttl > 0 {
		entry.ExpiresAt = now.Add(cfg.ttl)
	}
	c.entries[key] = entry
	c.stats.Sets++
}

// Get returns the value stored under key. An expired entry is removed and
// counts as a miss.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lookupLocked(key)
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return entry.Value, true
}

// Has reports whether a live entry exists for key. It follows the same expiry
// rule as Get, including the hit/miss accounting.
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key and reports whether it was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	c.stats.Deletes++
	return true
}

// Clear removes every entry. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
}

// Len returns the number of stored entries, expired ones included until they
// are touched or swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Sweep removes every expired entry regardless of the cleanup interval and
// returns how many were dropped.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sweepLocked(c.now())
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Name = c.name
	stats.Size = len(c.entries)
	stats.MaxSize = c.options.MaxSize
	if accesses := stats.Hits + stats.Misses; accesses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(accesses)
	}
	return stats
}

func (c *Cache) lookupLocked(key string) (*Entry, bool) {
	now := c.now()
	c.maybeSweepLocked(now)

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if entry.expired(now) {
		delete(c.entries, key)
		c.stats.Expirations++
		return nil, false
	}
	return entry, true
}

func (c *Cache) maybeSweepLocked(now time.Time) {
	if now.Sub(c.lastCleanup) > c.options.CleanupInterval {
		c.sweepLocked(now)
	}
}

func (c *Cache) sweepLocked(now time.Time) int {
	removed := 0
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	c.stats.Expirations += int64(removed)
	c.lastCleanup = now
	return removed
}

// evictLocked drops the oldest fifth of the entries, then single oldest
// entries until the cache is strictly below MaxSize.
func (c *Cache) evictLocked() {
	type aged struct {
		key   string
		entry *Entry
	}

	ordered := make([]aged, 0, len(c.entries))
	for key, entry := range c.entries {
		ordered = append(ordered, aged{key: key, entry: entry})
	}
	slices.SortFunc(ordered, func(a, b aged) int {
		if cmp := a.entry.InsertedAt.Compare(b.entry.InsertedAt); cmp != 0 {
			return cmp
		}
		if a.entry.seq < b.entry.seq {
			return -1
		}
		return 1
	})

	batch := len(ordered) / evictFraction
	i := 0
	for ; i < batch; i++ {
		delete(c.entries, ordered[i].key)
	}
	for ; len(c.entries) >= c.options.MaxSize && i < len(ordered); i++ {
		delete(c.entries, ordered[i].key)
	}
	c.stats.Evictions += int64(i)
}
