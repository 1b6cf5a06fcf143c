package cache

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Store is a registry of named caches.
type Store struct {
	mu     sync.RWMutex
	caches map[string]*Cache
	now    func() time.Time
}

// NewStore returns an empty Store.
func NewStore(opts ...StoreOption) *Store {
	store := &Store{
		caches: make(map[string]*Cache),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Create registers a cache under name and returns it. Creating a name that
// already exists returns the existing cache untouched.
func (s *Store) Create(name string, options Options) *Cache {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.caches[name]; ok {
		return existing
	}
	created := newCache(name, options, s.now)
	s.caches[name] = created
	return created
}

// Cache returns the cache registered under name.
func (s *Store) Cache(name string) (*Cache, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.caches[name]
	return c, ok
}

// Names returns the registered cache names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.caches))
	for name := range s.caches {
		names = append(names, name)
	}
	s.mu.RUnlock()

	slices.Sort(names)
	return names
}

// Set stores value in the named cache. It returns false when no cache is
// registered under name.
func (s *Store) Set(name, key string, value any, opts ...SetOption) bool {
	c, ok := s.Cache(name)
	if !ok {
		return false
	}
	c.Set(key, value, opts...)
	return true
}

// Get reads key from the named cache. Unknown caches behave like a miss.
func (s *Store) Get(name, key string) (any, bool) {
	c, ok := s.Cache(name)
	if !ok {
		return nil, false
	}
	return c.Get(key)
}

// Has reports whether the named cache holds a live entry for key.
func (s *Store) Has(name, key string) bool {
	c, ok := s.Cache(name)
	if !ok {
		return false
	}
	return c.Has(key)
}

// Delete removes key from the named cache.
func (s *Store) Delete(name, key string) bool {
	c, ok := s.Cache(name)
	if !ok {
		return false
	}
	return c.Delete(key)
}

// ClearAll empties every registered cache.
func (s *Store) ClearAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.caches {
		c.Clear()
	}
}

// Stats returns the counters of the named cache.
func (s *Store) Stats(name string) (Stats, bool) {
	c, ok := s.Cache(name)
	if !ok {
		return Stats{}, false
	}
	return c.Stats(), true
}

// Run sweeps every cache each interval until ctx is done. Lazy expiry on
// access keeps working without it.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.RLock()
			caches := make([]*Cache, 0, len(s.caches))
			for _, c := range s.caches {
				caches = append(caches, c)
			}
			s.mu.RUnlock()

			for _, c := range caches {
				c.Sweep()
			}
		}
	}
}
