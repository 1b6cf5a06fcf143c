package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock shared by a Store and its caches.
type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time            { return f.current }
func (f *fakeClock) Advance(d time.Duration)   { f.current = f.current.Add(d) }
func (f *fakeClock) store(t *testing.T) *Store { t.Helper(); return NewStore(WithClock(f.Now)) }

func TestStore_SetGetHasDelete(t *testing.T) {
	clock := newFakeClock()
	store := clock.store(t)
	store.Create("responses", Options{MaxSize: 10})

	require.True(t, store.Set("responses", "k", "v"))

	value, ok := store.Get("responses", "k")
	require.True(t, ok)
	assert.Equal(t, "v", value)
	assert.True(t, store.Has("responses", "k"))

	assert.True(t, store.Delete("responses", "k"))
	assert.False(t, store.Delete("responses", "k"))

	value, ok = store.Get("responses", "k")
	assert.False(t, ok)
	assert.Nil(t, value)
}

func TestStore_UnknownCacheBehavesAsMiss(t *testing.T) {
	store := NewStore()

	assert.False(t, store.Set("missing", "k", 1))
	_, ok := store.Get("missing", "k")
	assert.False(t, ok)
	assert.False(t, store.Has("missing", "k"))
	_, ok = store.Stats("missing")
	assert.False(t, ok)
}

func TestStore_CreateIsIdempotent(t *testing.T) {
	store := NewStore()
	first := store.Create("c", Options{MaxSize: 2})
	second := store.Create("c", Options{MaxSize: 50})

	assert.Same(t, first, second)
	assert.Equal(t, []string{"c"}, store.Names())
}

func TestCache_SizeNeverExceedsMaxSize(t *testing.T) {
	for _, maxSize := range []int{1, 2, 3, 5, 7, 10, 33} {
		t.Run(fmt.Sprintf("max_%d", maxSize), func(t *testing.T) {
			clock := newFakeClock()
			c := clock.store(t).Create("bounded", Options{MaxSize: maxSize})

			for i := 0; i < maxSize*4; i++ {
				clock.Advance(time.Millisecond)
				c.Set(fmt.Sprintf("key-%d", i), i)
				require.LessOrEqual(t, c.Len(), maxSize)
			}
		})
	}
}

func TestCache_BatchEvictionRemovesOldestFifth(t *testing.T) {
	clock := newFakeClock()
	c := clock.store(t).Create("batch", Options{MaxSize: 10})

	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	clock.Advance(time.Second)
	c.Set("k10", 10)

	assert.Equal(t, 9, c.Len())
	assert.False(t, c.Has("k0"))
	assert.False(t, c.Has("k1"))
	assert.True(t, c.Has("k2"))
	assert.True(t, c.Has("k10"))
	assert.Equal(t, int64(2), c.Stats().Evictions)
}

func TestCache_SmallCacheFallsBackToSingleEviction(t *testing.T) {
	clock := newFakeClock()
	c := clock.store(t).Create("small", Options{MaxSize: 3})

	for _, key := range []string{"a", "b", "c", "d"} {
		clock.Advance(time.Second)
		c.Set(key, key)
	}

	assert.Equal(t, 3, c.Len())
	assert.False(t, c.Has("a"))
	assert.True(t, c.Has("d"))
}

func TestCache_ReadsDoNotRefreshInsertionTime(t *testing.T) {
	clock := newFakeClock()
	c := clock.store(t).Create("fifo", Options{MaxSize: 5})

	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	for i := 0; i < 10; i++ {
		_, ok := c.Get("k0")
		require.True(t, ok)
	}

	clock.Advance(time.Second)
	c.Set("k5", 5)

	assert.False(t, c.Has("k0"), "oldest inserted entry must go even if it was read")
	assert.True(t, c.Has("k1"))
}

func TestCache_EqualTimestampsEvictInInsertionOrder(t *testing.T) {
	clock := newFakeClock()
	c := clock.store(t).Create("ties", Options{MaxSize: 5})

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	c.Set("k5", 5)

	assert.False(t, c.Has("k0"))
	assert.True(t, c.Has("k1"))
}

func TestCache_OverwriteDoesNotEvict(t *testing.T) {
	clock := newFakeClock()
	c := clock.store(t).Create("overwrite", Options{MaxSize: 2})

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3)

	assert.Equal(t, 2, c.Len())
	value, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, value)
	assert.Zero(t, c.Stats().Evictions)
}

func TestCache_TTLExpiry(t *testing.T) {
	clock := newFakeClock()
	c := clock.store(t).Create("ttl", Options{MaxSize: 10, TTL: 10 * time.Second})

	c.Set("k", "v")
	assert.True(t, c.Has("k"))

	clock.Advance(10 * time.Second)
	assert.True(t, c.Has("k"), "entry is live at exactly insertedAt+TTL")

	clock.Advance(time.Nanosecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Len(), "expired entry is removed on read")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Expirations)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestCache_PerEntryTTL(t *testing.T) {
	clock := newFakeClock()
	c := clock.store(t).Create("per-entry", Options{MaxSize: 10, TTL: time.Hour})

	c.Set("short", 1, WithTTL(time.Second))
	c.Set("forever", 2, WithTTL(-1))
	c.Set("default", 3, WithTTL(0))

	clock.Advance(2 * time.Second)
	assert.False(t, c.Has("short"))
	assert.True(t, c.Has("default"))

	clock.Advance(48 * time.Hour)
	assert.False(t, c.Has("default"))
	assert.True(t, c.Has("forever"))
}

func TestCache_PeriodicSweepRemovesUntouchedEntries(t *testing.T) {
	clock := newFakeClock()
	c := clock.store(t).Create("sweep", Options{MaxSize: 10, CleanupInterval: time.Minute})

	c.Set("a", 1, WithTTL(time.Second))
	c.Set("b", 2, WithTTL(time.Second))
	c.Set("keep", 3)

	clock.Advance(30 * time.Second)
	c.Set("c", 4)
	assert.Equal(t, 4, c.Len(), "no sweep before the cleanup interval elapsed")

	clock.Advance(31 * time.Second)
	c.Set("d", 5)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, int64(2), c.Stats().Expirations)
}

func TestCache_StatsHitRate(t *testing.T) {
	c := NewStore().Create("stats", Options{})

	assert.Zero(t, c.Stats().HitRate)

	c.Set("k", 1)
	c.Get("k")
	c.Get("k")
	c.Get("k")
	c.Get("missing")

	stats := c.Stats()
	assert.Equal(t, int64(3), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.InDelta(t, 0.75, stats.HitRate, 1e-9)
	assert.Equal(t, DefaultMaxSize, stats.MaxSize)
}

func TestStore_ClearAll(t *testing.T) {
	store := NewStore()
	store.Create("one", Options{})
	store.Create("two", Options{})
	store.Set("one", "k", 1)
	store.Set("two", "k", 2)

	store.ClearAll()

	assert.False(t, store.Has("one", "k"))
	assert.False(t, store.Has("two", "k"))
	stats, ok := store.Stats("one")
	require.True(t, ok)
	assert.Zero(t, stats.Size)
}
