package oemref

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewCacheKey_FoldsBrand(t *testing.T) {
	assert.Equal(t, NewCacheKey(12, 402, "RENAULT"), NewCacheKey(12, 402, " renault "))
	assert.Equal(t, NewCacheKey(12, 402, "Renault"), NewCacheKey(12, 402, "rEnAuLt"))

	precomposed := NewCacheKey(1, 2, "citroën")
	decomposed := NewCacheKey(1, 2, "citroe\u0308n")
	assert.Equal(t, "CITROËN", precomposed.Brand)
	assert.Equal(t, precomposed, decomposed)

	assert.NotEqual(t, NewCacheKey(12, 402, "RENAULT"), NewCacheKey(12, 403, "RENAULT"))
	assert.NotEqual(t, NewCacheKey(12, 402, "RENAULT"), NewCacheKey(13, 402, "RENAULT"))
}

func TestCacheKey_String(t *testing.T) {
	assert.Equal(t, "12:402:VW", NewCacheKey(12, 402, "vw").String())
}

func TestPrefixCache_GetSet(t *testing.T) {
	clock := newFakeClock()
	cache := NewPrefixCache(time.Hour, WithClock(clock.Now))
	key := NewCacheKey(1, 2, "audi")

	_, ok := cache.Get(key)
	assert.False(t, ok)

	cache.Set(key, []string{"8E0", "4B0"})

	entry, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, []string{"8E0", "4B0"}, entry.Prefixes)
	assert.Equal(t, clock.Now(), entry.DiscoveredAt)

	_, ok = cache.Get(NewCacheKey(1, 3, "audi"))
	assert.False(t, ok)
}

func TestPrefixCache_TTL(t *testing.T) {
	clock := newFakeClock()
	cache := NewPrefixCache(time.Hour, WithClock(clock.Now))
	key := NewCacheKey(1, 2, "audi")
	cache.Set(key, []string{"8E0"})

	clock.Advance(time.Hour - time.Millisecond)
	_, ok := cache.Get(key)
	assert.True(t, ok, "entry should be fresh just before TTL")

	clock.Advance(time.Millisecond)
	_, ok = cache.Get(key)
	assert.False(t, ok, "entry should expire at TTL")

	// expired entries are not evicted by Get
	assert.Equal(t, 1, cache.Len())

	cache.Set(key, []string{"4B0"})
	entry, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, []string{"4B0"}, entry.Prefixes)
}

func TestPrefixCache_NoAliasing(t *testing.T) {
	cache := NewPrefixCache(time.Hour)
	key := NewCacheKey(1, 2, "audi")

	input := []string{"8E0", "4B0"}
	cache.Set(key, input)
	input[0] = "XXX"

	entry, ok := cache.Get(key)
	require.True(t, ok)
	entry.Prefixes[1] = "YYY"

	again, _ := cache.Get(key)
	assert.Equal(t, []string{"8E0", "4B0"}, again.Prefixes)
}

func TestPrefixCache_ClearAndStats(t *testing.T) {
	clock := newFakeClock()
	cache := NewPrefixCache(time.Hour, WithClock(clock.Now))

	cache.Set(NewCacheKey(2, 1, "vw"), []string{"1K0"})
	clock.Advance(90 * time.Second)
	cache.Set(NewCacheKey(1, 1, "audi"), []string{"8E0"})
	clock.Advance(30 * time.Second)

	stats := cache.Stats()
	assert.Equal(t, 2, stats.Size)
	require.Len(t, stats.Entries, 2)
	assert.Equal(t, CacheEntryStats{Key: "1:1:AUDI", Prefixes: []string{"8E0"}, AgeSeconds: 30}, stats.Entries[0])
	assert.Equal(t, CacheEntryStats{Key: "2:1:VW", Prefixes: []string{"1K0"}, AgeSeconds: 120}, stats.Entries[1])

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, CacheStats{Size: 0, Entries: []CacheEntryStats{}}, cache.Stats())
}

func TestPrefixCache_DefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultCacheTTL, NewPrefixCache(0).TTL())
	assert.Equal(t, time.Minute, NewPrefixCache(time.Minute).TTL())
}

func TestPrefixCache_GetOrCompute(t *testing.T) {
	clock := newFakeClock()
	cache := NewPrefixCache(time.Hour, WithClock(clock.Now))
	key := NewCacheKey(1, 2, "audi")

	calls := 0
	compute := func() []string {
		calls++
		return []string{"8E0"}
	}

	prefixes, hit := cache.GetOrCompute(key, compute)
	assert.False(t, hit)
	assert.Equal(t, []string{"8E0"}, prefixes)

	prefixes, hit = cache.GetOrCompute(key, compute)
	assert.True(t, hit)
	assert.Equal(t, []string{"8E0"}, prefixes)
	assert.Equal(t, 1, calls)

	clock.Advance(2 * time.Hour)
	_, hit = cache.GetOrCompute(key, compute)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)
}

func TestPrefixCache_GetOrCompute_Concurrent(t *testing.T) {
	cache := NewPrefixCache(time.Hour)
	key := NewCacheKey(1, 2, "audi")

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() []string {
		calls.Add(1)
		<-release
		return []string{"8E0"}
	}

	var wg sync.WaitGroup
	results := make([][]string, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = cache.GetOrCompute(key, compute)
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, []string{"8E0"}, r)
	}
}
