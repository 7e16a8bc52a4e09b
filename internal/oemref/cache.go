package oemref

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var brandUpper = cases.Upper(language.Und)

// CacheKey identifies one (vehicle type, part category, brand) combination.
// Build it with NewCacheKey so the brand is folded consistently.
type CacheKey struct {
	VehicleTypeID  int
	PartCategoryID int
	Brand          string
}

// NewCacheKey builds a key with the brand trimmed, NFC-composed and
// uppercased, so "Renault", "RENAULT " and "renault" share an entry.
func NewCacheKey(vehicleTypeID, partCategoryID int, brand string) CacheKey {
	return CacheKey{
		VehicleTypeID:  vehicleTypeID,
		PartCategoryID: partCategoryID,
		Brand:          normalizeBrand(brand),
	}
}

func normalizeBrand(brand string) string {
	brand = norm.NFC.String(strings.TrimSpace(brand))
	return brandUpper.String(brand)
}

// String renders the key as "typeId:gammeId:BRAND" for logs and stats.
func (k CacheKey) String() string {
	return fmt.Sprintf("%d:%d:%s", k.VehicleTypeID, k.PartCategoryID, k.Brand)
}

// CacheEntry holds the dominant prefixes discovered for a key.
type CacheEntry struct {
	Prefixes     []string
	DiscoveredAt time.Time
}

// CacheEntryStats describes one entry for diagnostics
type CacheEntryStats struct {
	Key        string   `json:"key"`
	Prefixes   []string `json:"prefixes"`
	AgeSeconds int64    `json:"age_seconds"`
}

// CacheStats is a point-in-time view of the cache
type CacheStats struct {
	Size    int               `json:"size"`
	Entries []CacheEntryStats `json:"entries"`
}

// CacheOption configures a PrefixCache
type CacheOption func(*PrefixCache)

// WithClock overrides the time source, mostly for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *PrefixCache) {
		c.now = now
	}
}

// PrefixCache is a process-local TTL cache of dominant prefixes. Entries are
// replaced wholesale and copied on the way in and out, so callers never
// share slices with the cache.
type PrefixCache struct {
	mu      sync.RWMutex
	entries map[CacheKey]CacheEntry
	ttl     time.Duration
	now     func() time.Time

	group singleflight.Group
}

// NewPrefixCache creates an empty cache. A non-positive ttl means
// DefaultCacheTTL.
func NewPrefixCache(ttl time.Duration, opts ...CacheOption) *PrefixCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	c := &PrefixCache{
		entries: make(map[CacheKey]CacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured entry lifetime
func (c *PrefixCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the entry for key if it is younger than the TTL. Expired
// entries are reported as misses but stay in place until overwritten.
func (c *PrefixCache) Get(key CacheKey) (CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return CacheEntry{}, false
	}
	if c.now().Sub(entry.DiscoveredAt) >= c.ttl {
		return CacheEntry{}, false
	}

	return CacheEntry{
		Prefixes:     copyStrings(entry.Prefixes),
		DiscoveredAt: entry.DiscoveredAt,
	}, true
}

// Set stores prefixes for key, stamped with the current time.
func (c *PrefixCache) Set(key CacheKey, prefixes []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = CacheEntry{
		Prefixes:     copyStrings(prefixes),
		DiscoveredAt: c.now(),
	}
}

// GetOrCompute returns the cached prefixes for key, or runs compute, stores
// its result and returns it. Concurrent misses on the same key share a
// single compute call. The bool reports whether the value came from cache.
func (c *PrefixCache) GetOrCompute(key CacheKey, compute func() []string) ([]string, bool) {
	if entry, ok := c.Get(key); ok {
		return entry.Prefixes, true
	}

	type outcome struct {
		prefixes []string
		hit      bool
	}

	v, _, _ := c.group.Do(key.String(), func() (interface{}, error) {
		// Another caller may have stored the entry while we waited
		if entry, ok := c.Get(key); ok {
			return outcome{prefixes: entry.Prefixes, hit: true}, nil
		}
		prefixes := compute()
		c.Set(key, prefixes)
		return outcome{prefixes: prefixes}, nil
	})

	res := v.(outcome)
	return copyStrings(res.prefixes), res.hit
}

// Clear drops every entry.
func (c *PrefixCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[CacheKey]CacheEntry)
}

// Len returns the number of stored entries, expired ones included
func (c *PrefixCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats lists every stored entry with its age in seconds, sorted by key.
func (c *PrefixCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	stats := CacheStats{
		Size:    len(c.entries),
		Entries: make([]CacheEntryStats, 0, len(c.entries)),
	}
	for key, entry := range c.entries {
		stats.Entries = append(stats.Entries, CacheEntryStats{
			Key:        key.String(),
			Prefixes:   copyStrings(entry.Prefixes),
			AgeSeconds: int64(math.Round(now.Sub(entry.DiscoveredAt).Seconds())),
		})
	}

	sort.Slice(stats.Entries, func(i, j int) bool {
		return stats.Entries[i].Key < stats.Entries[j].Key
	})
	return stats
}

func copyStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
