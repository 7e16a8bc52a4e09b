package oemref

import (
	"sort"
	"time"
)

const (
	DefaultMinPrefixCount = 3
	DefaultMinPrefixRatio = 0.15
	DefaultMaxPrefixes    = 3
	DefaultCacheTTL       = time.Hour
)

// Config holds the discovery thresholds and the cache lifetime. Zero or
// negative fields mean "use the default", so a zero MinPrefixRatio does not
// disable the ratio floor; pass a tiny positive ratio to make
// MinPrefixCount the only threshold.
type Config struct {
	// MinPrefixCount is the absolute floor a prefix count must reach
	MinPrefixCount int
	// MinPrefixRatio is the share of all refs a prefix count must reach.
	// 0 means DefaultMinPrefixRatio.
	MinPrefixRatio float64
	// MaxPrefixes caps the number of dominant prefixes returned
	MaxPrefixes int
	// CacheTTL is how long discovered prefixes stay valid
	CacheTTL time.Duration
}

// DefaultConfig returns {3, 0.15, 3, 1h}.
func DefaultConfig() Config {
	return Config{
		MinPrefixCount: DefaultMinPrefixCount,
		MinPrefixRatio: DefaultMinPrefixRatio,
		MaxPrefixes:    DefaultMaxPrefixes,
		CacheTTL:       DefaultCacheTTL,
	}
}

// withDefaults replaces unset (zero or negative) fields with defaults
func (c Config) withDefaults() Config {
	if c.MinPrefixCount <= 0 {
		c.MinPrefixCount = DefaultMinPrefixCount
	}
	if c.MinPrefixRatio <= 0 {
		c.MinPrefixRatio = DefaultMinPrefixRatio
	}
	if c.MaxPrefixes <= 0 {
		c.MaxPrefixes = DefaultMaxPrefixes
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	return c
}

type prefixCount struct {
	prefix string
	count  int
}

// DiscoverDominantPrefixes returns up to cfg.MaxPrefixes prefixes whose
// count reaches max(MinPrefixCount, len(refs)*MinPrefixRatio), ordered by
// descending count. Ties keep first-encountered order. The ratio is taken
// against every input ref, including those without a valid prefix.
func DiscoverDominantPrefixes(refs []string, cfg Config) []string {
	cfg = cfg.withDefaults()
	if len(refs) == 0 {
		return []string{}
	}

	index := make(map[string]int)
	var counts []prefixCount
	for _, ref := range refs {
		prefix, ok := ExtractPrefix(ref)
		if !ok {
			continue
		}
		if i, seen := index[prefix]; seen {
			counts[i].count++
			continue
		}
		index[prefix] = len(counts)
		counts = append(counts, prefixCount{prefix: prefix, count: 1})
	}

	threshold := max(float64(cfg.MinPrefixCount), float64(len(refs))*cfg.MinPrefixRatio)

	selected := make([]prefixCount, 0, len(counts))
	for _, pc := range counts {
		if float64(pc.count) >= threshold {
			selected = append(selected, pc)
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].count > selected[j].count
	})

	if len(selected) > cfg.MaxPrefixes {
		selected = selected[:cfg.MaxPrefixes]
	}

	prefixes := make([]string, len(selected))
	for i, pc := range selected {
		prefixes[i] = pc.prefix
	}
	return prefixes
}

// FilterByPrefixes keeps the refs whose prefix is one of prefixes. Refs
// without a prefix never match. Supplied prefixes are normalized, so "8e0"
// matches "8E0 915 105". An empty prefix list returns refs as-is.
func FilterByPrefixes(refs []string, prefixes []string) []string {
	if len(prefixes) == 0 {
		return refs
	}

	allowed := make(map[string]struct{}, len(prefixes))
	for _, p := range prefixes {
		allowed[Normalize(p)] = struct{}{}
	}

	filtered := make([]string, 0, len(refs))
	for _, ref := range refs {
		prefix, ok := ExtractPrefix(ref)
		if !ok {
			continue
		}
		if _, match := allowed[prefix]; match {
			filtered = append(filtered, ref)
		}
	}

	return filtered
}
