package oemref

import (
	"io"
	"log/slog"
	"math"
)

// Stats summarizes one pipeline run
type Stats struct {
	TotalRefs         int `json:"total_refs"`
	FilteredCount     int `json:"filtered_count"`
	ReductionPercent  int `json:"reduction_percent"`
	DuplicatesRemoved int `json:"duplicates_removed"`
}

// Result is what Pipeline.Filter hands back to callers. Slices are never nil.
type Result struct {
	FilteredRefs  []string `json:"filtered_refs"`
	AllRefs       []string `json:"all_refs"`
	Prefixes      []string `json:"prefixes"`
	FilterApplied bool     `json:"filter_applied"`
	Stats         Stats    `json:"stats"`
}

// Observer is notified of cache lookups and finished runs.
type Observer interface {
	CacheHit(key CacheKey)
	CacheMiss(key CacheKey)
	Filtered(key CacheKey, result Result)
}

type nopObserver struct{}

func (nopObserver) CacheHit(CacheKey)         {}
func (nopObserver) CacheMiss(CacheKey)        {}
func (nopObserver) Filtered(CacheKey, Result) {}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

// WithLogger sets the logger used for debug output
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithObserver attaches an observer, e.g. a metrics recorder
func WithObserver(o Observer) PipelineOption {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// Pipeline deduplicates OEM refs, looks up or discovers the dominant
// prefixes of the combination and filters the refs down to them.
type Pipeline struct {
	cache    *PrefixCache
	config   Config
	logger   *slog.Logger
	observer Observer
}

// NewPipeline creates a pipeline around cache. A nil cache gets a fresh one
// using cfg.CacheTTL.
func NewPipeline(cache *PrefixCache, cfg Config, opts ...PipelineOption) *Pipeline {
	cfg = cfg.withDefaults()
	if cache == nil {
		cache = NewPrefixCache(cfg.CacheTTL)
	}

	p := &Pipeline{
		cache:    cache,
		config:   cfg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the effective configuration
func (p *Pipeline) Config() Config {
	return p.config
}

// Filter runs the full pipeline for refs collected under key.
func (p *Pipeline) Filter(refs []string, key CacheKey) Result {
	if len(refs) == 0 {
		return Result{
			FilteredRefs: []string{},
			AllRefs:      []string{},
			Prefixes:     []string{},
		}
	}

	unique := Deduplicate(refs)
	duplicates := len(refs) - len(unique)

	prefixes, hit := p.cache.GetOrCompute(key, func() []string {
		return DiscoverDominantPrefixes(unique, p.config)
	})
	if hit {
		p.observer.CacheHit(key)
		p.logger.Debug("oem prefix cache hit", "key", key.String(), "prefixes", prefixes)
	} else {
		p.observer.CacheMiss(key)
		p.logger.Debug("oem prefixes discovered",
			"key", key.String(),
			"unique_refs", len(unique),
			"prefixes", prefixes,
		)
	}

	var result Result
	if len(prefixes) == 0 {
		result = Result{
			FilteredRefs: copyStrings(unique),
			AllRefs:      unique,
			Prefixes:     []string{},
			Stats: Stats{
				TotalRefs:         len(unique),
				FilteredCount:     len(unique),
				DuplicatesRemoved: duplicates,
			},
		}
	} else {
		filtered := FilterByPrefixes(unique, prefixes)
		result = Result{
			FilteredRefs:  filtered,
			AllRefs:       unique,
			Prefixes:      prefixes,
			FilterApplied: true,
			Stats: Stats{
				TotalRefs:         len(unique),
				FilteredCount:     len(filtered),
				ReductionPercent:  reductionPercent(len(unique), len(filtered)),
				DuplicatesRemoved: duplicates,
			},
		}
	}

	p.observer.Filtered(key, result)
	return result
}

// FilterByPrefixes filters refs against prefixes the caller already knows,
// bypassing discovery and the cache.
func (p *Pipeline) FilterByPrefixes(refs, prefixes []string) []string {
	return FilterByPrefixes(refs, prefixes)
}

// ClearCache empties the prefix cache
func (p *Pipeline) ClearCache() {
	p.cache.Clear()
	p.logger.Info("oem prefix cache cleared")
}

// CacheStats reports the prefix cache content
func (p *Pipeline) CacheStats() CacheStats {
	return p.cache.Stats()
}

func reductionPercent(total, kept int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(total-kept) / float64(total) * 100))
}
