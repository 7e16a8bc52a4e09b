// Package metrics exposes Prometheus collectors for the OEM prefix pipeline.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"oem-seo-api/internal/oemref"
)

// Recorder implements oemref.Observer on top of Prometheus collectors
type Recorder struct {
	cacheLookups     *prometheus.CounterVec
	filterRuns       *prometheus.CounterVec
	uniqueRefs       prometheus.Histogram
	reductionPercent prometheus.Histogram
	duplicates       prometheus.Counter
}

// NewRecorder registers the collectors on reg. Pass prometheus.NewRegistry()
// in tests to avoid clashing with the default registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oem_prefix_cache_lookups_total",
				Help: "Dominant prefix cache lookups by result",
			},
			[]string{"result"},
		),
		filterRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oem_filter_runs_total",
				Help: "OEM ref filter runs by whether a prefix filter was applied",
			},
			[]string{"filter_applied"},
		),
		uniqueRefs: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "oem_filter_unique_refs",
				Help:    "Unique OEM refs per filter run",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		reductionPercent: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "oem_filter_reduction_percent",
				Help:    "Share of unique refs removed by the prefix filter",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		),
		duplicates: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "oem_filter_duplicates_removed_total",
				Help: "OEM refs dropped as duplicates of an earlier ref",
			},
		),
	}
}

func (r *Recorder) CacheHit(oemref.CacheKey) {
	r.cacheLookups.WithLabelValues("hit").Inc()
}

func (r *Recorder) CacheMiss(oemref.CacheKey) {
	r.cacheLookups.WithLabelValues("miss").Inc()
}

func (r *Recorder) Filtered(_ oemref.CacheKey, result oemref.Result) {
	r.filterRuns.WithLabelValues(strconv.FormatBool(result.FilterApplied)).Inc()
	r.uniqueRefs.Observe(float64(result.Stats.TotalRefs))
	r.duplicates.Add(float64(result.Stats.DuplicatesRemoved))
	if result.FilterApplied {
		r.reductionPercent.Observe(float64(result.Stats.ReductionPercent))
	}
}
