package audit

import (
	"sync"
	"time"

	"oem-seo-api/internal/oemref"
)

// ProgressTracker tracks an audit run. Safe for concurrent use by workers.
type ProgressTracker struct {
	mu sync.RWMutex

	StartedAt time.Time
	Total     int
	Processed int
	Stored    int
	Failed    int
	Skipped   int
	Current   string
	LastError string
	finished  bool
	cancelled bool

	// Pipeline outcomes
	FilterApplied int
	NoDominant    int
	UniqueRefs    int
	KeptRefs      int
	Duplicates    int
}

func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{
		StartedAt: time.Now(),
		Total:     total,
	}
}

// SetCurrent marks combination as in progress and counts it as processed
func (p *ProgressTracker) SetCurrent(combination string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Current = combination
	p.Processed++
}

// RecordResult accumulates the outcome of one pipeline run
func (p *ProgressTracker) RecordResult(result oemref.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if result.FilterApplied {
		p.FilterApplied++
	} else {
		p.NoDominant++
	}
	p.UniqueRefs += result.Stats.TotalRefs
	p.KeptRefs += result.Stats.FilteredCount
	p.Duplicates += result.Stats.DuplicatesRemoved
}

func (p *ProgressTracker) IncrementStored() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Stored++
}

func (p *ProgressTracker) IncrementFailed(err string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Failed++
	p.LastError = err
}

func (p *ProgressTracker) IncrementSkipped() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Skipped++
}

// Finish marks the run as done, cancelled or not
func (p *ProgressTracker) Finish(cancelled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished = true
	p.cancelled = cancelled
}

// GetSnapshot returns a point-in-time copy of the progress
func (p *ProgressTracker) GetSnapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	elapsed := time.Since(p.StartedAt)

	percentage := 0.0
	if p.Total > 0 {
		percentage = float64(p.Processed) / float64(p.Total) * 100
	}

	var eta time.Time
	var remaining time.Duration
	if p.Processed > 0 && p.Processed < p.Total {
		avg := elapsed / time.Duration(p.Processed)
		remaining = avg * time.Duration(p.Total-p.Processed)
		eta = time.Now().Add(remaining)
	}

	reduction := 0.0
	if p.UniqueRefs > 0 {
		reduction = float64(p.UniqueRefs-p.KeptRefs) / float64(p.UniqueRefs) * 100
	}

	status := "running"
	switch {
	case p.cancelled:
		status = "cancelled"
	case p.finished:
		status = "completed"
	}

	return ProgressSnapshot{
		Status:           status,
		StartedAt:        p.StartedAt,
		Elapsed:          elapsed,
		Total:            p.Total,
		Processed:        p.Processed,
		Stored:           p.Stored,
		Failed:           p.Failed,
		Skipped:          p.Skipped,
		Percentage:       percentage,
		Current:          p.Current,
		LastError:        p.LastError,
		FilterApplied:    p.FilterApplied,
		NoDominant:       p.NoDominant,
		UniqueRefs:       p.UniqueRefs,
		KeptRefs:         p.KeptRefs,
		Duplicates:       p.Duplicates,
		OverallReduction: reduction,
		ETA:              eta,
		Remaining:        remaining,
	}
}

// ProgressSnapshot is a point-in-time snapshot of progress
type ProgressSnapshot struct {
	Status           string
	StartedAt        time.Time
	Elapsed          time.Duration
	Total            int
	Processed        int
	Stored           int
	Failed           int
	Skipped          int
	Percentage       float64
	Current          string
	LastError        string
	FilterApplied    int
	NoDominant       int
	UniqueRefs       int
	KeptRefs         int
	Duplicates       int
	OverallReduction float64
	ETA              time.Time
	Remaining        time.Duration
}
