// Package audit runs prefix discovery over every stored combination and
// records the outcome, so the share of combinations that get filtered can
// be reviewed offline.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"oem-seo-api/internal/model"
	"oem-seo-api/internal/oemref"
)

// CombinationSource lists the combinations to audit
type CombinationSource interface {
	ListCombinations(ctx context.Context) ([]model.Combination, error)
}

// RefSource loads the raw refs of one combination
type RefSource interface {
	ListRefs(ctx context.Context, typeID, gammeID int, marque string) ([]string, error)
}

// Store persists audit rows
type Store interface {
	Upsert(ctx context.Context, audit model.PrefixAudit) error
}

type Config struct {
	Workers         int
	CheckpointEvery int
	CheckpointFile  string
	DryRun          bool
	MonitorPort     int
}

func DefaultConfig() Config {
	return Config{
		Workers:         4,
		CheckpointEvery: 500,
		CheckpointFile:  "oem_audit_checkpoint.json",
		MonitorPort:     9090,
	}
}

// Service fans combinations out to a worker pool running the prefix pipeline
type Service struct {
	config     Config
	combos     CombinationSource
	refs       RefSource
	store      Store
	pipeline   *oemref.Pipeline
	checkpoint *CheckpointManager
	progress   *ProgressTracker
	metrics    http.Handler
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(
	config Config,
	combos CombinationSource,
	refs RefSource,
	store Store,
	pipeline *oemref.Pipeline,
	logger *slog.Logger,
) *Service {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.CheckpointEvery <= 0 {
		config.CheckpointEvery = DefaultConfig().CheckpointEvery
	}

	return &Service{
		config:     config,
		combos:     combos,
		refs:       refs,
		store:      store,
		pipeline:   pipeline,
		checkpoint: NewCheckpointManager(config.CheckpointFile),
		progress:   NewProgressTracker(0),
		logger:     logger,
		now:        time.Now,
	}
}

// SetMetricsHandler exposes h as /metrics on the monitor
func (s *Service) SetMetricsHandler(h http.Handler) {
	s.metrics = h
}

// Progress returns the tracker of the current run
func (s *Service) Progress() *ProgressTracker {
	return s.progress
}

// Run audits every combination not covered by a previous checkpoint. A
// completed run removes the checkpoint file.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("starting oem prefix audit",
		"workers", s.config.Workers,
		"dry_run", s.config.DryRun,
	)

	combos, err := s.combos.ListCombinations(ctx)
	if err != nil {
		return fmt.Errorf("failed to load combinations: %w", err)
	}

	s.logger.Info("loaded combinations", "count", len(combos))

	startIndex := s.resumeIndex(combos)
	pending := combos[startIndex:]
	s.logger.Info("auditing combinations",
		"total", len(combos),
		"to_process", len(pending),
		"skipped", startIndex,
	)

	s.progress = NewProgressTracker(len(pending))

	if s.config.MonitorPort > 0 {
		monitor := NewMonitor(s.config.MonitorPort, s.progress, s.metrics)
		monitor.Start()
		s.logger.Info("audit monitor started", "port", s.config.MonitorPort)
		defer monitor.Stop(context.Background())
	}

	queue := make(chan queuedCombination, s.config.Workers*2)
	done := newCompletion(len(pending))
	var wg sync.WaitGroup

	// Queued combinations are finished after cancellation so the
	// checkpoint never skips unaudited work.
	workerCtx := context.WithoutCancel(ctx)
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go s.worker(workerCtx, i, queue, done, &wg)
	}

	cancelled := false
feed:
	for i, combo := range pending {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		select {
		case <-ctx.Done():
			cancelled = true
			break feed
		case queue <- queuedCombination{index: i, combo: combo}:
			if (i+1)%s.config.CheckpointEvery == 0 {
				s.saveCheckpoint(pending, done)
			}
		}
	}

	close(queue)
	wg.Wait()

	if cancelled {
		s.logger.Info("context cancelled, stopped feeding combinations")
		s.progress.Finish(true)
		s.saveCheckpoint(pending, done)
		return ctx.Err()
	}

	s.progress.Finish(false)

	if err := s.checkpoint.Delete(); err != nil {
		s.logger.Warn("failed to delete checkpoint", "error", err)
	}

	s.logFinalStats()
	return nil
}

// resumeIndex returns the index following the checkpointed combination, or 0
func (s *Service) resumeIndex(combos []model.Combination) int {
	checkpoint, err := s.checkpoint.Load()
	if err != nil {
		s.logger.Warn("failed to load checkpoint, starting fresh", "error", err)
		return 0
	}
	if checkpoint == nil {
		return 0
	}

	for i, c := range combos {
		if c == checkpoint.Last {
			s.logger.Info("resuming from checkpoint",
				"last", comboString(checkpoint.Last),
				"saved_at", checkpoint.SavedAt,
			)
			return i + 1
		}
	}

	s.logger.Warn("checkpointed combination not found, starting fresh",
		"last", comboString(checkpoint.Last),
	)
	return 0
}

// saveCheckpoint records the last combination of the completed prefix of
// pending. Nothing is written before the first combination is done.
func (s *Service) saveCheckpoint(pending []model.Combination, done *completion) {
	n := done.watermark()
	if n == 0 {
		return
	}

	last := pending[n-1]
	if err := s.checkpoint.Save(last, s.progress); err != nil {
		s.logger.Warn("failed to save checkpoint", "error", err)
		return
	}
	s.logger.Info("checkpoint saved", "last", comboString(last))
}

type queuedCombination struct {
	index int
	combo model.Combination
}

// completion tracks which queued combinations are done. Workers finish out
// of order; watermark is the length of the leading run of done indexes.
type completion struct {
	mu   sync.Mutex
	done []bool
	next int
}

func newCompletion(n int) *completion {
	return &completion{done: make([]bool, n)}
}

func (c *completion) markDone(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.done[i] = true
	for c.next < len(c.done) && c.done[c.next] {
		c.next++
	}
}

func (c *completion) watermark() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

func (s *Service) worker(ctx context.Context, id int, queue <-chan queuedCombination, done *completion, wg *sync.WaitGroup) {
	defer wg.Done()

	processed := 0
	for item := range queue {
		s.process(ctx, item.combo)
		done.markDone(item.index)
		processed++

		if processed%1000 == 0 {
			s.logger.Info("worker progress", "worker_id", id, "processed", processed)
		}
	}

	s.logger.Debug("worker finished", "worker_id", id, "total_processed", processed)
}

func (s *Service) process(ctx context.Context, combo model.Combination) {
	s.progress.SetCurrent(comboString(combo))

	refs, err := s.refs.ListRefs(ctx, combo.TypeID, combo.GammeID, combo.Marque)
	if err != nil {
		s.logger.Warn("failed to load refs", "combination", comboString(combo), "error", err)
		s.progress.IncrementFailed(err.Error())
		return
	}

	if len(refs) == 0 {
		s.progress.IncrementSkipped()
		return
	}

	result := s.pipeline.Filter(refs, oemref.NewCacheKey(combo.TypeID, combo.GammeID, combo.Marque))
	s.progress.RecordResult(result)

	audit := model.PrefixAudit{
		Combination:       combo,
		Prefixes:          result.Prefixes,
		TotalRefs:         result.Stats.TotalRefs,
		FilteredCount:     result.Stats.FilteredCount,
		ReductionPercent:  result.Stats.ReductionPercent,
		DuplicatesRemoved: result.Stats.DuplicatesRemoved,
		FilterApplied:     result.FilterApplied,
		AuditedAt:         s.now(),
	}

	if s.config.DryRun {
		s.logger.Info("dry run - would store audit",
			"combination", comboString(combo),
			"prefixes", audit.Prefixes,
			"total_refs", audit.TotalRefs,
			"filtered_count", audit.FilteredCount,
		)
		s.progress.IncrementStored()
		return
	}

	if err := s.store.Upsert(ctx, audit); err != nil {
		s.logger.Warn("failed to store audit", "combination", comboString(combo), "error", err)
		s.progress.IncrementFailed(err.Error())
		return
	}
	s.progress.IncrementStored()
}

func (s *Service) logFinalStats() {
	snapshot := s.progress.GetSnapshot()

	s.logger.Info("audit completed",
		"elapsed", snapshot.Elapsed.String(),
		"total", snapshot.Total,
		"processed", snapshot.Processed,
		"stored", snapshot.Stored,
		"failed", snapshot.Failed,
		"skipped", snapshot.Skipped,
		"filter_applied", snapshot.FilterApplied,
		"no_dominant_prefix", snapshot.NoDominant,
		"overall_reduction", fmt.Sprintf("%.1f%%", snapshot.OverallReduction),
	)
}

func comboString(c model.Combination) string {
	return oemref.NewCacheKey(c.TypeID, c.GammeID, c.Marque).String()
}
