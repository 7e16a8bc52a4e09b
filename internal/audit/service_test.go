package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oem-seo-api/internal/model"
	"oem-seo-api/internal/oemref"
)

type fakeCombos struct {
	combos []model.Combination
	err    error
}

func (f fakeCombos) ListCombinations(context.Context) ([]model.Combination, error) {
	return f.combos, f.err
}

type fakeRefs struct {
	refs   map[model.Combination][]string
	failOn map[model.Combination]bool
}

func (f fakeRefs) ListRefs(_ context.Context, typeID, gammeID int, marque string) ([]string, error) {
	c := model.Combination{TypeID: typeID, GammeID: gammeID, Marque: marque}
	if f.failOn[c] {
		return nil, errors.New("connection reset")
	}
	return f.refs[c], nil
}

type fakeStore struct {
	mu     sync.Mutex
	audits map[model.Combination]model.PrefixAudit
}

func newFakeStore() *fakeStore {
	return &fakeStore{audits: make(map[model.Combination]model.PrefixAudit)}
}

func (f *fakeStore) Upsert(_ context.Context, a model.PrefixAudit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits[a.Combination] = a
	return nil
}

var (
	comboAudi  = model.Combination{TypeID: 1, GammeID: 2, Marque: "AUDI"}
	comboEmpty = model.Combination{TypeID: 1, GammeID: 3, Marque: "AUDI"}
	comboVW    = model.Combination{TypeID: 2, GammeID: 2, Marque: "VW"}
	comboPSA   = model.Combination{TypeID: 3, GammeID: 7, Marque: "PEUGEOT"}
)

func audiRefs() []string {
	var refs []string
	for i := 0; i < 5; i++ {
		refs = append(refs, fmt.Sprintf("8E0%07d", i))
	}
	return append(refs, "7701469442")
}

func newTestService(t *testing.T, cfg Config, combos []model.Combination, store Store) *Service {
	t.Helper()
	if cfg.CheckpointFile == "" {
		cfg.CheckpointFile = filepath.Join(t.TempDir(), "checkpoint.json")
	}

	refs := fakeRefs{
		refs: map[model.Combination][]string{
			comboAudi: audiRefs(),
			comboPSA:  {"9676543280", "1610000000"},
		},
		failOn: map[model.Combination]bool{comboVW: true},
	}

	pipeline := oemref.NewPipeline(nil, oemref.DefaultConfig())
	return NewService(cfg, fakeCombos{combos: combos}, refs, store, pipeline, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRun_AuditsEveryCombination(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, Config{Workers: 3}, []model.Combination{comboAudi, comboEmpty, comboVW, comboPSA}, store)

	require.NoError(t, svc.Run(context.Background()))

	require.Len(t, store.audits, 2)

	audi := store.audits[comboAudi]
	assert.True(t, audi.FilterApplied)
	assert.Equal(t, []string{"8E0"}, audi.Prefixes)
	assert.Equal(t, 6, audi.TotalRefs)
	assert.Equal(t, 5, audi.FilteredCount)
	assert.Equal(t, 17, audi.ReductionPercent)
	assert.False(t, audi.AuditedAt.IsZero())

	psa := store.audits[comboPSA]
	assert.False(t, psa.FilterApplied)
	assert.Empty(t, psa.Prefixes)
	assert.Equal(t, 2, psa.FilteredCount)

	snapshot := svc.Progress().GetSnapshot()
	assert.Equal(t, "completed", snapshot.Status)
	assert.Equal(t, 4, snapshot.Processed)
	assert.Equal(t, 2, snapshot.Stored)
	assert.Equal(t, 1, snapshot.Skipped)
	assert.Equal(t, 1, snapshot.Failed)
	assert.Equal(t, "connection reset", snapshot.LastError)
	assert.Equal(t, 1, snapshot.FilterApplied)
	assert.Equal(t, 1, snapshot.NoDominant)
}

func TestRun_DryRunDoesNotStore(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, Config{Workers: 1, DryRun: true}, []model.Combination{comboAudi, comboPSA}, store)

	require.NoError(t, svc.Run(context.Background()))

	assert.Empty(t, store.audits)
	assert.Equal(t, 2, svc.Progress().GetSnapshot().Stored)
}

func TestRun_ResumesAfterCheckpoint(t *testing.T) {
	file := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, NewCheckpointManager(file).Save(comboEmpty, NewProgressTracker(0)))

	store := newFakeStore()
	combos := []model.Combination{comboAudi, comboEmpty, comboPSA}
	svc := newTestService(t, Config{Workers: 2, CheckpointFile: file}, combos, store)

	require.NoError(t, svc.Run(context.Background()))

	require.Len(t, store.audits, 1)
	assert.Contains(t, store.audits, comboPSA)
	assert.Equal(t, 1, svc.Progress().GetSnapshot().Total)
	assert.False(t, NewCheckpointManager(file).Exists(), "completed run removes the checkpoint")
}

func TestRun_UnknownCheckpointStartsFresh(t *testing.T) {
	file := filepath.Join(t.TempDir(), "checkpoint.json")
	gone := model.Combination{TypeID: 99, GammeID: 99, Marque: "LANCIA"}
	require.NoError(t, NewCheckpointManager(file).Save(gone, NewProgressTracker(0)))

	store := newFakeStore()
	svc := newTestService(t, Config{Workers: 1, CheckpointFile: file}, []model.Combination{comboAudi, comboPSA}, store)

	require.NoError(t, svc.Run(context.Background()))
	assert.Len(t, store.audits, 2)
}

func TestRun_CombinationSourceError(t *testing.T) {
	svc := NewService(
		Config{Workers: 1, CheckpointFile: filepath.Join(t.TempDir(), "c.json")},
		fakeCombos{err: errors.New("boom")},
		fakeRefs{},
		newFakeStore(),
		oemref.NewPipeline(nil, oemref.DefaultConfig()),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load combinations")
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(Config{}, fakeCombos{}, fakeRefs{}, newFakeStore(), oemref.NewPipeline(nil, oemref.DefaultConfig()), slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Equal(t, 1, svc.config.Workers)
	assert.Equal(t, DefaultConfig().CheckpointEvery, svc.config.CheckpointEvery)
}

// cancellingRefs cancels the run while serving its cancelAt-th call
type cancellingRefs struct {
	calls    atomic.Int32
	cancelAt int32
	cancel   context.CancelFunc
}

func (c *cancellingRefs) ListRefs(context.Context, int, int, string) ([]string, error) {
	if c.calls.Add(1) == c.cancelAt {
		c.cancel()
	}
	return audiRefs(), nil
}

func TestRun_CancelFinishesQueuedAndCheckpoints(t *testing.T) {
	combos := make([]model.Combination, 200)
	for i := range combos {
		combos[i] = model.Combination{TypeID: i, GammeID: 402, Marque: "AUDI"}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	file := filepath.Join(t.TempDir(), "checkpoint.json")
	store := newFakeStore()
	refs := &cancellingRefs{cancelAt: 3, cancel: cancel}
	svc := NewService(
		Config{Workers: 2, CheckpointFile: file},
		fakeCombos{combos: combos},
		refs,
		store,
		oemref.NewPipeline(nil, oemref.DefaultConfig()),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	err := svc.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	snapshot := svc.Progress().GetSnapshot()
	assert.Equal(t, "cancelled", snapshot.Status)
	assert.Less(t, snapshot.Processed, len(combos))
	assert.Equal(t, snapshot.Processed, snapshot.Stored)
	assert.Len(t, store.audits, snapshot.Processed)

	// combinations are queued in order, so the processed ones are a prefix
	for _, c := range combos[:snapshot.Processed] {
		assert.Contains(t, store.audits, c)
	}

	cp, err := NewCheckpointManager(file).Load()
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, combos[snapshot.Processed-1], cp.Last)
	assert.Equal(t, snapshot.Processed, cp.Stats.Stored)

	resumed := newFakeStore()
	again := NewService(
		Config{Workers: 2, CheckpointFile: file},
		fakeCombos{combos: combos},
		fakeRefs{refs: map[model.Combination][]string{}},
		resumed,
		oemref.NewPipeline(nil, oemref.DefaultConfig()),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	require.NoError(t, again.Run(context.Background()))
	assert.Equal(t, len(combos)-snapshot.Processed, again.Progress().GetSnapshot().Total)
}

func TestCompletion_Watermark(t *testing.T) {
	c := newCompletion(4)
	assert.Equal(t, 0, c.watermark())

	c.markDone(1)
	c.markDone(2)
	assert.Equal(t, 0, c.watermark(), "index 0 still in flight")

	c.markDone(0)
	assert.Equal(t, 3, c.watermark())

	c.markDone(3)
	assert.Equal(t, 4, c.watermark())
}
