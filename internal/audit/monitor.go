package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Monitor serves the progress of a running audit over HTTP
type Monitor struct {
	server   *http.Server
	progress *ProgressTracker
}

// NewMonitor mounts /status and /health, plus /metrics when metrics is non-nil
func NewMonitor(port int, progress *ProgressTracker, metrics http.Handler) *Monitor {
	r := chi.NewRouter()

	m := &Monitor{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		progress: progress,
	}

	r.Get("/status", m.handleStatus)
	r.Get("/health", m.handleHealth)
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	return m
}

func (m *Monitor) Handler() http.Handler {
	return m.server.Handler
}

func (m *Monitor) Start() {
	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("audit monitor error", "error", err)
		}
	}()
}

func (m *Monitor) Stop(ctx context.Context) error {
	return m.server.Shutdown(ctx)
}

func (m *Monitor) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := m.progress.GetSnapshot()

	eta := ""
	if !snapshot.ETA.IsZero() {
		eta = snapshot.ETA.Format(time.RFC3339)
	}

	response := map[string]any{
		"status":     snapshot.Status,
		"started_at": snapshot.StartedAt.Format(time.RFC3339),
		"elapsed":    snapshot.Elapsed.String(),
		"progress": map[string]any{
			"total":      snapshot.Total,
			"processed":  snapshot.Processed,
			"stored":     snapshot.Stored,
			"failed":     snapshot.Failed,
			"skipped":    snapshot.Skipped,
			"percentage": fmt.Sprintf("%.2f", snapshot.Percentage),
		},
		"prefix_stats": map[string]any{
			"filter_applied":     snapshot.FilterApplied,
			"no_dominant_prefix": snapshot.NoDominant,
			"unique_refs":        snapshot.UniqueRefs,
			"kept_refs":          snapshot.KeptRefs,
			"duplicates_removed": snapshot.Duplicates,
			"overall_reduction":  fmt.Sprintf("%.2f", snapshot.OverallReduction),
		},
		"eta": map[string]any{
			"remaining":            snapshot.Total - snapshot.Processed,
			"estimated_completion": eta,
			"time_remaining":       snapshot.Remaining.String(),
		},
		"last_error": snapshot.LastError,
		"current":    snapshot.Current,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (m *Monitor) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
