package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"oem-seo-api/internal/model"
)

// Checkpoint is the saved state of an audit run
type Checkpoint struct {
	Last      model.Combination `json:"last"`
	StartedAt time.Time         `json:"started_at"`
	SavedAt   time.Time         `json:"saved_at"`
	Stats     struct {
		Stored  int `json:"stored"`
		Failed  int `json:"failed"`
		Skipped int `json:"skipped"`
	} `json:"stats"`
}

// CheckpointManager saves and loads the checkpoint file
type CheckpointManager struct {
	filePath string
}

func NewCheckpointManager(filePath string) *CheckpointManager {
	return &CheckpointManager{filePath: filePath}
}

// Save writes last as the most recently queued combination
func (c *CheckpointManager) Save(last model.Combination, progress *ProgressTracker) error {
	snapshot := progress.GetSnapshot()

	checkpoint := Checkpoint{
		Last:      last,
		StartedAt: snapshot.StartedAt,
		SavedAt:   time.Now(),
	}
	checkpoint.Stats.Stored = snapshot.Stored
	checkpoint.Stats.Failed = snapshot.Failed
	checkpoint.Stats.Skipped = snapshot.Skipped

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	if err := os.WriteFile(c.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}

	return nil
}

// Load returns nil, nil when no checkpoint was saved yet
func (c *CheckpointManager) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(c.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}

	return &checkpoint, nil
}

func (c *CheckpointManager) Delete() error {
	if err := os.Remove(c.filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete checkpoint file: %w", err)
	}
	return nil
}

func (c *CheckpointManager) Exists() bool {
	_, err := os.Stat(c.filePath)
	return err == nil
}
