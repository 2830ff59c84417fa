// Package statestore persists which phase was last applied, so restarts do
// not re-trigger redundant cover uploads. The store is an optimization, not a
// ledger: every failure mode degrades to "no prior state" and the startup
// reconciliation recomputes the truth.
package statestore

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"coverchanger/internal/phase"

	"go.uber.org/zap"
)

// Record is the persisted state document. Only Phase matters for
// correctness; the rest is kept for diagnostics.
type Record struct {
	Phase           string                    `json:"phase"`
	Timestamp       time.Time                 `json:"timestamp"`
	PlaylistID      string                    `json:"playlist_id"`
	PhaseTimes      map[phase.Phase]time.Time `json:"phase_times"`
	OverrideMode    bool                      `json:"override_mode"`
	TimeOffsetHours float64                   `json:"time_offset_hours"`
}

// Store reads and writes the state file.
type Store struct {
	path   string
	logger *zap.Logger
}

// NewStore creates a store backed by the given file path.
func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger.Named("statestore"),
	}
}

// Load reads the persisted record. A missing file, malformed content or an
// unknown phase name all yield nil, meaning no prior state.
func (s *Store) Load() *Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read state file, treating as no prior state",
				zap.String("path", s.path), zap.Error(err))
		}
		return nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("Malformed state file, treating as no prior state",
			zap.String("path", s.path), zap.Error(err))
		return nil
	}

	if _, err := phase.Parse(rec.Phase); err != nil {
		s.logger.Warn("State file has unknown phase, treating as no prior state",
			zap.String("path", s.path), zap.Error(err))
		return nil
	}

	s.logger.Info("Loaded persisted state",
		zap.String("phase", rec.Phase),
		zap.Time("set_at", rec.Timestamp))
	return &rec
}

// Save writes the record. Failures are the caller's to log; the in-memory
// phase must not be rolled back on a write error because the action already
// succeeded.
func (s *Store) Save(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	s.logger.Info("Saved state", zap.String("phase", rec.Phase))
	return nil
}
