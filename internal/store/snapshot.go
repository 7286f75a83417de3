// Package store keeps the most recent merged observation table in memory so
// it can be interpolated on request.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/station-observation-etl/internal/domain"
)

// ErrNoSnapshot is returned before any observation has been loaded.
var ErrNoSnapshot = errors.New("no observation snapshot available")

// Snapshot is the observation table of one measurement instant.
type Snapshot struct {
	ObservedAt time.Time
	Records    []domain.ObservationRecord
}

// Table wraps the snapshot records for domain queries.
func (s Snapshot) Table() *domain.ObservationTable {
	return domain.NewObservationTable(s.Records)
}

// SnapshotStore is a concurrency-safe holder of the latest snapshot.
// It implements pipeline.BatchLoader.
type SnapshotStore struct {
	mu sync.RWMutex

	observedAt time.Time
	records    []domain.ObservationRecord
	byName     map[string]int // measurement name -> index in records

	logger *slog.Logger
}

// NewSnapshotStore creates an empty store.
func NewSnapshotStore(logger *slog.Logger) *SnapshotStore {
	return &SnapshotStore{byName: make(map[string]int), logger: logger}
}

// LoadBatch folds observations into the snapshot. A newer observation instant
// starts a fresh snapshot; rows of the current instant are added, replacing a
// redelivered row with the same measurement name; rows of an older instant
// are dropped.
func (s *SnapshotStore) LoadBatch(_ context.Context, records []domain.ObservationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stale int
	for _, rec := range records {
		switch {
		case rec.Timestamp.After(s.observedAt):
			s.observedAt = rec.Timestamp
			s.records = nil
			s.byName = make(map[string]int)
		case rec.Timestamp.Before(s.observedAt):
			stale++
			continue
		}

		if i, ok := s.byName[rec.StationName]; ok {
			s.records[i] = rec
			continue
		}
		s.byName[rec.StationName] = len(s.records)
		s.records = append(s.records, rec)
	}

	if stale > 0 {
		s.logger.Debug("stale observations dropped", "count", stale, "snapshot_observed_at", s.observedAt)
	}
	return nil
}

// Latest returns a copy of the current snapshot.
func (s *SnapshotStore) Latest() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return Snapshot{}, ErrNoSnapshot
	}
	out := make([]domain.ObservationRecord, len(s.records))
	copy(out, s.records)
	return Snapshot{ObservedAt: s.observedAt, Records: out}, nil
}
