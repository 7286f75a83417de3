package store

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/station-observation-etl/internal/domain"
)

var (
	noon = time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)
	one  = noon.Add(time.Hour)
)

func obs(name, id string, at time.Time, temp float64) domain.ObservationRecord {
	return domain.ObservationRecord{
		MeasurementRecord: domain.MeasurementRecord{Timestamp: at, StationName: name, Temp: &temp},
		StationID:         id,
	}
}

func names(s Snapshot) []string {
	out := make([]string, len(s.Records))
	for i, r := range s.Records {
		out[i] = r.StationName
	}
	return out
}

func TestSnapshotStore_Empty(t *testing.T) {
	s := NewSnapshotStore(slog.Default())

	_, err := s.Latest()

	require.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSnapshotStore_AccumulatesSameInstant(t *testing.T) {
	s := NewSnapshotStore(slog.Default())
	ctx := context.Background()

	require.NoError(t, s.LoadBatch(ctx, []domain.ObservationRecord{obs("De Bilt", "260", noon, 12.8)}))
	require.NoError(t, s.LoadBatch(ctx, []domain.ObservationRecord{obs("Schiphol", "240", noon, 12.3)}))

	snap, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, noon, snap.ObservedAt)
	assert.Equal(t, []string{"De Bilt", "Schiphol"}, names(snap))
}

func TestSnapshotStore_NewerInstantReplaces(t *testing.T) {
	s := NewSnapshotStore(slog.Default())
	ctx := context.Background()

	require.NoError(t, s.LoadBatch(ctx, []domain.ObservationRecord{
		obs("De Bilt", "260", noon, 12.8),
		obs("Schiphol", "240", noon, 12.3),
		obs("De Bilt", "260", one, 13.1),
	}))

	snap, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, one, snap.ObservedAt)
	assert.Equal(t, []string{"De Bilt"}, names(snap))
	assert.Equal(t, 13.1, *snap.Records[0].Temp)
}

func TestSnapshotStore_OlderInstantDropped(t *testing.T) {
	s := NewSnapshotStore(slog.Default())
	ctx := context.Background()

	require.NoError(t, s.LoadBatch(ctx, []domain.ObservationRecord{obs("De Bilt", "260", one, 13.1)}))
	require.NoError(t, s.LoadBatch(ctx, []domain.ObservationRecord{obs("Schiphol", "240", noon, 12.3)}))

	snap, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, []string{"De Bilt"}, names(snap))
}

func TestSnapshotStore_RedeliveryReplacesRow(t *testing.T) {
	s := NewSnapshotStore(slog.Default())
	ctx := context.Background()

	require.NoError(t, s.LoadBatch(ctx, []domain.ObservationRecord{obs("De Bilt", "260", noon, 12.8)}))
	require.NoError(t, s.LoadBatch(ctx, []domain.ObservationRecord{obs("De Bilt", "260", noon, 12.9)}))

	snap, err := s.Latest()
	require.NoError(t, err)
	require.Len(t, snap.Records, 1)
	assert.Equal(t, 12.9, *snap.Records[0].Temp)
}

func TestSnapshotStore_KeepsDuplicateStationIDs(t *testing.T) {
	s := NewSnapshotStore(slog.Default())

	require.NoError(t, s.LoadBatch(context.Background(), []domain.ObservationRecord{
		obs("Eelde", "280", noon, 10.9),
		obs("Groningen", "280", noon, 11.0),
	}))

	snap, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, []string{"280"}, snap.Table().Duplicates())
}

func TestSnapshotStore_LatestIsACopy(t *testing.T) {
	s := NewSnapshotStore(slog.Default())
	require.NoError(t, s.LoadBatch(context.Background(), []domain.ObservationRecord{obs("De Bilt", "260", noon, 12.8)}))

	snap, err := s.Latest()
	require.NoError(t, err)
	snap.Records[0].StationName = "mutated"

	again, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, "De Bilt", again.Records[0].StationName)
}

func TestSnapshotStore_ConcurrentAccess(t *testing.T) {
	s := NewSnapshotStore(slog.Default())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.LoadBatch(ctx, []domain.ObservationRecord{obs("De Bilt", "260", noon, float64(j))})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = s.Latest()
			}
		}()
	}
	wg.Wait()

	snap, err := s.Latest()
	require.NoError(t, err)
	assert.Len(t, snap.Records, 1)
}
