package domain

import (
	"fmt"
	"time"
)

// StationResolver reconciles a measurement-table station name with a catalog
// station. *Matcher implements it; the pipeline wraps it in a cache.
type StationResolver interface {
	Match(name string) (MatchResult, error)
}

// NewObservation merges a measurement with the catalog station it matched.
func NewObservation(m MeasurementRecord, match MatchResult) ObservationRecord {
	return ObservationRecord{
		MeasurementRecord: m,
		StationID:         match.Station.ID,
		MatchedName:       match.Station.Name,
		MatchScore:        match.Score,
		Geometry:          Point{Lon: match.Station.Lon, Lat: match.Station.Lat},
		ProcessedAt:       clock.Now().UTC(),
	}
}

// MergeObservations matches every measurement against the catalog and returns
// one observation per measurement, in input order. No measurement is dropped:
// each receives the best available station however weak the match.
func MergeObservations(measurements []MeasurementRecord, resolver StationResolver) (*ObservationTable, error) {
	records := make([]ObservationRecord, 0, len(measurements))
	for _, m := range measurements {
		match, err := resolver.Match(m.StationName)
		if err != nil {
			return nil, fmt.Errorf("match station %q: %w", m.StationName, err)
		}
		records = append(records, NewObservation(m, match))
	}
	return NewObservationTable(records), nil
}

// ObservationTable is the merged measurement table. Two measurements may match
// the same station; both rows are kept and the id is listed by Duplicates.
type ObservationTable struct {
	records []ObservationRecord
}

// NewObservationTable wraps records without copying them.
func NewObservationTable(records []ObservationRecord) *ObservationTable {
	return &ObservationTable{records: records}
}

// Records returns a copy of the observations in measurement order.
func (t *ObservationTable) Records() []ObservationRecord {
	out := make([]ObservationRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Len returns the number of observations, duplicates included.
func (t *ObservationTable) Len() int {
	return len(t.records)
}

// ByStation returns every observation matched to the station id.
func (t *ObservationTable) ByStation(id string) []ObservationRecord {
	var out []ObservationRecord
	for _, r := range t.records {
		if r.StationID == id {
			out = append(out, r)
		}
	}
	return out
}

// StationIDs returns the distinct station ids in first-seen order.
func (t *ObservationTable) StationIDs() []string {
	seen := make(map[string]bool, len(t.records))
	var out []string
	for _, r := range t.records {
		if !seen[r.StationID] {
			seen[r.StationID] = true
			out = append(out, r.StationID)
		}
	}
	return out
}

// Duplicates returns the station ids matched by more than one measurement,
// in first-seen order.
func (t *ObservationTable) Duplicates() []string {
	counts := make(map[string]int, len(t.records))
	for _, r := range t.records {
		counts[r.StationID]++
	}
	var out []string
	for _, id := range t.StationIDs() {
		if counts[id] > 1 {
			out = append(out, id)
		}
	}
	return out
}

// DropNull returns a table without the observations that are null in any of
// cols.
func (t *ObservationTable) DropNull(cols ...Column) *ObservationTable {
	out := make([]ObservationRecord, 0, len(t.records))
	for _, r := range t.records {
		keep := true
		for _, c := range cols {
			if _, ok := r.Value(c); !ok {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	return NewObservationTable(out)
}

// ObservedAt returns the shared observation instant, or the zero time for an
// empty table.
func (t *ObservationTable) ObservedAt() time.Time {
	if len(t.records) == 0 {
		return time.Time{}
	}
	return t.records[0].Timestamp
}
