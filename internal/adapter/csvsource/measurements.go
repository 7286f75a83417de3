package csvsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/couchcryptid/station-observation-etl/internal/domain"
)

// MeasurementHeader is the column layout of a measurement CSV export.
var MeasurementHeader = []string{"t", "name", "weather_type", "temp", "rel_humid", "wind_dir", "wind_speed", "sight", "atm_pressure"}

// ErrMixedObservationTimes is returned when a measurement table holds more than
// one observation instant.
var ErrMixedObservationTimes = errors.New("measurement table mixes observation times")

// ReadMeasurements decodes a measurement CSV export: a header row followed by
// rows of an RFC 3339 time and the eight measurement cells. Unusable rows are
// skipped and reported as warnings. Every row must carry the same time.
func ReadMeasurements(r io.Reader) ([]domain.MeasurementRecord, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, errors.New("measurement table is empty")
	}
	if !isMeasurementHeader(records[0]) {
		return nil, nil, fmt.Errorf("unexpected measurement header %v", records[0])
	}

	var (
		out        []domain.MeasurementRecord
		warnings   []string
		observedAt time.Time
	)
	for i, rec := range records[1:] {
		line := i + 2
		if len(rec) != len(MeasurementHeader) {
			warnings = append(warnings, fmt.Sprintf("line %d: %d cells, want %d", line, len(rec), len(MeasurementHeader)))
			continue
		}
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(rec[0]))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("line %d: observation time: %v", line, err))
			continue
		}
		if observedAt.IsZero() {
			observedAt = t
		} else if !t.Equal(observedAt) {
			return nil, warnings, fmt.Errorf("%w: line %d has %s, table has %s",
				ErrMixedObservationTimes, line, t.Format(time.RFC3339), observedAt.Format(time.RFC3339))
		}

		m, fieldWarnings, err := domain.ParseMeasurementRow(t, rec[1:])
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		for _, w := range fieldWarnings {
			warnings = append(warnings, fmt.Sprintf("line %d (%s): %s", line, m.StationName, w))
		}
		out = append(out, m)
	}
	return out, warnings, nil
}

func isMeasurementHeader(rec []string) bool {
	if len(rec) != len(MeasurementHeader) {
		return false
	}
	for i, h := range MeasurementHeader {
		if strings.TrimSpace(strings.ToLower(rec[i])) != h {
			return false
		}
	}
	return true
}
