package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Europe/Amsterdam for page headers
)

// measurementCells is the cell count of a measurement row:
// name, weather_type, temp, rel_humid, wind_dir, wind_speed, sight, atm_pressure.
const measurementCells = 8

var (
	// ErrMalformedMeasurement is returned for a measurement row that cannot be used.
	ErrMalformedMeasurement = errors.New("malformed measurement row")

	// observationHeaderRe matches the measurement page header, e.g.
	// "Waarnemingen 19 oktober 2026 14:00 uur".
	observationHeaderRe = regexp.MustCompile(`(\d{1,2})\s+(\p{L}+)\s+(\d{4})\s+(\d{1,2}):(\d{2})`)

	dutchMonths = map[string]time.Month{
		"januari":   time.January,
		"februari":  time.February,
		"maart":     time.March,
		"april":     time.April,
		"mei":       time.May,
		"juni":      time.June,
		"juli":      time.July,
		"augustus":  time.August,
		"september": time.September,
		"oktober":   time.October,
		"november":  time.November,
		"december":  time.December,
	}
)

// ParseObservationTime extracts the observation instant from a measurement
// page header with a Dutch month name. The time is interpreted in loc.
func ParseObservationTime(header string, loc *time.Location) (time.Time, error) {
	m := observationHeaderRe.FindStringSubmatch(header)
	if m == nil {
		return time.Time{}, fmt.Errorf("no observation time in header %q", header)
	}
	month, ok := dutchMonths[strings.ToLower(m[2])]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month %q in header %q", m[2], header)
	}
	day, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	mins, _ := strconv.Atoi(m[5])
	if day < 1 || day > 31 || hour > 23 || mins > 59 {
		return time.Time{}, fmt.Errorf("observation time out of range in header %q", header)
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(year, month, day, hour, mins, 0, 0, loc), nil
}

// ParseMeasurementRow converts the eight text cells of a measurement row.
// Empty cells become null. A numeric cell that is not a number also becomes
// null and is reported in the returned warnings, as do NaN and infinities.
func ParseMeasurementRow(observedAt time.Time, cells []string) (MeasurementRecord, []string, error) {
	if len(cells) != measurementCells {
		return MeasurementRecord{}, nil, fmt.Errorf("%w: %d cells, want %d", ErrMalformedMeasurement, len(cells), measurementCells)
	}
	name := strings.TrimSpace(cells[0])
	if name == "" {
		return MeasurementRecord{}, nil, fmt.Errorf("%w: empty station name", ErrMalformedMeasurement)
	}

	var warnings []string
	number := func(col Column, cell string) *float64 {
		v, warn := parseNullableNumber(cell)
		if warn != "" {
			warnings = append(warnings, fmt.Sprintf("%s: %s", col, warn))
		}
		return v
	}

	rec := MeasurementRecord{
		Timestamp:   observedAt,
		StationName: name,
		WeatherType: parseNullableText(cells[1]),
		Temp:        number(ColumnTemp, cells[2]),
		RelHumid:    number(ColumnRelHumid, cells[3]),
		WindDir:     parseNullableText(cells[4]),
		WindSpeed:   number(ColumnWindSpeed, cells[5]),
		Sight:       number(ColumnSight, cells[6]),
		AtmPressure: number(ColumnAtmPressure, cells[7]),
	}
	return rec, warnings, nil
}

// Cells renders the record back into the eight text cells of a measurement
// row, nulls as empty cells.
func (m MeasurementRecord) Cells() []string {
	text := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	num := func(v *float64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatFloat(*v, 'f', -1, 64)
	}
	return []string{
		m.StationName, text(m.WeatherType), num(m.Temp), num(m.RelHumid),
		text(m.WindDir), num(m.WindSpeed), num(m.Sight), num(m.AtmPressure),
	}
}

// ParseMeasurementTable parses rows that share one observation instant.
// Malformed rows are skipped and reported in the warnings together with
// per-field coercion problems.
func ParseMeasurementTable(observedAt time.Time, rows [][]string) ([]MeasurementRecord, []string) {
	var warnings []string
	out := make([]MeasurementRecord, 0, len(rows))
	for i, cells := range rows {
		rec, fieldWarnings, err := ParseMeasurementRow(observedAt, cells)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		for _, w := range fieldWarnings {
			warnings = append(warnings, fmt.Sprintf("row %d (%s): %s", i+1, rec.StationName, w))
		}
		out = append(out, rec)
	}
	return out, warnings
}

// ParseRawMeasurement decodes a source-topic message into a MeasurementRecord.
// The observation instant is taken from the payload's RFC 3339 time, then from
// its Dutch page header (Europe/Amsterdam), then from the message timestamp.
func ParseRawMeasurement(raw RawEvent) (MeasurementRecord, []string, error) {
	var msg RawMeasurementMessage
	if err := json.Unmarshal(raw.Value, &msg); err != nil {
		return MeasurementRecord{}, nil, fmt.Errorf("parse raw measurement: %w", err)
	}

	observedAt, err := resolveObservedAt(msg, raw.Timestamp)
	if err != nil {
		return MeasurementRecord{}, nil, fmt.Errorf("parse raw measurement: %w", err)
	}
	return ParseMeasurementRow(observedAt, msg.Cells)
}

func resolveObservedAt(msg RawMeasurementMessage, fallback time.Time) (time.Time, error) {
	if msg.ObservedAt != "" {
		t, err := time.Parse(time.RFC3339, msg.ObservedAt)
		if err != nil {
			return time.Time{}, fmt.Errorf("observation time: %w", err)
		}
		return t, nil
	}
	if msg.Header != "" {
		return ParseObservationTime(msg.Header, amsterdam)
	}
	if fallback.IsZero() {
		return time.Time{}, errors.New("observation time missing")
	}
	return fallback, nil
}

// amsterdam is the zone of KNMI page headers, falling back to a fixed CET offset
// when the zone database is unavailable.
var amsterdam = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		return time.FixedZone("CET", 3600)
	}
	return loc
}()

func parseNullableText(cell string) *string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	return &cell
}

// parseNullableNumber returns nil for empty cells and for cells that are not
// numbers; the latter also return a warning.
func parseNullableNumber(cell string) (*float64, string) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, ""
	}
	v, err := parseNumber(cell)
	if err != nil {
		return nil, numberProblem(cell, err)
	}
	return &v, ""
}
