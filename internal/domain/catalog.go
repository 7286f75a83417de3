package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// catalogCells is the cell count of a catalog data row.
const catalogCells = 6

var (
	// ErrEmptyCatalog is returned when matching against a catalog with no stations.
	ErrEmptyCatalog = errors.New("station catalog is empty")

	// ErrDuplicateStation is returned when two catalog entries share an id.
	ErrDuplicateStation = errors.New("duplicate station id")

	validate = validator.New()

	errNotFinite = errors.New("not a finite number")
)

// StationCatalog is an ordered, id-indexed set of stations. Order is the
// catalog's row order and decides match tie-breaks.
type StationCatalog struct {
	stations []StationRecord
	byID     map[string]int
}

// NewStationCatalog indexes stations by id. Ids must be unique.
func NewStationCatalog(stations []StationRecord) (*StationCatalog, error) {
	c := &StationCatalog{
		stations: make([]StationRecord, 0, len(stations)),
		byID:     make(map[string]int, len(stations)),
	}
	for _, s := range stations {
		if _, ok := c.byID[s.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStation, s.ID)
		}
		c.byID[s.ID] = len(c.stations)
		c.stations = append(c.stations, s)
	}
	return c, nil
}

// Stations returns a copy of the catalog entries in catalog order.
func (c *StationCatalog) Stations() []StationRecord {
	out := make([]StationRecord, len(c.stations))
	copy(out, c.stations)
	return out
}

// Len returns the number of stations.
func (c *StationCatalog) Len() int {
	return len(c.stations)
}

// Lookup returns the station with the given id.
func (c *StationCatalog) Lookup(id string) (StationRecord, bool) {
	i, ok := c.byID[id]
	if !ok {
		return StationRecord{}, false
	}
	return c.stations[i], true
}

// CatalogWarning reports a data-quality problem found while building the catalog.
// Dropped is true when the row was excluded from the catalog.
type CatalogWarning struct {
	Row       int
	StationID string
	Reason    string
	Dropped   bool
}

func (w CatalogWarning) String() string {
	return fmt.Sprintf("row %d (station %q): %s", w.Row, w.StationID, w.Reason)
}

// FilterCatalogRows keeps the rows that have exactly six cells, trimming each
// cell. The first such row carries the column names and is dropped.
func FilterCatalogRows(rows [][]string) []RawCatalogRow {
	out := make([]RawCatalogRow, 0, len(rows))
	headerSeen := false
	for _, cells := range rows {
		if len(cells) != catalogCells {
			continue
		}
		if !headerSeen {
			headerSeen = true
			continue
		}
		out = append(out, RawCatalogRow{
			ID:        strings.TrimSpace(cells[0]),
			Name:      strings.TrimSpace(cells[1]),
			Type:      strings.TrimSpace(cells[2]),
			Lat:       strings.TrimSpace(cells[3]),
			Lon:       strings.TrimSpace(cells[4]),
			Elevation: strings.TrimSpace(cells[5]),
		})
	}
	return out
}

// BuildCatalog converts raw catalog rows into a StationCatalog. Rows whose
// latitude or longitude cannot be parsed, that fail the coordinate range
// checks, or that repeat an earlier id are dropped with a warning; an
// unparseable elevation is kept as null with a warning. Row numbers in warnings
// are 1-based positions in rows.
func BuildCatalog(rows []RawCatalogRow) (*StationCatalog, []CatalogWarning) {
	var warnings []CatalogWarning
	c := &StationCatalog{
		stations: make([]StationRecord, 0, len(rows)),
		byID:     make(map[string]int, len(rows)),
	}

	for i, row := range rows {
		n := i + 1
		drop := func(reason string) {
			warnings = append(warnings, CatalogWarning{Row: n, StationID: row.ID, Reason: reason, Dropped: true})
		}

		lat, ok := firstDegreeMinute(row.Lat)
		if !ok {
			drop(fmt.Sprintf("no degree-minute coordinate in latitude %q", row.Lat))
			continue
		}
		lon, ok := firstDegreeMinute(row.Lon)
		if !ok {
			drop(fmt.Sprintf("no degree-minute coordinate in longitude %q", row.Lon))
			continue
		}

		rec := StationRecord{
			ID:   row.ID,
			Name: row.Name,
			Type: row.Type,
			Lat:  lat,
			Lon:  lon,
		}

		if row.Elevation != "" {
			elev, err := parseNumber(row.Elevation)
			if err != nil {
				warnings = append(warnings, CatalogWarning{
					Row: n, StationID: row.ID,
					Reason: "elevation " + numberProblem(row.Elevation, err),
				})
			} else {
				rec.Elevation = &elev
			}
		}

		if err := validate.Struct(rec); err != nil {
			drop(fmt.Sprintf("invalid station record: %v", err))
			continue
		}
		if _, dup := c.byID[rec.ID]; dup {
			drop("duplicate station id, keeping the first entry")
			continue
		}

		c.byID[rec.ID] = len(c.stations)
		c.stations = append(c.stations, rec)
	}

	return c, warnings
}

// parseNumber parses a finite decimal number, accepting a comma decimal
// separator. NaN and infinities are rejected with errNotFinite.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.Replace(s, ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

// numberProblem describes why a cell was stored as null.
func numberProblem(cell string, err error) string {
	if errors.Is(err, errNotFinite) {
		return fmt.Sprintf("%q is not a finite number, stored as null", cell)
	}
	return fmt.Sprintf("%q is not a number, stored as null", cell)
}
