package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RawCatalogRow is one data row of the station catalog before coordinate
// conversion. Empty cells are kept as empty strings.
type RawCatalogRow struct {
	ID        string
	Name      string
	Type      string
	Lat       string
	Lon       string
	Elevation string
}

// StationRecord is a resolved catalog entry with decimal-degree coordinates.
type StationRecord struct {
	ID        string   `json:"id" validate:"required"`
	Name      string   `json:"name" validate:"required"`
	Type      string   `json:"type,omitempty"`
	Lat       float64  `json:"lat" validate:"gte=-90,lte=90"`
	Lon       float64  `json:"lon" validate:"gte=-180,lte=180"`
	Elevation *float64 `json:"elevation,omitempty"`
}

// Column names a numeric measurement field usable for interpolation.
type Column string

const (
	ColumnTemp        Column = "temp"
	ColumnRelHumid    Column = "rel_humid"
	ColumnWindSpeed   Column = "wind_speed"
	ColumnSight       Column = "sight"
	ColumnAtmPressure Column = "atm_pressure"
)

// NumericColumns lists every column accepted by [Estimate] and [SampleGrid].
var NumericColumns = []Column{ColumnTemp, ColumnRelHumid, ColumnWindSpeed, ColumnSight, ColumnAtmPressure}

// ErrUnknownColumn is returned for a column that is not numeric.
var ErrUnknownColumn = errors.New("unknown measurement column")

// ParseColumn validates a column name.
func ParseColumn(s string) (Column, error) {
	for _, c := range NumericColumns {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownColumn, s)
}

// MeasurementRecord is one row of the live measurement table. Stations are
// identified by name only, spelled the way the measurement table spells them.
type MeasurementRecord struct {
	Timestamp   time.Time `json:"t"`
	StationName string    `json:"name"`
	WeatherType *string   `json:"weather_type,omitempty"`
	Temp        *float64  `json:"temp,omitempty"`
	RelHumid    *float64  `json:"rel_humid,omitempty"`
	WindDir     *string   `json:"wind_dir,omitempty"`
	WindSpeed   *float64  `json:"wind_speed,omitempty"`
	Sight       *float64  `json:"sight,omitempty"`
	AtmPressure *float64  `json:"atm_pressure,omitempty"`
}

// Value returns the column's value and whether it is non-null.
func (m MeasurementRecord) Value(c Column) (float64, bool) {
	var v *float64
	switch c {
	case ColumnTemp:
		v = m.Temp
	case ColumnRelHumid:
		v = m.RelHumid
	case ColumnWindSpeed:
		v = m.WindSpeed
	case ColumnSight:
		v = m.Sight
	case ColumnAtmPressure:
		v = m.AtmPressure
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Point is a planar position in decimal degrees, x = longitude, y = latitude.
// It marshals as a GeoJSON Point.
type Point struct {
	Lon float64
	Lat float64
}

type geoJSONPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(geoJSONPoint{Type: "Point", Coordinates: [2]float64{p.Lon, p.Lat}})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var g geoJSONPoint
	if err := json.Unmarshal(data, &g); err != nil {
		return err
	}
	if g.Type != "Point" {
		return fmt.Errorf("geometry type %q is not a Point", g.Type)
	}
	p.Lon, p.Lat = g.Coordinates[0], g.Coordinates[1]
	return nil
}

// ObservationRecord is a measurement merged with the identity and location of
// the catalog station it was matched to.
type ObservationRecord struct {
	MeasurementRecord
	StationID   string    `json:"station_id"`
	MatchedName string    `json:"matched_name"`
	MatchScore  float64   `json:"match_score"`
	Geometry    Point     `json:"geometry"`
	ProcessedAt time.Time `json:"processed_at"`
}
