package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/station-observation-etl/internal/domain"
	"github.com/couchcryptid/station-observation-etl/internal/store"
)

var validate = validator.New()

type observationsResponse struct {
	ObservedAt time.Time                  `json:"observed_at"`
	Count      int                        `json:"count"`
	Duplicates []string                   `json:"duplicate_station_ids"`
	Records    []domain.ObservationRecord `json:"records"`
}

func (s *Server) handleObservations(w http.ResponseWriter, _ *http.Request) {
	snap, err := s.snapshots.Latest()
	if err != nil {
		s.writeSnapshotError(w, err)
		return
	}
	table := snap.Table()
	dups := table.Duplicates()
	if dups == nil {
		dups = []string{}
	}
	writeJSON(w, http.StatusOK, observationsResponse{
		ObservedAt: snap.ObservedAt,
		Count:      table.Len(),
		Duplicates: dups,
		Records:    table.Records(),
	})
}

// gridQuery holds the /grid request parameters after defaults are applied.
type gridQuery struct {
	Column string  `validate:"required,oneof=temp rel_humid wind_speed sight atm_pressure"`
	N      int     `validate:"gte=1,lte=500"`
	Power  float64 `validate:"gte=0,lte=20"`
	Bounds domain.BoundingBox
}

type gridResponse struct {
	domain.Grid
	ObservedAt time.Time          `json:"observed_at"`
	Bounds     domain.BoundingBox `json:"bbox"`
	Levels     []float64          `json:"levels"`
	Stations   int                `json:"stations"`
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseGridQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	snap, err := s.snapshots.Latest()
	if err != nil {
		s.writeSnapshotError(w, err)
		return
	}

	start := time.Now()
	grid, err := domain.SampleGrid(snap.Records, q.Bounds, q.N, q.Power, domain.Column(q.Column))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoValues), errors.Is(err, domain.ErrNoObservations):
			writeError(w, http.StatusUnprocessableEntity, err)
		default:
			writeError(w, http.StatusBadRequest, err)
		}
		return
	}
	s.metrics.GridDuration.Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, gridResponse{
		Grid:       grid,
		ObservedAt: snap.ObservedAt,
		Bounds:     q.Bounds,
		Levels:     grid.ContourLevels(),
		Stations:   len(snap.Table().DropNull(grid.Column).Records()),
	})
}

func (s *Server) parseGridQuery(v url.Values) (gridQuery, error) {
	q := gridQuery{
		Column: string(domain.ColumnTemp),
		N:      s.defaults.Resolution,
		Power:  s.defaults.Power,
		Bounds: s.defaults.Bounds,
	}
	if c := v.Get("column"); c != "" {
		q.Column = c
	}

	var err error
	if q.N, err = intParam(v, "n", q.N); err != nil {
		return q, err
	}
	if q.Power, err = floatParam(v, "power", q.Power); err != nil {
		return q, err
	}
	for _, edge := range []struct {
		name string
		dst  *float64
	}{
		{"minx", &q.Bounds.MinX},
		{"maxx", &q.Bounds.MaxX},
		{"miny", &q.Bounds.MinY},
		{"maxy", &q.Bounds.MaxY},
	} {
		if *edge.dst, err = floatParam(v, edge.name, *edge.dst); err != nil {
			return q, err
		}
	}

	if err := validate.Struct(q); err != nil {
		return q, fmt.Errorf("invalid grid query: %w", err)
	}
	if err := q.Bounds.Validate(); err != nil {
		return q, err
	}
	return q, nil
}

func intParam(v url.Values, name string, def int) (int, error) {
	s := v.Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parameter %s: %q is not an integer", name, s)
	}
	return n, nil
}

func floatParam(v url.Values, name string, def float64) (float64, error) {
	s := v.Get(name)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %s: %q is not a number", name, s)
	}
	return f, nil
}

func (s *Server) writeSnapshotError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNoSnapshot) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.logger.Error("read snapshot failed", "error", err)
	writeError(w, http.StatusInternalServerError, err)
}
