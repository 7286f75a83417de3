package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/station-observation-etl/internal/domain"
	"github.com/couchcryptid/station-observation-etl/internal/observability"
)

// ErrCatalogNotLoaded is returned by Transform before the first catalog load.
var ErrCatalogNotLoaded = errors.New("station catalog not loaded")

// StationTransformer implements Transformer: it parses a raw measurement row
// and merges it with the best-matching catalog station. The resolver is
// swapped atomically when the catalog is refreshed.
type StationTransformer struct {
	resolver atomic.Pointer[activeResolver]
	logger   *slog.Logger
	metrics  *observability.Metrics
}

type activeResolver struct {
	resolver domain.StationResolver
	catalog  *domain.StationCatalog
}

// NewTransformer creates a StationTransformer with no catalog.
func NewTransformer(logger *slog.Logger, metrics *observability.Metrics) *StationTransformer {
	return &StationTransformer{logger: logger, metrics: metrics}
}

// SetResolver installs the resolver for catalog. Rows in flight keep the
// resolver they started with.
func (t *StationTransformer) SetResolver(resolver domain.StationResolver, catalog *domain.StationCatalog) {
	t.resolver.Store(&activeResolver{resolver: resolver, catalog: catalog})
}

// Catalog returns the active catalog, or nil before the first load.
func (t *StationTransformer) Catalog() *domain.StationCatalog {
	if a := t.resolver.Load(); a != nil {
		return a.catalog
	}
	return nil
}

// CheckReadiness reports whether a catalog has been installed.
func (t *StationTransformer) CheckReadiness(_ context.Context) error {
	if t.resolver.Load() == nil {
		return ErrCatalogNotLoaded
	}
	return nil
}

func (t *StationTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.ObservationRecord, error) {
	active := t.resolver.Load()
	if active == nil {
		return domain.ObservationRecord{}, ErrCatalogNotLoaded
	}

	m, warnings, err := domain.ParseRawMeasurement(raw)
	if err != nil {
		return domain.ObservationRecord{}, err
	}
	for _, w := range warnings {
		t.logger.Warn("measurement field stored as null",
			"station_name", m.StationName,
			"detail", w,
			"offset", raw.Offset,
		)
	}

	match, err := active.resolver.Match(m.StationName)
	if err != nil {
		return domain.ObservationRecord{}, err
	}

	t.metrics.MatchScore.Observe(match.Score)
	if match.Aliased {
		t.metrics.AliasSubstitutions.Inc()
	}
	if match.Weak {
		t.metrics.WeakMatches.Inc()
		t.logger.Warn("weak station match",
			"measurement_name", match.Query,
			"catalog_name", match.Station.Name,
			"station_id", match.Station.ID,
			"score", match.Score,
		)
	}

	return domain.NewObservation(m, match), nil
}
