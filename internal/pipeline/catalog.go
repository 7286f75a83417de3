package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/station-observation-etl/internal/domain"
	"github.com/couchcryptid/station-observation-etl/internal/observability"
	"github.com/couchcryptid/station-observation-etl/internal/resolver"
)

// CatalogFetcher supplies raw catalog rows.
type CatalogFetcher interface {
	Fetch(ctx context.Context) ([]domain.RawCatalogRow, error)
	Location() string
}

// ResolverSetter receives the resolver built for each freshly loaded catalog.
type ResolverSetter interface {
	SetResolver(resolver domain.StationResolver, catalog *domain.StationCatalog)
}

// CatalogLoader builds the station catalog from its source and installs a
// cached matcher over it.
type CatalogLoader struct {
	source    CatalogFetcher
	target    ResolverSetter
	aliases   domain.AliasTable
	opts      []domain.MatcherOption
	cacheSize int
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewCatalogLoader creates a loader. opts are passed to every matcher it builds.
func NewCatalogLoader(
	source CatalogFetcher,
	target ResolverSetter,
	aliases domain.AliasTable,
	cacheSize int,
	logger *slog.Logger,
	metrics *observability.Metrics,
	opts ...domain.MatcherOption,
) *CatalogLoader {
	return &CatalogLoader{
		source:    source,
		target:    target,
		aliases:   aliases,
		opts:      opts,
		cacheSize: cacheSize,
		logger:    logger,
		metrics:   metrics,
	}
}

// Load fetches and builds the catalog, then swaps it in. On any failure the
// previously installed catalog stays active.
func (l *CatalogLoader) Load(ctx context.Context) error {
	catalog, err := l.build(ctx)
	if err != nil {
		l.metrics.CatalogRefreshes.WithLabelValues("error").Inc()
		return err
	}

	matcher := domain.NewMatcher(catalog, l.aliases, l.opts...)
	l.target.SetResolver(resolver.NewCached(matcher, l.cacheSize, l.metrics), catalog)

	l.metrics.CatalogRefreshes.WithLabelValues("success").Inc()
	l.metrics.CatalogStations.Set(float64(catalog.Len()))
	l.logger.Info("station catalog loaded",
		"source", l.source.Location(),
		"stations", catalog.Len(),
		"aliases", len(l.aliases),
	)
	return nil
}

func (l *CatalogLoader) build(ctx context.Context) (*domain.StationCatalog, error) {
	rows, err := l.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	catalog, warnings := domain.BuildCatalog(rows)
	for _, w := range warnings {
		action := "kept"
		if w.Dropped {
			action = "dropped"
		}
		l.metrics.CatalogWarnings.WithLabelValues(action).Inc()
		l.logger.Warn("station catalog data quality",
			"row", w.Row,
			"station_id", w.StationID,
			"reason", w.Reason,
			"action", action,
		)
	}

	if catalog.Len() == 0 {
		return nil, fmt.Errorf("%w: %d rows from %s, none usable", domain.ErrEmptyCatalog, len(rows), l.source.Location())
	}
	return catalog, nil
}
