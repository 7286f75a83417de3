package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/station-observation-etl/internal/domain"
	"github.com/couchcryptid/station-observation-etl/internal/pipeline"
)

type fakeFetcher struct {
	rows []domain.RawCatalogRow
	err  error
}

func (f *fakeFetcher) Fetch(context.Context) ([]domain.RawCatalogRow, error) { return f.rows, f.err }
func (f *fakeFetcher) Location() string                                      { return "memory" }

func catalogRows() []domain.RawCatalogRow {
	return []domain.RawCatalogRow{
		{ID: "235", Name: "De Kooy", Type: "AWS", Lat: "52 55", Lon: "04 47", Elevation: "1.2"},
		{ID: "280", Name: "Groningen", Type: "AWS", Lat: "53 08", Lon: "06 35", Elevation: "hoog"},
		{ID: "999", Name: "Broken", Type: "AWS", Lat: "onbekend", Lon: "05 00"},
	}
}

func TestCatalogLoader_Load(t *testing.T) {
	metrics := newTestMetrics()
	tfm := pipeline.NewTransformer(slog.Default(), metrics)
	loader := pipeline.NewCatalogLoader(&fakeFetcher{rows: catalogRows()}, tfm, domain.DefaultAliases(), 10, slog.Default(), metrics)

	require.NoError(t, loader.Load(context.Background()))

	require.NoError(t, tfm.CheckReadiness(context.Background()))
	require.NotNil(t, tfm.Catalog())
	assert.Equal(t, 2, tfm.Catalog().Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.CatalogStations))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CatalogWarnings.WithLabelValues("dropped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CatalogWarnings.WithLabelValues("kept")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CatalogRefreshes.WithLabelValues("success")))

	got, err := tfm.Transform(context.Background(), rawMeasurement(t, "Eelde", "", "10.9", "", "", "", "", ""))
	require.NoError(t, err)
	assert.Equal(t, "280", got.StationID)
	assert.Equal(t, "Groningen", got.MatchedName)
}

func TestCatalogLoader_FailureKeepsPreviousCatalog(t *testing.T) {
	metrics := newTestMetrics()
	tfm := pipeline.NewTransformer(slog.Default(), metrics)
	fetcher := &fakeFetcher{rows: catalogRows()}
	loader := pipeline.NewCatalogLoader(fetcher, tfm, nil, 10, slog.Default(), metrics)
	require.NoError(t, loader.Load(context.Background()))
	previous := tfm.Catalog()

	fetcher.err = errors.New("source offline")
	require.Error(t, loader.Load(context.Background()))

	assert.Same(t, previous, tfm.Catalog())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CatalogRefreshes.WithLabelValues("error")))
}

func TestCatalogLoader_NoUsableRows(t *testing.T) {
	metrics := newTestMetrics()
	tfm := pipeline.NewTransformer(slog.Default(), metrics)
	fetcher := &fakeFetcher{rows: []domain.RawCatalogRow{{ID: "1", Name: "x", Lat: "?", Lon: "?"}}}
	loader := pipeline.NewCatalogLoader(fetcher, tfm, nil, 10, slog.Default(), metrics)

	err := loader.Load(context.Background())

	require.ErrorIs(t, err, domain.ErrEmptyCatalog)
	assert.Nil(t, tfm.Catalog())
}

func TestCatalogLoader_ReloadSwapsMatcher(t *testing.T) {
	metrics := newTestMetrics()
	tfm := pipeline.NewTransformer(slog.Default(), metrics)
	fetcher := &fakeFetcher{rows: catalogRows()}
	loader := pipeline.NewCatalogLoader(fetcher, tfm, nil, 10, slog.Default(), metrics)
	require.NoError(t, loader.Load(context.Background()))

	before, err := tfm.Transform(context.Background(), rawMeasurement(t, "Twente", "", "12.4", "", "", "", "", ""))
	require.NoError(t, err)

	fetcher.rows = append(fetcher.rows, domain.RawCatalogRow{ID: "290", Name: "Twenthe", Lat: "52 16", Lon: "06 54"})
	require.NoError(t, loader.Load(context.Background()))

	after, err := tfm.Transform(context.Background(), rawMeasurement(t, "Twente", "", "12.4", "", "", "", "", ""))
	require.NoError(t, err)

	assert.NotEqual(t, "290", before.StationID)
	assert.Equal(t, "290", after.StationID, "cached matches do not survive a catalog refresh")
}
