package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterCatalogRows(t *testing.T) {
	rows := [][]string{
		{"KNMI stationslijst"},
		{"STN", "NAAM", "TYPE", "LAT", "LON", "HOOGTE"},
		{" 235 ", "De Kooy", "AWS", "52 55", "04 47", "1.2"},
		{"", "", "", "", ""},
		{"260", "De Bilt", "AWS", "52 06", "05 11", "1.9"},
		{"Bron: KNMI", "2026"},
	}

	result := FilterCatalogRows(rows)

	require.Len(t, result, 2)
	assert.Equal(t, RawCatalogRow{ID: "235", Name: "De Kooy", Type: "AWS", Lat: "52 55", Lon: "04 47", Elevation: "1.2"}, result[0])
	assert.Equal(t, "260", result[1].ID)
}

func TestBuildCatalog(t *testing.T) {
	t.Run("converts coordinates", func(t *testing.T) {
		rows := []RawCatalogRow{
			{ID: "235", Name: "De Kooy", Type: "AWS", Lat: "52 55", Lon: "04 47", Elevation: "1.2"},
			{ID: "380", Name: "Maastricht", Type: "AWS", Lat: "50°55'", Lon: "05°47'", Elevation: ""},
		}

		catalog, warnings := BuildCatalog(rows)

		assert.Empty(t, warnings)
		require.Equal(t, 2, catalog.Len())

		kooy, ok := catalog.Lookup("235")
		require.True(t, ok)
		assert.InDelta(t, 52+55.0/60, kooy.Lat, 1e-12)
		assert.InDelta(t, 4+47.0/60, kooy.Lon, 1e-12)
		require.NotNil(t, kooy.Elevation)
		assert.Equal(t, 1.2, *kooy.Elevation)

		maastricht, ok := catalog.Lookup("380")
		require.True(t, ok)
		assert.Nil(t, maastricht.Elevation)
	})

	t.Run("non-finite elevation is null with a warning", func(t *testing.T) {
		rows := []RawCatalogRow{
			{ID: "235", Name: "De Kooy", Lat: "52 55", Lon: "04 47", Elevation: "NaN"},
			{ID: "260", Name: "De Bilt", Lat: "52 06", Lon: "05 11", Elevation: "inf"},
		}

		catalog, warnings := BuildCatalog(rows)

		require.Equal(t, 2, catalog.Len())
		for _, s := range catalog.Stations() {
			assert.Nil(t, s.Elevation, s.ID)
		}
		require.Len(t, warnings, 2)
		for _, w := range warnings {
			assert.False(t, w.Dropped)
			assert.Contains(t, w.Reason, "not a finite number")
		}
	})

	t.Run("takes first value of bundled coordinates", func(t *testing.T) {
		rows := []RawCatalogRow{{ID: "1", Name: "A", Lat: "52 00 05 00", Lon: "05 30 52 00"}}

		catalog, warnings := BuildCatalog(rows)

		assert.Empty(t, warnings)
		s, _ := catalog.Lookup("1")
		assert.Equal(t, 52.0, s.Lat)
		assert.Equal(t, 5.5, s.Lon)
	})

	t.Run("drops unparseable coordinates with warning", func(t *testing.T) {
		rows := []RawCatalogRow{
			{ID: "235", Name: "De Kooy", Lat: "52 55", Lon: "04 47"},
			{ID: "999", Name: "Kapot", Lat: "onbekend", Lon: "04 47"},
			{ID: "998", Name: "Half", Lat: "52 00", Lon: ""},
		}

		catalog, warnings := BuildCatalog(rows)

		assert.Equal(t, 1, catalog.Len())
		require.Len(t, warnings, 2)
		assert.Equal(t, 2, warnings[0].Row)
		assert.Equal(t, "999", warnings[0].StationID)
		assert.True(t, warnings[0].Dropped)
		assert.Contains(t, warnings[0].Reason, "latitude")
		assert.Equal(t, "998", warnings[1].StationID)
		assert.Contains(t, warnings[1].Reason, "longitude")
	})

	t.Run("keeps station with bad elevation", func(t *testing.T) {
		rows := []RawCatalogRow{{ID: "235", Name: "De Kooy", Lat: "52 55", Lon: "04 47", Elevation: "n.v.t."}}

		catalog, warnings := BuildCatalog(rows)

		assert.Equal(t, 1, catalog.Len())
		require.Len(t, warnings, 1)
		assert.False(t, warnings[0].Dropped)
		s, _ := catalog.Lookup("235")
		assert.Nil(t, s.Elevation)
	})

	t.Run("comma decimal elevation", func(t *testing.T) {
		rows := []RawCatalogRow{{ID: "235", Name: "De Kooy", Lat: "52 55", Lon: "04 47", Elevation: "-0,2"}}

		catalog, _ := BuildCatalog(rows)

		s, _ := catalog.Lookup("235")
		require.NotNil(t, s.Elevation)
		assert.Equal(t, -0.2, *s.Elevation)
	})

	t.Run("drops latitude out of range", func(t *testing.T) {
		rows := []RawCatalogRow{{ID: "1", Name: "Pool", Lat: "95 00", Lon: "04 47"}}

		catalog, warnings := BuildCatalog(rows)

		assert.Equal(t, 0, catalog.Len())
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0].Reason, "invalid station record")
	})

	t.Run("drops missing name", func(t *testing.T) {
		rows := []RawCatalogRow{{ID: "1", Name: "", Lat: "52 00", Lon: "04 47"}}

		catalog, warnings := BuildCatalog(rows)

		assert.Equal(t, 0, catalog.Len())
		assert.Len(t, warnings, 1)
	})

	t.Run("keeps first of duplicate ids", func(t *testing.T) {
		rows := []RawCatalogRow{
			{ID: "235", Name: "De Kooy", Lat: "52 55", Lon: "04 47"},
			{ID: "235", Name: "Den Helder", Lat: "52 57", Lon: "04 45"},
		}

		catalog, warnings := BuildCatalog(rows)

		assert.Equal(t, 1, catalog.Len())
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0].Reason, "duplicate")
		s, _ := catalog.Lookup("235")
		assert.Equal(t, "De Kooy", s.Name)
	})
}

func TestNewStationCatalog(t *testing.T) {
	t.Run("preserves order", func(t *testing.T) {
		catalog, err := NewStationCatalog([]StationRecord{{ID: "b", Name: "B"}, {ID: "a", Name: "A"}})
		require.NoError(t, err)

		stations := catalog.Stations()
		assert.Equal(t, "b", stations[0].ID)
		assert.Equal(t, "a", stations[1].ID)
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		_, err := NewStationCatalog([]StationRecord{{ID: "a"}, {ID: "a"}})
		require.ErrorIs(t, err, ErrDuplicateStation)
	})

	t.Run("stations returns a copy", func(t *testing.T) {
		catalog, err := NewStationCatalog([]StationRecord{{ID: "a", Name: "A"}})
		require.NoError(t, err)

		stations := catalog.Stations()
		stations[0].Name = "changed"

		s, _ := catalog.Lookup("a")
		assert.Equal(t, "A", s.Name)
	})
}
