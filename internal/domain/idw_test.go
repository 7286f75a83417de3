package domain

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obsAt(lon, lat float64, temp *float64) ObservationRecord {
	return ObservationRecord{
		MeasurementRecord: MeasurementRecord{Temp: temp},
		Geometry:          Point{Lon: lon, Lat: lat},
	}
}

func TestEstimate_Scenarios(t *testing.T) {
	t.Run("query at a station returns its value", func(t *testing.T) {
		obs := []ObservationRecord{
			obsAt(5.00, 52.00, ptr(3.7)),
			obsAt(5.20, 52.10, ptr(10.0)),
		}

		got, err := Estimate(obs, 5.20, 52.10, 2, ColumnTemp)

		require.NoError(t, err)
		assert.Equal(t, 10.0, got)
	})

	t.Run("equidistant stations average", func(t *testing.T) {
		obs := []ObservationRecord{
			obsAt(4, 52, ptr(8.0)),
			obsAt(6, 52, ptr(12.0)),
		}

		got, err := Estimate(obs, 5, 52, 1, ColumnTemp)

		require.NoError(t, err)
		assert.Equal(t, 10.0, got)
	})

	t.Run("coincident stations are averaged and others ignored", func(t *testing.T) {
		obs := []ObservationRecord{
			obsAt(5, 52, ptr(8.0)),
			obsAt(5, 52, ptr(9.0)),
			obsAt(5.01, 52, ptr(100.0)),
		}

		got, err := Estimate(obs, 5, 52, DefaultPower, ColumnTemp)

		require.NoError(t, err)
		assert.Equal(t, 8.5, got)
	})

	t.Run("null at the query point is ignored", func(t *testing.T) {
		obs := []ObservationRecord{
			obsAt(5, 52, nil),
			obsAt(6, 52, ptr(4.0)),
			obsAt(7, 52, ptr(4.0)),
		}

		got, err := Estimate(obs, 5, 52, 2, ColumnTemp)

		require.NoError(t, err)
		assert.Equal(t, 4.0, got)
	})

	t.Run("nearer station dominates", func(t *testing.T) {
		obs := []ObservationRecord{
			obsAt(5.0, 52, ptr(0.0)),
			obsAt(6.0, 52, ptr(10.0)),
		}

		got, err := Estimate(obs, 5.1, 52, DefaultPower, ColumnTemp)

		require.NoError(t, err)
		assert.Less(t, got, 0.1)
		assert.Greater(t, got, 0.0)
	})

	t.Run("zero power is the plain mean", func(t *testing.T) {
		obs := []ObservationRecord{
			obsAt(4, 50, ptr(1.0)),
			obsAt(6, 51, ptr(2.0)),
			obsAt(7, 53, ptr(6.0)),
		}

		got, err := Estimate(obs, 5, 52, 0, ColumnTemp)

		require.NoError(t, err)
		assert.InDelta(t, 3.0, got, 1e-12)
	})
}

func TestEstimate_ExtremeDistances(t *testing.T) {
	t.Run("weight overflow keeps the nearest station", func(t *testing.T) {
		obs := []ObservationRecord{
			obsAt(1e-100, 0, ptr(7.0)),
			obsAt(1, 0, ptr(100.0)),
		}

		got, err := Estimate(obs, 0, 0, DefaultPower, ColumnTemp)

		require.NoError(t, err)
		assert.Equal(t, 7.0, got)
	})

	t.Run("weight underflow falls back to nearest mean", func(t *testing.T) {
		obs := []ObservationRecord{
			obsAt(1e100, 0, ptr(2.0)),
			obsAt(-1e100, 0, ptr(4.0)),
			obsAt(0, 1e101, ptr(50.0)),
		}

		got, err := Estimate(obs, 0, 0, DefaultPower, ColumnTemp)

		require.NoError(t, err)
		assert.Equal(t, 3.0, got)
	})
}

func TestEstimate_Errors(t *testing.T) {
	obs := []ObservationRecord{obsAt(5, 52, ptr(1.0))}

	tests := []struct {
		name   string
		obs    []ObservationRecord
		power  float64
		column Column
		err    error
	}{
		{"no observations", nil, 2, ColumnTemp, ErrNoObservations},
		{"all null", []ObservationRecord{obsAt(5, 52, nil), obsAt(6, 52, nil)}, 2, ColumnTemp, ErrNoValues},
		{"column has no values", obs, 2, ColumnSight, ErrNoValues},
		{"unknown column", obs, 2, Column("wind_dir"), ErrUnknownColumn},
		{"negative power", obs, -1, ColumnTemp, ErrInvalidPower},
		{"nan power", obs, math.NaN(), ColumnTemp, ErrInvalidPower},
		{"infinite power", obs, math.Inf(1), ColumnTemp, ErrInvalidPower},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Estimate(tt.obs, 5.5, 52, tt.power, tt.column)

			require.ErrorIs(t, err, tt.err)
			assert.True(t, math.IsNaN(got), "failed estimates are NaN, never zero")
		})
	}
}

func TestEstimate_WithinObservedRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(12)
		obs := make([]ObservationRecord, n)
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := range obs {
			v := rng.Float64()*40 - 10
			lo, hi = math.Min(lo, v), math.Max(hi, v)
			obs[i] = obsAt(3.3+rng.Float64()*4, 50.7+rng.Float64()*2.9, ptr(v))
		}
		x := 3.3 + rng.Float64()*4
		y := 50.7 + rng.Float64()*2.9
		power := rng.Float64() * 6

		got, err := Estimate(obs, x, y, power, ColumnTemp)

		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, lo-1e-9)
		assert.LessOrEqual(t, got, hi+1e-9)
	}
}
