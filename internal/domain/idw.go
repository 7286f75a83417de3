package domain

import (
	"errors"
	"fmt"
	"math"
)

// DefaultPower is the IDW distance exponent used when none is configured.
const DefaultPower = 4.5

var (
	// ErrNoObservations is returned when there is nothing to interpolate from.
	ErrNoObservations = errors.New("no observations")

	// ErrNoValues is returned when every observation is null in the column.
	ErrNoValues = errors.New("no non-null values in column")

	// ErrInvalidPower is returned for a negative, NaN or infinite power.
	ErrInvalidPower = errors.New("invalid IDW power")
)

// sample is an observation reduced to its position and one column value.
type sample struct {
	x, y, v float64
}

// prepareSamples validates the inputs shared by Estimate and SampleGrid and
// extracts the non-null column values.
func prepareSamples(observations []ObservationRecord, power float64, column Column) ([]sample, error) {
	if _, err := ParseColumn(string(column)); err != nil {
		return nil, err
	}
	if math.IsNaN(power) || math.IsInf(power, 0) || power < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPower, power)
	}
	if len(observations) == 0 {
		return nil, ErrNoObservations
	}

	samples := make([]sample, 0, len(observations))
	for _, o := range observations {
		v, ok := o.Value(column)
		if !ok {
			continue
		}
		samples = append(samples, sample{x: o.Geometry.Lon, y: o.Geometry.Lat, v: v})
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w %q", ErrNoValues, column)
	}
	return samples, nil
}

// Estimate interpolates column at (x, y), x being longitude and y latitude,
// by inverse distance weighting over planar degree coordinates.
//
// Null values are excluded first. When the query point coincides with one or
// more stations, the result is the plain mean of those stations' values, so a
// unique coincident station yields its own value exactly. Otherwise each value
// is weighted by 1/d^power.
//
// On error the returned estimate is NaN.
func Estimate(observations []ObservationRecord, x, y, power float64, column Column) (float64, error) {
	samples, err := prepareSamples(observations, power, column)
	if err != nil {
		return math.NaN(), err
	}
	return estimateAt(samples, x, y, power), nil
}

// estimateAt expects a non-empty samples slice.
func estimateAt(samples []sample, x, y, power float64) float64 {
	var exactSum float64
	var exactN int
	for _, s := range samples {
		if s.x == x && s.y == y {
			exactSum += s.v
			exactN++
		}
	}
	if exactN > 0 {
		return exactSum / float64(exactN)
	}

	var num, den float64
	var infSum float64
	var infN int
	nearest := math.Inf(1)
	for _, s := range samples {
		d := math.Hypot(s.x-x, s.y-y)
		nearest = math.Min(nearest, d)
		w := 1 / math.Pow(d, power)
		if math.IsInf(w, 1) {
			infSum += s.v
			infN++
			continue
		}
		num += w * s.v
		den += w
	}

	// Tiny distances overflow the weight and huge ones underflow it; fall back
	// to the mean of the dominating stations.
	if infN > 0 {
		return infSum / float64(infN)
	}
	if den == 0 {
		var sum float64
		var n int
		for _, s := range samples {
			if math.Hypot(s.x-x, s.y-y) == nearest {
				sum += s.v
				n++
			}
		}
		return sum / float64(n)
	}
	return num / den
}
