package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultGridResolution is the number of nodes per axis when none is configured.
const DefaultGridResolution = 100

// ErrInvalidGrid is returned for a resolution below one or an inverted box.
var ErrInvalidGrid = errors.New("invalid grid")

// BoundingBox is a planar region in decimal degrees.
type BoundingBox struct {
	MinX float64 `json:"minx"`
	MaxX float64 `json:"maxx"`
	MinY float64 `json:"miny"`
	MaxY float64 `json:"maxy"`
}

// NetherlandsBounds covers the Dutch mainland and the Wadden islands.
var NetherlandsBounds = BoundingBox{MinX: 3.3, MaxX: 7.3, MinY: 50.7, MaxY: 53.6}

// ParseBoundingBox parses "minx,maxx,miny,maxy".
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: bounding box %q needs minx,maxx,miny,maxy", ErrInvalidGrid, s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("%w: bounding box %q: %v", ErrInvalidGrid, s, err)
		}
		v[i] = f
	}
	b := BoundingBox{MinX: v[0], MaxX: v[1], MinY: v[2], MaxY: v[3]}
	return b, b.Validate()
}

// Validate reports a box with non-finite or inverted edges.
func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.MinX, b.MaxX, b.MinY, b.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite bounding box edge", ErrInvalidGrid)
		}
	}
	if b.MinX > b.MaxX || b.MinY > b.MaxY {
		return fmt.Errorf("%w: inverted bounding box %v", ErrInvalidGrid, b)
	}
	return nil
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinX, b.MaxX, b.MinY, b.MaxY)
}

// Linspace returns n evenly spaced values from start to stop inclusive.
// The last value is exactly stop; n == 1 yields [start].
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// Grid is a sampled scalar field ready for contouring. Z is row-major with
// Z[i][j] the estimate at (X[j], Y[i]).
type Grid struct {
	Column Column      `json:"column"`
	Power  float64     `json:"power"`
	X      []float64   `json:"x"`
	Y      []float64   `json:"y"`
	Z      [][]float64 `json:"z"`
}

// Min returns the smallest value in Z.
func (g Grid) Min() float64 {
	m := math.Inf(1)
	for _, row := range g.Z {
		for _, v := range row {
			m = math.Min(m, v)
		}
	}
	return m
}

// Max returns the largest value in Z.
func (g Grid) Max() float64 {
	m := math.Inf(-1)
	for _, row := range g.Z {
		for _, v := range row {
			m = math.Max(m, v)
		}
	}
	return m
}

// ContourLevels returns the whole numbers from floor(Min) to ceil(Max), one
// contour line per unit of the column. An empty grid has no levels.
func (g Grid) ContourLevels() []float64 {
	lo, hi := g.Min(), g.Max()
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil
	}
	var levels []float64
	for v := math.Floor(lo); v <= math.Ceil(hi); v++ {
		levels = append(levels, v)
	}
	return levels
}

// SampleGrid estimates column on an n×n lattice spanning box, rows running
// over y and columns over x. Every node is an independent Estimate call over
// all observations, so the cost is O(n²·S) for S observations; the observation
// values are extracted once and reused, which leaves each node's result
// identical to calling Estimate directly.
func SampleGrid(observations []ObservationRecord, box BoundingBox, n int, power float64, column Column) (Grid, error) {
	if n < 1 {
		return Grid{}, fmt.Errorf("%w: resolution %d", ErrInvalidGrid, n)
	}
	if err := box.Validate(); err != nil {
		return Grid{}, err
	}
	samples, err := prepareSamples(observations, power, column)
	if err != nil {
		return Grid{}, err
	}

	g := Grid{
		Column: column,
		Power:  power,
		X:      Linspace(box.MinX, box.MaxX, n),
		Y:      Linspace(box.MinY, box.MaxY, n),
		Z:      make([][]float64, n),
	}
	for i, y := range g.Y {
		row := make([]float64, n)
		for j, x := range g.X {
			row[j] = estimateAt(samples, x, y, power)
		}
		g.Z[i] = row
	}
	return g, nil
}
