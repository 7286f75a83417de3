// Command grid merges a measurement table with the station catalog and
// interpolates one column offline, printing the result as JSON.
//
// Usage:
//
//	go run ./cmd/grid sample --column temp -n 50 -o grid.json
//	go run ./cmd/grid estimate --column atm_pressure 5.18 52.1
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"

	"github.com/couchcryptid/station-observation-etl/internal/adapter/csvsource"
	"github.com/couchcryptid/station-observation-etl/internal/domain"
)

type Globals struct {
	Catalog      string  `help:"Station catalog CSV file or http(s) URL." default:"data/stations.csv"`
	Measurements string  `help:"Measurement CSV export." default:"data/mock/measurements.csv" type:"existingfile"`
	Aliases      string  `help:"Station aliases as from=to pairs." default:"${aliases}"`
	Column       string  `help:"Column to interpolate." enum:"temp,rel_humid,wind_speed,sight,atm_pressure" default:"temp"`
	Power        float64 `help:"IDW power parameter." default:"${power}"`
	Verbose      bool    `help:"Log catalog and measurement warnings." short:"v"`
}

type SampleCmd struct {
	N    int    `help:"Grid resolution per axis." short:"n" default:"${resolution}"`
	BBox string `help:"Bounding box as minx,maxx,miny,maxy." name:"bbox" default:"${bbox}"`
	Out  string `help:"Write JSON here instead of stdout." short:"o" type:"path"`
}

type EstimateCmd struct {
	Lon float64 `arg:"" help:"Longitude (x) of the estimate."`
	Lat float64 `arg:"" help:"Latitude (y) of the estimate."`
}

type CLI struct {
	Globals

	Sample   SampleCmd   `cmd:"" help:"Sample the column on a regular grid."`
	Estimate EstimateCmd `cmd:"" help:"Estimate the column at one point."`
}

type sampleOutput struct {
	domain.Grid
	ObservedAt time.Time          `json:"observed_at"`
	Bounds     domain.BoundingBox `json:"bbox"`
	Levels     []float64          `json:"levels"`
}

type estimateOutput struct {
	Column     domain.Column `json:"column"`
	Power      float64       `json:"power"`
	Lon        float64       `json:"lon"`
	Lat        float64       `json:"lat"`
	Value      float64       `json:"value"`
	ObservedAt time.Time     `json:"observed_at"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("grid"),
		kong.Description("Interpolate station observations with inverse distance weighting."),
		kong.UsageOnError(),
		kong.Vars{
			"aliases":    domain.DefaultAliases().String(),
			"power":      strconv.FormatFloat(domain.DefaultPower, 'f', -1, 64),
			"resolution": strconv.Itoa(domain.DefaultGridResolution),
			"bbox":       domain.NetherlandsBounds.String(),
		},
		kong.Bind(&cli.Globals),
	)
	ctx.FatalIfErrorf(ctx.Run())
}

func (c *SampleCmd) Run(g *Globals) error {
	box, err := domain.ParseBoundingBox(c.BBox)
	if err != nil {
		return err
	}
	table, err := g.observations()
	if err != nil {
		return err
	}

	grid, err := domain.SampleGrid(table.Records(), box, c.N, g.Power, domain.Column(g.Column))
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if c.Out != "" {
		f, err := os.Create(c.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return writeJSON(out, sampleOutput{
		Grid:       grid,
		ObservedAt: table.ObservedAt(),
		Bounds:     box,
		Levels:     grid.ContourLevels(),
	})
}

func (c *EstimateCmd) Run(g *Globals) error {
	table, err := g.observations()
	if err != nil {
		return err
	}
	v, err := domain.Estimate(table.Records(), c.Lon, c.Lat, g.Power, domain.Column(g.Column))
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, estimateOutput{
		Column:     domain.Column(g.Column),
		Power:      g.Power,
		Lon:        c.Lon,
		Lat:        c.Lat,
		Value:      v,
		ObservedAt: table.ObservedAt(),
	})
}

// observations builds the catalog, reads the measurement table and merges them.
func (g *Globals) observations() (*domain.ObservationTable, error) {
	level := slog.LevelError
	if g.Verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.Kitchen}))

	aliases, err := domain.ParseAliases(g.Aliases)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	rows, err := csvsource.NewCatalogSource(g.Catalog, 30*time.Second, logger).Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	catalog, warnings := domain.BuildCatalog(rows)
	for _, w := range warnings {
		logger.Warn("catalog row", "row", w.Row, "station_id", w.StationID, "reason", w.Reason, "dropped", w.Dropped)
	}

	f, err := os.Open(g.Measurements)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	measurements, mwarnings, err := csvsource.ReadMeasurements(f)
	if err != nil {
		return nil, fmt.Errorf("measurements: %w", err)
	}
	for _, w := range mwarnings {
		logger.Warn("measurement row", "warning", w)
	}

	table, err := domain.MergeObservations(measurements, domain.NewMatcher(catalog, aliases, domain.WithTrace(logger)))
	if err != nil {
		return nil, err
	}
	if dups := table.Duplicates(); len(dups) > 0 {
		logger.Warn("stations matched more than once", "station_ids", dups)
	}
	return table, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
