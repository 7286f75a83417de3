// Command validate checks a station catalog and a measurement table before
// they are fed to the pipeline. It builds the catalog, parses the measurement
// export, matches every station name, and reports data-quality warnings, weak
// matches, and duplicate station ids.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -catalog data/stations.csv \
//	  -measurements data/mock/measurements.csv \
//	  -weak 0.5
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/station-observation-etl/internal/adapter/csvsource"
	"github.com/couchcryptid/station-observation-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase. Notes are informational and
// only fail the run in strict mode.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed(strict bool) bool {
	return len(p.errors) == 0 && (!strict || len(p.notes) == 0)
}

// recordingResolver keeps every match result so the report can show them.
type recordingResolver struct {
	inner   domain.StationResolver
	results []domain.MatchResult
}

func (r *recordingResolver) Match(name string) (domain.MatchResult, error) {
	res, err := r.inner.Match(name)
	if err == nil {
		r.results = append(r.results, res)
	}
	return res, err
}

func main() {
	catalogPath := flag.String("catalog", "data/stations.csv", "station catalog CSV file or http(s) URL")
	measurementsPath := flag.String("measurements", "data/mock/measurements.csv", "measurement CSV export")
	aliases := flag.String("aliases", domain.DefaultAliases().String(), "station aliases as from=to pairs")
	weak := flag.Float64("weak", 0.5, "match scores below this are reported as weak")
	strict := flag.Bool("strict", false, "fail on warnings as well as errors")
	flag.Parse()

	os.Exit(run(*catalogPath, *measurementsPath, *aliases, *weak, *strict))
}

func run(catalogPath, measurementsPath, aliasList string, weak float64, strict bool) int {
	fmt.Println("=== Station Observation Validation ===")
	fmt.Println()

	aliases, err := domain.ParseAliases(aliasList)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	catalogPhase, catalog := validateCatalog(catalogPath)
	measurementPhase, measurements := validateMeasurements(measurementsPath)
	phases := []*phase{catalogPhase, measurementPhase}
	if catalog != nil && catalog.Len() > 0 && len(measurements) > 0 {
		phases = append(phases, validateMatches(catalog, aliases, weak, measurements))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed(strict) {
			status = fmt.Sprintf("\033[31mFAIL (%d errors, %d warnings)\033[0m", len(p.errors), len(p.notes))
			allPassed = false
		} else if len(p.notes) > 0 {
			status = fmt.Sprintf("\033[33mPASS (%d warnings)\033[0m", len(p.notes))
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if len(p.errors)+len(p.notes) == 0 {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [E%d] %s\n", i+1, e)
		}
		for i, n := range p.notes {
			fmt.Printf("  [W%d] %s\n", i+1, n)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validateCatalog(location string) (*phase, *domain.StationCatalog) {
	p := &phase{name: "Station catalog"}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	source := csvsource.NewCatalogSource(location, 30*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rows, err := source.Fetch(ctx)
	if err != nil {
		p.errorf("fetch %s: %v", location, err)
		return p, nil
	}

	catalog, warnings := domain.BuildCatalog(rows)
	for _, w := range warnings {
		if w.Dropped {
			p.notef("dropped %s", w)
		} else {
			p.notef("%s", w)
		}
	}
	if catalog.Len() == 0 {
		p.errorf("no usable stations in %s", location)
	}
	fmt.Printf("Catalog: %d rows, %d stations\n", len(rows), catalog.Len())
	return p, catalog
}

func validateMeasurements(path string) (*phase, []domain.MeasurementRecord) {
	p := &phase{name: "Measurement table"}
	f, err := os.Open(path)
	if err != nil {
		p.errorf("%v", err)
		return p, nil
	}
	defer f.Close()

	records, warnings, err := csvsource.ReadMeasurements(f)
	if err != nil {
		p.errorf("%v", err)
		return p, nil
	}
	for _, w := range warnings {
		p.notef("%s", w)
	}
	if len(records) == 0 {
		p.errorf("no measurement rows in %s", path)
		return p, nil
	}
	fmt.Printf("Measurements: %d rows observed at %s\n", len(records), records[0].Timestamp.Format(time.RFC3339))
	return p, records
}

func validateMatches(catalog *domain.StationCatalog, aliases domain.AliasTable, weak float64, measurements []domain.MeasurementRecord) *phase {
	p := &phase{name: "Station matching"}
	resolver := &recordingResolver{inner: domain.NewMatcher(catalog, aliases, domain.WithWeakThreshold(weak))}

	table, err := domain.MergeObservations(measurements, resolver)
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	fmt.Println()
	fmt.Printf("  %-22s %-22s %-6s %s\n", "MEASUREMENT", "CATALOG", "ID", "SCORE")
	for _, res := range resolver.results {
		mark := ""
		if res.Aliased {
			mark = " (alias " + res.Name + ")"
		}
		fmt.Printf("  %-22s %-22s %-6s %.3f%s\n", res.Query, res.Station.Name, res.Station.ID, res.Score, mark)
		if res.Weak {
			p.notef("weak match %q -> %q (%s) score %.3f", res.Query, res.Station.Name, res.Station.ID, res.Score)
		}
	}

	for _, id := range table.Duplicates() {
		names := make([]string, 0, 2)
		for _, rec := range table.ByStation(id) {
			names = append(names, rec.StationName)
		}
		p.notef("station %s matched by %d rows: %q", id, len(names), names)
	}

	for _, col := range domain.NumericColumns {
		if table.DropNull(col).Len() == 0 {
			p.notef("column %s has no values", col)
		}
	}
	return p
}
