package domain

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// AliasTable maps a measurement-table station name to the catalog name of the
// same physical site. Keys are compared verbatim.
type AliasTable map[string]string

// DefaultAliases returns the known KNMI naming discrepancies.
func DefaultAliases() AliasTable {
	return AliasTable{
		"Den Helder": "De Kooy",
		"Eelde":      "Groningen",
	}
}

// ParseAliases parses "from=to" pairs separated by commas, e.g.
// "Den Helder=De Kooy,Eelde=Groningen". An empty string yields an empty table.
func ParseAliases(s string) (AliasTable, error) {
	table := AliasTable{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		from, to, ok := strings.Cut(pair, "=")
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("invalid alias %q, expected from=to", pair)
		}
		table[from] = to
	}
	return table, nil
}

// String renders the table in the form accepted by ParseAliases, sorted by key.
func (a AliasTable) String() string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + a[k]
	}
	return strings.Join(pairs, ",")
}

// MatchResult is the outcome of reconciling one measurement name.
type MatchResult struct {
	Query   string // name as it appears in the measurement table
	Name    string // name used for scoring, after alias substitution
	Aliased bool
	Station StationRecord
	Score   float64
	Weak    bool // score below the configured weak-match threshold
}

// Matcher reconciles measurement-table station names with catalog entries.
// It holds no mutable state and is safe for concurrent use.
type Matcher struct {
	catalog       *StationCatalog
	aliases       AliasTable
	weakThreshold float64
	logger        *slog.Logger
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithTrace logs every alias substitution and chosen match pair to logger,
// including results served from a resolver cache.
func WithTrace(logger *slog.Logger) MatcherOption {
	return func(m *Matcher) { m.logger = logger }
}

// WithWeakThreshold flags matches scoring below threshold as weak. Weak matches
// are still returned; the flag only makes them visible.
func WithWeakThreshold(threshold float64) MatcherOption {
	return func(m *Matcher) { m.weakThreshold = threshold }
}

// NewMatcher creates a Matcher over catalog. A nil alias table disables
// substitution.
func NewMatcher(catalog *StationCatalog, aliases AliasTable, opts ...MatcherOption) *Matcher {
	m := &Matcher{catalog: catalog, aliases: aliases}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match returns the catalog station whose name is most similar to name after
// alias substitution. Every station is scored and the first strictly greatest
// score wins, so ties resolve to the earliest station in catalog order. There
// is no minimum score: the best available station is always returned.
func (m *Matcher) Match(name string) (MatchResult, error) {
	if m.catalog == nil || m.catalog.Len() == 0 {
		return MatchResult{}, ErrEmptyCatalog
	}

	result := MatchResult{Query: name, Name: name}
	if alias, ok := m.aliases[name]; ok {
		result.Name = alias
		result.Aliased = true
	}

	best := -1
	bestScore := 0.0
	for i, s := range m.catalog.stations {
		score := Similarity(result.Name, s.Name)
		if best < 0 || score > bestScore {
			best, bestScore = i, score
		}
	}

	result.Station = m.catalog.stations[best]
	result.Score = bestScore
	result.Weak = bestScore < m.weakThreshold

	m.Trace(result)
	return result, nil
}

// Trace logs the alias substitution and chosen pair of result when trace
// logging is enabled. Match calls it for every result it computes; callers
// that reuse results, such as caches, call it to keep one record per lookup.
func (m *Matcher) Trace(result MatchResult) {
	if m.logger == nil {
		return
	}
	if result.Aliased {
		m.logger.Info("station alias applied", "measurement_name", result.Query, "alias", result.Name)
	}
	m.logger.Info("station matched",
		"measurement_name", result.Name,
		"catalog_name", result.Station.Name,
		"station_id", result.Station.ID,
		"score", result.Score,
	)
}
