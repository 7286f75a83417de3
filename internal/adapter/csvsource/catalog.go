// Package csvsource reads station catalogs and measurement tables exported as
// CSV, from a local file or over HTTP.
package csvsource

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/couchcryptid/station-observation-etl/internal/domain"
)

var (
	errServerError = errors.New("server error")
	errRateLimited = errors.New("rate limited")
	errTransient   = errors.New("transient network error")
)

// CatalogSource fetches the raw station catalog. Locations starting with
// http:// or https:// are downloaded with retries behind a circuit breaker;
// anything else is read from disk. Network errors, 429 and 5xx responses are
// retried; other statuses and invalid requests are not.
type CatalogSource struct {
	location   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
}

// Option configures a CatalogSource.
type Option func(*CatalogSource)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *CatalogSource) { s.httpClient = c }
}

// WithBackOff sets the retry policy for HTTP downloads.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(s *CatalogSource) { s.newBackOff = newBackOff }
}

// NewCatalogSource creates a source for location. timeout bounds a single
// HTTP attempt.
func NewCatalogSource(location string, timeout time.Duration, logger *slog.Logger, opts ...Option) *CatalogSource {
	s := &CatalogSource{
		location:   location,
		httpClient: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "station-catalog",
			MaxRequests: 1,
			Interval:    10 * time.Minute,
			Timeout:     5 * time.Minute,
		}),
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.MaxElapsedTime = 2 * time.Minute
			return bo
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the configured file path or URL.
func (s *CatalogSource) Location() string {
	return s.location
}

// Fetch reads and decodes the catalog into raw rows.
func (s *CatalogSource) Fetch(ctx context.Context) ([]domain.RawCatalogRow, error) {
	var body []byte
	var err error
	if isURL(s.location) {
		body, err = s.download(ctx)
	} else {
		body, err = os.ReadFile(s.location)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch catalog %s: %w", s.location, err)
	}

	rows, err := ReadCatalog(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", s.location, err)
	}
	return rows, nil
}

func (s *CatalogSource) download(ctx context.Context) ([]byte, error) {
	var body []byte
	attempt := 0
	operation := func() error {
		attempt++
		result, err := s.breaker.Execute(func() (interface{}, error) {
			return s.get(ctx)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			if errors.Is(err, errServerError) || errors.Is(err, errRateLimited) || errors.Is(err, errTransient) {
				s.logger.Warn("catalog download failed, retrying", "attempt", attempt, "error", err)
				return err
			}
			return backoff.Permanent(err)
		}
		body = result.([]byte)
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(s.newBackOff(), ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

func (s *CatalogSource) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", errServerError, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("%w: read body: %v", errTransient, err)
	}
	return body, err
}

// ReadCatalog decodes catalog CSV and returns its data rows. Rows without
// exactly six cells (titles, footers, notes) and the column-name row are
// skipped.
func ReadCatalog(r io.Reader) ([]domain.RawCatalogRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	return domain.FilterCatalogRows(records), nil
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
