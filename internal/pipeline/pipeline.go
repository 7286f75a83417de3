package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/couchcryptid/station-observation-etl/internal/domain"
	"github.com/couchcryptid/station-observation-etl/internal/observability"
)

// BatchExtractor reads up to batchSize raw measurement rows from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer turns a raw measurement row into a merged observation.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.ObservationRecord, error)
}

// BatchLoader writes merged observations to a destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, records []domain.ObservationRecord) error
}

// MultiLoader loads each batch into every loader in order, stopping at the
// first failure.
type MultiLoader []BatchLoader

func (m MultiLoader) LoadBatch(ctx context.Context, records []domain.ObservationRecord) error {
	for i, l := range m {
		if err := l.LoadBatch(ctx, records); err != nil {
			return fmt.Errorf("loader %d: %w", i, err)
		}
	}
	return nil
}

// Pipeline orchestrates the extract-transform-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
	retry       *backoff.ExponentialBackOff
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 200 * time.Millisecond
	retry.MaxInterval = 5 * time.Second
	retry.MaxElapsedTime = 0 // retry for as long as the pipeline runs
	retry.Reset()

	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
		retry:       retry,
	}
}

// CheckReadiness returns nil once the pipeline has loaded at least one
// observation.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any messages yet")
	}
	return nil
}

// Run executes the batch ETL loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx) {
			return nil
		}
	}
}

// processBatch runs one extract-transform-load cycle. Returns false if the
// pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	p.retry.Reset()

	loaded, ok := p.transformAndLoad(ctx, rawBatch)
	if !ok {
		return false
	}

	if loaded > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// transformAndLoad merges each row of the batch, loads the successes and
// commits offsets. A row that fails to transform is committed and skipped so
// it cannot block the partition. Returns the number of loaded observations and
// false if the pipeline should stop.
func (p *Pipeline) transformAndLoad(ctx context.Context, rawBatch []domain.RawEvent) (int, bool) {
	records := make([]domain.ObservationRecord, 0, len(rawBatch))
	transformed := make([]domain.RawEvent, 0, len(rawBatch))

	for _, raw := range rawBatch {
		rec, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("transform failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		records = append(records, rec)
		transformed = append(transformed, raw)
	}

	if len(records) == 0 {
		return 0, true
	}

	if err := p.loader.LoadBatch(ctx, records); err != nil {
		p.logger.Error("load batch failed", "error", err, "batch_size", len(records))
		return 0, p.backoffOrStop(ctx)
	}

	p.metrics.MessagesProduced.Add(float64(len(records)))

	for _, raw := range transformed {
		p.commitOffset(ctx, raw)
	}

	return len(records), true
}

// backoffOrStop sleeps for the next retry interval. Returns false if the
// context ended first.
func (p *Pipeline) backoffOrStop(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	return sleepWithContext(ctx, p.retry.NextBackOff())
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// ReadinessChecker reports whether a component is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// AllReady combines checkers; the first failure is reported.
type AllReady []ReadinessChecker

func (a AllReady) CheckReadiness(ctx context.Context) error {
	for _, c := range a {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
