// Package core hosts the phsen service: it runs pH batches through the
// phwater pipeline, records outcomes as runs and persists them.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"phsen/pkg/domain"
	"phsen/pkg/phwater"
)

type (
	// Run aliases domain.Run.
	Run = domain.Run
	// RecordOutcome aliases domain.RecordOutcome.
	RecordOutcome = domain.RecordOutcome
	// ErrNotFound aliases domain.ErrNotFound.
	ErrNotFound = domain.ErrNotFound
)

// Operation names reported to metrics and tracing.
const (
	OpProcessBatch  = "process_batch"
	OpComputeRecord = "compute_record"
	OpGetRun        = "get_run"
	OpListRuns      = "list_runs"
	OpDeleteRun     = "delete_run"
)

// BatchInput is one batch of records to process. The zero Salinity applies
// the default practical salinity to every record.
type BatchInput struct {
	Label    string
	Records  []phwater.Record
	Salinity phwater.Salinity
}

// Service processes batches and manages stored runs.
type Service struct {
	store   PersistentStore
	logger  Logger
	clock   Clock
	metrics MetricsRecorder
	tracer  Tracer
	workers int
	newID   func() string
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		store:   store,
		logger:  o.logger,
		clock:   o.clock,
		metrics: o.metrics,
		tracer:  o.tracer,
		workers: o.workers,
		newID:   o.newID,
	}
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// observe wraps an operation with a span and a metrics observation.
func (s *Service) observe(ctx context.Context, op string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	return ctx, func(err error) {
		span.End(err)
		s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	}
}

// ProcessBatch computes every record concurrently and persists the run.
// Records fail independently and are reported in the run's outcomes; the
// returned error is limited to salinity misalignment, cancellation and
// storage failures.
func (s *Service) ProcessBatch(ctx context.Context, in BatchInput) (run Run, err error) {
	ctx, done := s.observe(ctx, OpProcessBatch)
	defer func() { done(err) }()

	psal, err := in.Salinity.Resolve(len(in.Records))
	if err != nil {
		return Run{}, fmt.Errorf("process batch: %w", err)
	}
	run = Run{ID: s.newID(), Label: in.Label, CreatedAt: s.clock.Now()}
	s.logger.Info("processing batch", "run", run.ID, "records", len(in.Records), "workers", s.workers)

	results := make([]phwater.Result, len(in.Records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range in.Records {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, end := s.observe(gctx, OpComputeRecord)
			results[i] = phwater.ComputeOne(in.Records, psal, i)
			end(results[i].Err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Run{}, fmt.Errorf("process batch: %w", err)
	}

	run.Records = make([]RecordOutcome, len(results))
	for i, res := range results {
		run.Records[i] = s.outcome(i, psal[i], res)
	}
	run.CompletedAt = s.clock.Now()
	if err := s.store.SaveRun(ctx, run); err != nil {
		return Run{}, fmt.Errorf("save run %s: %w", run.ID, err)
	}
	ok, failed := run.Counts()
	s.logger.Info("batch processed", "run", run.ID, "succeeded", ok, "failed", failed)
	return run, nil
}

func (s *Service) outcome(i int, psal float64, res phwater.Result) RecordOutcome {
	if res.Err != nil {
		s.logger.Warn("record failed", "record", i, "error", res.Err)
		return RecordOutcome{Index: i, Status: domain.RecordFailed, Salinity: psal, Error: recordCause(res.Err).Error()}
	}
	d := res.Detail
	return RecordOutcome{
		Index:       i,
		Status:      domain.RecordSucceeded,
		PH:          d.PH,
		Temperature: d.Temperature,
		Salinity:    d.Salinity,
		WindowStart: d.Window.Start,
		R2:          d.Window.R2,
	}
}

// recordCause strips the RecordError index wrapper; the outcome carries it.
func recordCause(err error) error {
	var re *phwater.RecordError
	if errors.As(err, &re) && re.Err != nil {
		return re.Err
	}
	return err
}

// GetRun returns a stored run or ErrNotFound.
func (s *Service) GetRun(ctx context.Context, id string) (run Run, err error) {
	ctx, done := s.observe(ctx, OpGetRun)
	defer func() { done(err) }()
	return s.store.GetRun(ctx, id)
}

// ListRuns returns stored runs ordered by creation time, then ID.
func (s *Service) ListRuns(ctx context.Context) (runs []Run, err error) {
	ctx, done := s.observe(ctx, OpListRuns)
	defer func() { done(err) }()
	return s.store.ListRuns(ctx)
}

// DeleteRun removes a stored run.
func (s *Service) DeleteRun(ctx context.Context, id string) (err error) {
	ctx, done := s.observe(ctx, OpDeleteRun)
	defer func() { done(err) }()
	if err = s.store.DeleteRun(ctx, id); err != nil {
		return err
	}
	s.logger.Info("run deleted", "run", id)
	return nil
}
