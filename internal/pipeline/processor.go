package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/oabscraper/internal/model"
)

// Processor runs the record pipeline for one record at a time and isolates
// its failures.
type Processor struct {
	pipeline *Pipeline
	logger   *slog.Logger
	now      func() time.Time
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithProcessorLogger sets a custom logger for the processor.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithClock overrides time.Now for result timestamps.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		p.now = now
	}
}

// NewProcessor creates a Processor running p for each record.
func NewProcessor(p *Pipeline, opts ...ProcessorOption) *Processor {
	proc := &Processor{
		pipeline: p,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(proc)
	}
	return proc
}

// Process runs every step for the record and returns its outcome.
// It never returns an error and never panics: a failure in any step is
// logged with the record's label and reported in the result.
func (p *Processor) Process(ctx context.Context, page int, ref model.RecordRef) (result model.RecordResult) {
	start := p.now()
	job := model.NewRecordJob(page, ref)

	p.logger.Info("processing record", "page", page, "record", ref.Label)

	defer func() {
		if r := recover(); r != nil {
			err := model.NewError(model.KindNavigation, "process record", fmt.Errorf("panic: %v", r))
			result = p.failure(job, "", err, start)
		}
	}()

	if err := p.pipeline.Execute(ctx, job); err != nil {
		step := ""
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			step = stepErr.Step
		}
		return p.failure(job, step, err, start)
	}

	return model.RecordResult{
		Page:      page,
		Ref:       ref,
		Challenge: job.Challenge,
		Persisted: job.Persisted,
		Duration:  p.now().Sub(start),
		Timestamp: start,
	}
}

func (p *Processor) failure(job *model.RecordJob, step string, err error, start time.Time) model.RecordResult {
	kind := model.KindOf(err)
	if errors.Is(err, context.Canceled) {
		kind = model.KindCanceled
	}
	p.logger.Error("failed to process record",
		"page", job.Page,
		"record", job.Ref.Label,
		"url", job.Ref.URL,
		"step", step,
		"kind", kind.String(),
		"error", err,
	)
	return model.RecordResult{
		Page:      job.Page,
		Ref:       job.Ref,
		Challenge: job.Challenge,
		Persisted: false,
		Kind:      kind,
		Message:   err.Error(),
		Step:      step,
		Duration:  p.now().Sub(start),
		Timestamp: start,
	}
}
