package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/oabscraper/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the job filled in by the
// previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry their collaborators (driver, store, resolver)
// 2. It provides a Name() method for logging and failure reporting
type Step interface {
	// Do executes the pipeline step for one record.
	// A returned error stops the remaining steps for this record.
	Do(ctx context.Context, job *model.RecordJob) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// StepError reports which step failed.
type StepError struct {
	Step string
	Err  error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

// Unwrap returns the step's error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps for job in sequence and stops at the
// first failure, which is returned as a *StepError.
//
// Design decision: We check context.Done() before each step rather than
// during, because steps bound their own waits. A record interrupted between
// steps is reported as canceled rather than as a step failure.
func (p *Pipeline) Execute(ctx context.Context, job *model.RecordJob) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"record", job.Ref.Label,
				"reason", ctx.Err(),
			)
			return &StepError{Step: step.Name(), Err: model.NewError(model.KindCanceled, step.Name(), ctx.Err())}
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"record", job.Ref.Label,
		)

		if err := step.Do(ctx, job); err != nil {
			return &StepError{Step: step.Name(), Err: err}
		}
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
