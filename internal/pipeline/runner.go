package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/oabscraper/internal/model"
)

// Listing yields the record links of the paginated listing.
// *listing.Navigator implements it.
type Listing interface {
	Open(ctx context.Context) error
	LastPage(ctx context.Context) (int, error)
	PageRecords(ctx context.Context, page int) ([]model.RecordRef, error)
}

// Ensurer creates the output with its header row if needed.
// *store.Workbook implements it.
type Ensurer interface {
	Ensure() (bool, error)
}

// RecordProcessor processes one record. *Processor implements it.
type RecordProcessor interface {
	Process(ctx context.Context, page int, ref model.RecordRef) model.RecordResult
}

// ResultSink receives every record outcome as soon as it is known,
// e.g. the run ledger.
type ResultSink interface {
	RecordResult(ctx context.Context, res model.RecordResult) error
}

// Runner drives one full scraping run.
type Runner struct {
	listing   Listing
	store     Ensurer
	processor RecordProcessor
	sinks     []ResultSink
	maxPages  int
	logger    *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithMaxPages processes at most n pages. Zero means every page.
func WithMaxPages(n int) RunnerOption {
	return func(r *Runner) {
		r.maxPages = n
	}
}

// WithResultSink adds a receiver for record outcomes.
func WithResultSink(s ResultSink) RunnerOption {
	return func(r *Runner) {
		r.sinks = append(r.sinks, s)
	}
}

// WithRunnerLogger sets a custom logger for the runner.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner.
func NewRunner(l Listing, s Ensurer, p RecordProcessor, opts ...RunnerOption) *Runner {
	r := &Runner{
		listing:   l,
		store:     s,
		processor: p,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run opens the listing, ensures the output exists, reads the page count and
// processes pages 1..N in order, filling report as it goes.
//
// Failing to open the listing, to create the output or to read the page
// count aborts the run: the error is returned and report is marked aborted.
// A page whose links cannot be read is skipped. A record that fails is
// reported and the run continues. Cancellation is checked between records.
func (r *Runner) Run(ctx context.Context, report *model.RunReport) error {
	defer report.Finish()

	if err := r.listing.Open(ctx); err != nil {
		return r.abort(report, "failed to open listing", err)
	}

	created, err := r.store.Ensure()
	if err != nil {
		return r.abort(report, "failed to prepare output", model.NewError(model.KindPersistence, "ensure output", err))
	}
	if created {
		r.logger.Info("output file created", "path", report.OutputFile)
	}

	lastPage, err := r.listing.LastPage(ctx)
	if err != nil {
		return r.abort(report, "failed to read last page", err)
	}
	report.LastPage = lastPage

	pages := lastPage
	if r.maxPages > 0 && r.maxPages < pages {
		pages = r.maxPages
	}
	r.logger.Info("starting run", "last_page", lastPage, "pages", pages)

	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return r.abort(report, "run interrupted", model.NewError(model.KindCanceled, "run", err))
		}

		r.logger.Info("processing page", "page", page, "of", pages)
		refs, err := r.listing.PageRecords(ctx, page)
		if err != nil {
			r.logger.Error("failed to process page", "page", page, "error", err)
			report.AddPageFailure(page)
			continue
		}
		report.PagesVisited++

		for _, ref := range refs {
			if err := ctx.Err(); err != nil {
				return r.abort(report, "run interrupted", model.NewError(model.KindCanceled, "run", err))
			}

			res := r.processor.Process(ctx, page, ref)
			report.AddResult(res)
			r.emit(ctx, res)
		}
	}

	r.logger.Info("run finished",
		"processed", report.Processed,
		"persisted", report.Persisted,
		"failed", report.FailedCount(),
		"pages_failed", len(report.PagesFailed),
	)
	return nil
}

func (r *Runner) abort(report *model.RunReport, msg string, err error) error {
	r.logger.Error(msg, "kind", model.KindOf(err).String(), "error", err)
	report.Abort(err)
	return err
}

// emit forwards res to every sink. Sink failures are logged and do not
// affect the run.
func (r *Runner) emit(ctx context.Context, res model.RecordResult) {
	for _, s := range r.sinks {
		if err := s.RecordResult(context.WithoutCancel(ctx), res); err != nil {
			r.logger.Warn("failed to record result", "record", res.Ref.Label, "error", err)
		}
	}
}
