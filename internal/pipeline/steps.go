package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/oabscraper/internal/browser"
	"github.com/nao1215/oabscraper/internal/extract"
	"github.com/nao1215/oabscraper/internal/locator"
	"github.com/nao1215/oabscraper/internal/model"
)

// Step names, also stored in the run ledger.
const (
	StepNavigate = "navigate"
	StepCaptcha  = "captcha"
	StepExtract  = "extract"
	StepPersist  = "persist"
)

// ChallengeResolver satisfies the challenge on the current page.
// *captcha.Resolver implements it.
type ChallengeResolver interface {
	Resolve(ctx context.Context) (model.ChallengeState, error)
}

// Appender appends one row to the output. *store.Workbook implements it.
type Appender interface {
	Append(values model.FieldVector) error
}

// NavigateStep loads the record's detail page.
type NavigateStep struct {
	driver browser.Driver
}

// NewNavigateStep creates a NavigateStep.
func NewNavigateStep(d browser.Driver) *NavigateStep {
	return &NavigateStep{driver: d}
}

// Name returns the step name.
func (s *NavigateStep) Name() string {
	return StepNavigate
}

// Do navigates to job.Ref.URL.
func (s *NavigateStep) Do(ctx context.Context, job *model.RecordJob) error {
	if err := s.driver.Navigate(ctx, job.Ref.URL); err != nil {
		return model.NewError(model.KindNavigation, "open detail page", err)
	}
	return nil
}

// CaptchaStep resolves the challenge and submits the detail form.
//
// Design decision: a failed resolution stops the record by default. The
// extraction step would only read the challenge page and fail with a less
// useful error. WithProceedOnFailure restores the older behavior of logging
// the failure and extracting anyway.
type CaptchaStep struct {
	resolver         ChallengeResolver
	proceedOnFailure bool
	logger           *slog.Logger
}

// CaptchaStepOption configures a CaptchaStep.
type CaptchaStepOption func(*CaptchaStep)

// WithProceedOnFailure lets the record continue to extraction after a
// failed resolution.
func WithProceedOnFailure(proceed bool) CaptchaStepOption {
	return func(s *CaptchaStep) {
		s.proceedOnFailure = proceed
	}
}

// WithCaptchaLogger sets a custom logger for the captcha step.
func WithCaptchaLogger(logger *slog.Logger) CaptchaStepOption {
	return func(s *CaptchaStep) {
		s.logger = logger
	}
}

// NewCaptchaStep creates a CaptchaStep.
func NewCaptchaStep(r ChallengeResolver, opts ...CaptchaStepOption) *CaptchaStep {
	s := &CaptchaStep{
		resolver: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *CaptchaStep) Name() string {
	return StepCaptcha
}

// Do resolves the challenge and records the observed state on the job.
func (s *CaptchaStep) Do(ctx context.Context, job *model.RecordJob) error {
	state, err := s.resolver.Resolve(ctx)
	job.Challenge = state
	if err == nil {
		return nil
	}
	if s.proceedOnFailure && ctx.Err() == nil {
		s.logger.Error("failed to resolve captcha, proceeding",
			"record", job.Ref.Label,
			"error", err,
		)
		return nil
	}
	return model.NewError(model.KindCaptcha, "resolve captcha", err)
}

// ExtractStep reads the field vector from the detail table.
type ExtractStep struct {
	driver      browser.Driver
	rows        locator.Selector
	waitTimeout time.Duration
	logger      *slog.Logger
}

// ExtractStepOption configures an ExtractStep.
type ExtractStepOption func(*ExtractStep)

// WithExtractWaitTimeout bounds the wait for the detail table.
func WithExtractWaitTimeout(d time.Duration) ExtractStepOption {
	return func(s *ExtractStep) {
		s.waitTimeout = d
	}
}

// WithExtractLogger sets a custom logger for the extract step.
func WithExtractLogger(logger *slog.Logger) ExtractStepOption {
	return func(s *ExtractStep) {
		s.logger = logger
	}
}

// NewExtractStep creates an ExtractStep reading rows located by reg's
// rows selector.
func NewExtractStep(d browser.Driver, reg *locator.Registry, opts ...ExtractStepOption) *ExtractStep {
	s := &ExtractStep{
		driver:      d,
		rows:        reg.MustGet(locator.KeyRows),
		waitTimeout: browser.DefaultElementTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return StepExtract
}

// Do waits for the table rows, then parses the page HTML.
func (s *ExtractStep) Do(ctx context.Context, job *model.RecordJob) error {
	if err := s.driver.WaitFor(ctx, s.rows, s.waitTimeout); err != nil {
		return model.NewError(model.KindExtraction, "wait for detail table", err)
	}

	page, err := s.driver.HTML(ctx)
	if err != nil {
		return model.NewError(model.KindExtraction, "read detail page", err)
	}

	fields, err := extract.Fields(page, s.rows.Expr)
	if err != nil {
		return model.NewError(model.KindExtraction, "extract fields", err)
	}

	if !fields.Complete() {
		s.logger.Warn("unexpected number of fields",
			"record", job.Ref.Label,
			"got", len(fields),
			"want", model.FieldCount,
		)
	}
	job.Fields = fields
	return nil
}

// PersistStep appends the field vector to the output.
type PersistStep struct {
	store Appender
}

// NewPersistStep creates a PersistStep.
func NewPersistStep(a Appender) *PersistStep {
	return &PersistStep{store: a}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return StepPersist
}

// Do appends job.Fields.
func (s *PersistStep) Do(_ context.Context, job *model.RecordJob) error {
	if err := s.store.Append(job.Fields); err != nil {
		return model.NewError(model.KindPersistence, "append row", err)
	}
	job.Persisted = true
	return nil
}
