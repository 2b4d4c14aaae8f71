// Package captcha drives the checkbox and audio challenge that guards every
// detail page, then submits the detail form.
//
// The resolver is a small state machine over the live page:
//
//	Unchallenged --click checkbox--> (poll aria-checked)
//	    checked     -> Satisfied
//	    not checked -> AudioPending --audio answer + verify--> (poll again)
//	then, on every path: click ENVIAR and wait for Imprimir.
//
// The state is never remembered between checks. Each check enters the
// anchor frame and reads the checkbox's aria-checked attribute again.
package captcha

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/oabscraper/internal/browser"
	"github.com/nao1215/oabscraper/internal/locator"
	"github.com/nao1215/oabscraper/internal/model"
)

const (
	// DefaultSettleTimeout bounds each satisfaction poll.
	DefaultSettleTimeout = 2 * time.Second

	// DefaultSubmitTimeout bounds the wait for the print button.
	DefaultSubmitTimeout = 60 * time.Second

	// DefaultPollInterval is the delay between satisfaction checks.
	DefaultPollInterval = 200 * time.Millisecond
)

// ErrNotTopLevel is returned when submission is attempted from inside a frame.
var ErrNotTopLevel = errors.New("driver is not at the top-level document")

// Transcriber turns the audio challenge into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

// selectors groups the locators the resolver uses.
type selectors struct {
	anchorFrame    locator.Selector
	anchorContent  locator.Selector
	checkbox       locator.Selector
	challengeFrame locator.Selector
	audioButton    locator.Selector
	audioSource    locator.Selector
	audioResponse  locator.Selector
	verifyButton   locator.Selector
	submit         locator.Selector
	print          locator.Selector
}

func newSelectors(reg *locator.Registry) selectors {
	return selectors{
		anchorFrame:    reg.MustGet(locator.KeyAnchorFrame),
		anchorContent:  reg.MustGet(locator.KeyAnchorContent),
		checkbox:       reg.MustGet(locator.KeyAnchorCheckbox),
		challengeFrame: reg.MustGet(locator.KeyChallengeFrame),
		audioButton:    reg.MustGet(locator.KeyAudioButton),
		audioSource:    reg.MustGet(locator.KeyAudioSource),
		audioResponse:  reg.MustGet(locator.KeyAudioResponse),
		verifyButton:   reg.MustGet(locator.KeyVerifyButton),
		submit:         reg.MustGet(locator.KeySubmit),
		print:          reg.MustGet(locator.KeyPrint),
	}
}

// Resolver satisfies the challenge on the current detail page and submits it.
type Resolver struct {
	driver        browser.Driver
	transcriber   Transcriber
	sel           selectors
	settleTimeout time.Duration
	submitTimeout time.Duration
	pollInterval  time.Duration
	logger        *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSettleTimeout bounds the post-click and post-verify polls.
func WithSettleTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		r.settleTimeout = d
	}
}

// WithSubmitTimeout bounds the wait for the print button.
func WithSubmitTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		r.submitTimeout = d
	}
}

// WithPollInterval sets the delay between satisfaction checks.
func WithPollInterval(d time.Duration) Option {
	return func(r *Resolver) {
		r.pollInterval = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a Resolver.
func New(d browser.Driver, t Transcriber, reg *locator.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		driver:        d,
		transcriber:   t,
		sel:           newSelectors(reg),
		settleTimeout: DefaultSettleTimeout,
		submitTimeout: DefaultSubmitTimeout,
		pollInterval:  DefaultPollInterval,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs the challenge flow on the current page and submits the form.
//
// It returns the last observed challenge state. A nil error means the form
// was submitted and the post-submission page rendered; it does not mean the
// audio answer was accepted. Errors are *model.Error values: KindTranscription
// for audio failures and KindCaptcha for everything else. The driver is back
// at the top-level document on every return.
func (r *Resolver) Resolve(ctx context.Context) (model.ChallengeState, error) {
	state := model.ChallengeUnchallenged

	if err := browser.WithinFrame(ctx, r.driver, r.sel.anchorFrame, func() error {
		el, err := r.driver.Find(ctx, r.sel.anchorContent)
		if err != nil {
			return err
		}
		return el.Click(ctx)
	}); err != nil {
		return state, model.NewError(model.KindCaptcha, "acknowledge challenge", err)
	}

	state, err := r.awaitSatisfied(ctx)
	if err != nil {
		return state, model.NewError(model.KindCaptcha, "check challenge", err)
	}

	if state != model.ChallengeSatisfied {
		r.logger.Info("solving audio challenge")
		if err := browser.WithinFrame(ctx, r.driver, r.sel.challengeFrame, func() error {
			return r.answerAudio(ctx)
		}); err != nil {
			return state, model.NewError(model.KindCaptcha, "audio challenge", err)
		}

		state, err = r.awaitSatisfied(ctx)
		if err != nil {
			return state, model.NewError(model.KindCaptcha, "check challenge", err)
		}
		if state != model.ChallengeSatisfied {
			r.logger.Warn("challenge not confirmed after verify, submitting anyway")
		}
	}

	if err := r.submit(ctx); err != nil {
		return state, model.NewError(model.KindCaptcha, "submit", err)
	}
	return state, nil
}

// IsSolved reads the checkbox state once. A missing aria-checked attribute
// counts as not solved.
func (r *Resolver) IsSolved(ctx context.Context) (bool, error) {
	var value string
	err := browser.WithinFrame(ctx, r.driver, r.sel.anchorFrame, func() error {
		el, err := r.driver.Find(ctx, r.sel.checkbox)
		if err != nil {
			return err
		}
		value, err = el.Attribute(ctx, "aria-checked")
		if errors.Is(err, browser.ErrNoAttribute) {
			return nil
		}
		return err
	})
	if err != nil {
		return false, err
	}
	return model.ChallengeStateFromAttr(value) == model.ChallengeSatisfied, nil
}

// awaitSatisfied polls IsSolved until it is true or the settle timeout
// expires. A timeout is not an error: it means the challenge is pending.
func (r *Resolver) awaitSatisfied(ctx context.Context) (model.ChallengeState, error) {
	err := browser.WaitUntil(ctx, r.settleTimeout, r.pollInterval, r.IsSolved)
	switch {
	case err == nil:
		return model.ChallengeSatisfied, nil
	case errors.Is(err, browser.ErrWaitTimeout):
		return model.ChallengeAudioPending, nil
	default:
		return model.ChallengeAudioPending, err
	}
}

// answerAudio runs inside the challenge frame.
func (r *Resolver) answerAudio(ctx context.Context) error {
	button, err := r.driver.Find(ctx, r.sel.audioButton)
	if err != nil {
		return err
	}
	if err := button.Click(ctx); err != nil {
		return err
	}

	source, err := r.driver.Find(ctx, r.sel.audioSource)
	if err != nil {
		return err
	}
	audioURL, err := source.Attribute(ctx, "src")
	if err != nil {
		return err
	}

	text, err := r.transcriber.Transcribe(ctx, audioURL)
	if err != nil {
		return err
	}
	r.logger.Debug("audio challenge answer ready", "chars", len(text))

	input, err := r.driver.Find(ctx, r.sel.audioResponse)
	if err != nil {
		return err
	}
	if err := input.Input(ctx, text); err != nil {
		return err
	}

	verify, err := r.driver.Find(ctx, r.sel.verifyButton)
	if err != nil {
		return err
	}
	return verify.Click(ctx)
}

// submit clicks ENVIAR at the top level and waits for Imprimir.
func (r *Resolver) submit(ctx context.Context) error {
	if r.driver.FrameDepth() != 0 {
		return ErrNotTopLevel
	}
	button, err := r.driver.Find(ctx, r.sel.submit)
	if err != nil {
		return err
	}
	if err := button.Click(ctx); err != nil {
		return err
	}
	return r.driver.WaitFor(ctx, r.sel.print, r.submitTimeout)
}
