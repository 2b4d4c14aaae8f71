package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/nao1215/oabscraper/internal/locator"
)

// RodDriver implements Driver on top of a rod page.
//
// The frame stack holds the top-level page at index 0 and one page per
// entered iframe above it. rod exposes an iframe's document as its own
// *rod.Page, so entering a frame is a push and leaving it is a pop.
type RodDriver struct {
	frames []*rod.Page

	// elementTimeout bounds Find.
	elementTimeout time.Duration

	// navigationTimeout bounds Navigate.
	navigationTimeout time.Duration

	logger *slog.Logger
}

// RodOption configures a RodDriver.
type RodOption func(*RodDriver)

// WithElementTimeout sets how long Find waits for an element.
func WithElementTimeout(d time.Duration) RodOption {
	return func(r *RodDriver) {
		if d > 0 {
			r.elementTimeout = d
		}
	}
}

// WithNavigationTimeout sets how long Navigate waits for the load event.
func WithNavigationTimeout(d time.Duration) RodOption {
	return func(r *RodDriver) {
		if d > 0 {
			r.navigationTimeout = d
		}
	}
}

// WithRodLogger sets the logger.
func WithRodLogger(logger *slog.Logger) RodOption {
	return func(r *RodDriver) {
		r.logger = logger
	}
}

// NewRodDriver wraps page, which becomes the top-level document.
func NewRodDriver(page *rod.Page, opts ...RodOption) *RodDriver {
	r := &RodDriver{
		frames:            []*rod.Page{page},
		elementTimeout:    DefaultElementTimeout,
		navigationTimeout: DefaultNavigationTimeout,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RodDriver) top() *rod.Page {
	return r.frames[0]
}

func (r *RodDriver) current() *rod.Page {
	return r.frames[len(r.frames)-1]
}

// Navigate implements Driver.
func (r *RodDriver) Navigate(ctx context.Context, url string) error {
	r.frames = r.frames[:1]

	navCtx, cancel := context.WithTimeout(ctx, r.navigationTimeout)
	defer cancel()

	page := r.top().Context(navCtx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	r.logger.Debug("page loaded", "url", url)
	return nil
}

// WaitFor implements Driver.
func (r *RodDriver) WaitFor(ctx context.Context, sel locator.Selector, timeout time.Duration) error {
	_, err := r.element(ctx, sel, timeout)
	return err
}

// Find implements Driver.
func (r *RodDriver) Find(ctx context.Context, sel locator.Selector) (Element, error) {
	el, err := r.element(ctx, sel, r.elementTimeout)
	if err != nil {
		return nil, err
	}
	return &rodElement{el: el}, nil
}

func (r *RodDriver) element(ctx context.Context, sel locator.Selector, timeout time.Duration) (*rod.Element, error) {
	page := r.current().Context(ctx).Timeout(timeout)

	var (
		el  *rod.Element
		err error
	)
	switch sel.Dialect {
	case locator.XPath:
		el, err = page.ElementX(sel.Expr)
	default:
		el, err = page.Element(sel.Expr)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %s", ErrElementNotFound, sel, timeout)
		}
		return nil, fmt.Errorf("find %s: %w", sel, err)
	}
	return el.CancelTimeout(), nil
}

// FindAll implements Driver.
func (r *RodDriver) FindAll(ctx context.Context, sel locator.Selector) ([]Element, error) {
	page := r.current().Context(ctx)

	var (
		els rod.Elements
		err error
	)
	switch sel.Dialect {
	case locator.XPath:
		els, err = page.ElementsX(sel.Expr)
	default:
		els, err = page.Elements(sel.Expr)
	}
	if err != nil {
		return nil, fmt.Errorf("find all %s: %w", sel, err)
	}

	result := make([]Element, 0, len(els))
	for _, el := range els {
		result = append(result, &rodElement{el: el})
	}
	return result, nil
}

// HTML implements Driver.
func (r *RodDriver) HTML(ctx context.Context) (string, error) {
	html, err := r.current().Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return html, nil
}

// EnterFrame implements Driver.
func (r *RodDriver) EnterFrame(ctx context.Context, sel locator.Selector) error {
	el, err := r.element(ctx, sel, r.elementTimeout)
	if err != nil {
		return fmt.Errorf("enter frame: %w", err)
	}
	frame, err := el.Frame()
	if err != nil {
		return fmt.Errorf("enter frame %s: %w", sel, err)
	}
	r.frames = append(r.frames, frame)
	r.logger.Debug("entered frame", "selector", sel.String(), "depth", r.FrameDepth())
	return nil
}

// LeaveFrame implements Driver.
func (r *RodDriver) LeaveFrame() error {
	if len(r.frames) == 1 {
		return ErrNotInFrame
	}
	r.frames = r.frames[:len(r.frames)-1]
	return nil
}

// FrameDepth implements Driver.
func (r *RodDriver) FrameDepth() int {
	return len(r.frames) - 1
}

// rodElement adapts *rod.Element to Element.
type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", fmt.Errorf("%w: %s", ErrNoAttribute, name)
	}
	return *v, nil
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Input(ctx context.Context, text string) error {
	return e.el.Context(ctx).Input(text)
}
