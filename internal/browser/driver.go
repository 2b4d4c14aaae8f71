// Package browser drives the single browser session used by the scraper.
//
// The Driver interface exposes the handful of primitives the scraper needs:
// navigate, wait for an element, find one or many elements, read the page
// HTML, and enter or leave frames. The frame the driver is currently scoped
// to is explicit driver state; WithinFrame pairs every EnterFrame with a
// LeaveFrame so that a failure inside a frame cannot leave the session
// pointed at the wrong document.
package browser

import (
	"context"
	"errors"
	"time"

	"github.com/nao1215/oabscraper/internal/locator"
)

var (
	// ErrElementNotFound is returned when a selector matches nothing before
	// the element timeout expires.
	ErrElementNotFound = errors.New("element not found")

	// ErrWaitTimeout is returned by WaitUntil when the condition does not
	// become true in time.
	ErrWaitTimeout = errors.New("wait condition timed out")

	// ErrNotInFrame is returned by LeaveFrame at the top-level document.
	ErrNotInFrame = errors.New("not inside a frame")

	// ErrNoAttribute is returned when an element lacks a requested attribute.
	ErrNoAttribute = errors.New("attribute not present")
)

// Element is a handle to one element of the current document.
type Element interface {
	// Text returns the rendered text of the element.
	Text(ctx context.Context) (string, error)

	// Attribute returns the attribute value, or ErrNoAttribute.
	Attribute(ctx context.Context, name string) (string, error)

	// Click clicks the element.
	Click(ctx context.Context) error

	// Input types text into the element.
	Input(ctx context.Context, text string) error
}

// Driver is the page-driving capability the scraper depends on.
// All lookups run against the current frame; Navigate always returns the
// driver to the top-level document.
type Driver interface {
	// Navigate loads url in the top-level document and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// WaitFor blocks until sel matches an element or timeout expires.
	WaitFor(ctx context.Context, sel locator.Selector, timeout time.Duration) error

	// Find returns the first element matching sel, waiting up to the
	// driver's element timeout.
	Find(ctx context.Context, sel locator.Selector) (Element, error)

	// FindAll returns every element currently matching sel. It does not wait.
	FindAll(ctx context.Context, sel locator.Selector) ([]Element, error)

	// HTML returns the outer HTML of the current document.
	HTML(ctx context.Context) (string, error)

	// EnterFrame scopes the driver to the document of the iframe matching sel.
	EnterFrame(ctx context.Context, sel locator.Selector) error

	// LeaveFrame returns to the parent document.
	LeaveFrame() error

	// FrameDepth is 0 at the top-level document.
	FrameDepth() int
}

// WithinFrame enters the frame matching sel, runs fn, and leaves the frame
// on every exit path, including errors returned by fn.
func WithinFrame(ctx context.Context, d Driver, sel locator.Selector, fn func() error) (err error) {
	if err := d.EnterFrame(ctx, sel); err != nil {
		return err
	}
	defer func() {
		if leaveErr := d.LeaveFrame(); leaveErr != nil && err == nil {
			err = leaveErr
		}
	}()
	return fn()
}

// WaitUntil polls cond every interval until it returns true, returns an
// error, or timeout expires. A timeout yields ErrWaitTimeout.
func WaitUntil(ctx context.Context, timeout, interval time.Duration, cond func(ctx context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond(waitCtx)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			return ErrWaitTimeout
		case <-ticker.C:
		}
	}
}
