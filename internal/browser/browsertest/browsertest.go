// Package browsertest provides an in-memory browser.Driver for tests.
//
// Pages are described as nested Documents: each Document maps selector
// expressions to elements and to child frames. The Driver records every
// navigation, click, input and frame change together with the frame depth it
// happened at, so tests can assert on the order of interactions.
package browsertest

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/oabscraper/internal/browser"
	"github.com/nao1215/oabscraper/internal/locator"
)

// Element is a scripted element.
type Element struct {
	// Value is returned by Text.
	Value string

	// Attrs are returned by Attribute.
	Attrs map[string]string

	// OnClick runs after a successful click. It is typically used to mutate
	// the page, e.g. to flip aria-checked.
	OnClick func()

	// ClickErr, when set, is returned by Click.
	ClickErr error

	// Clicks counts successful clicks.
	Clicks int

	// Inputs records typed text.
	Inputs []string
}

// NewElement creates an element with text and attributes given as
// name/value pairs.
func NewElement(text string, attrs ...string) *Element {
	e := &Element{Value: text, Attrs: make(map[string]string)}
	for i := 0; i+1 < len(attrs); i += 2 {
		e.Attrs[attrs[i]] = attrs[i+1]
	}
	return e
}

// Document is a scripted page or frame.
type Document struct {
	HTML     string
	Elements map[string][]*Element
	Frames   map[string]*Document
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{
		Elements: make(map[string][]*Element),
		Frames:   make(map[string]*Document),
	}
}

// Add registers elements under a selector expression.
func (d *Document) Add(expr string, els ...*Element) *Document {
	d.Elements[expr] = append(d.Elements[expr], els...)
	return d
}

// AddFrame registers a child frame under the selector expression of its iframe.
func (d *Document) AddFrame(expr string, frame *Document) *Document {
	d.Frames[expr] = frame
	return d
}

// Action is one recorded interaction.
type Action struct {
	Op     string
	Target string
	Depth  int
}

// String formats the action as "op target@depth".
func (a Action) String() string {
	return fmt.Sprintf("%s %s@%d", a.Op, a.Target, a.Depth)
}

// Driver is an in-memory browser.Driver.
type Driver struct {
	// Pages maps URLs to their top-level documents.
	Pages map[string]*Document

	// NavigateErr makes Navigate fail for specific URLs.
	NavigateErr map[string]error

	// URL is the last successfully navigated URL.
	URL string

	// Actions is the interaction log.
	Actions []Action

	stack []*Document
}

// NewDriver creates a driver with no pages.
func NewDriver() *Driver {
	return &Driver{
		Pages:       make(map[string]*Document),
		NavigateErr: make(map[string]error),
	}
}

// AddPage registers the document served for url.
func (d *Driver) AddPage(url string, doc *Document) *Driver {
	d.Pages[url] = doc
	return d
}

func (d *Driver) record(op, target string) {
	d.Actions = append(d.Actions, Action{Op: op, Target: target, Depth: d.FrameDepth()})
}

func (d *Driver) current() (*Document, error) {
	if len(d.stack) == 0 {
		return nil, fmt.Errorf("browsertest: no page loaded")
	}
	return d.stack[len(d.stack)-1], nil
}

// Navigate implements browser.Driver.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.stack = d.stack[:0]
	d.record("navigate", url)

	if err := d.NavigateErr[url]; err != nil {
		return err
	}
	doc, ok := d.Pages[url]
	if !ok {
		return fmt.Errorf("browsertest: no page for %s", url)
	}
	d.stack = append(d.stack, doc)
	d.URL = url
	return nil
}

// WaitFor implements browser.Driver. It succeeds immediately when the
// selector matches and fails immediately otherwise.
func (d *Driver) WaitFor(ctx context.Context, sel locator.Selector, _ time.Duration) error {
	d.record("wait", sel.Key)
	_, err := d.lookup(ctx, sel)
	return err
}

// Find implements browser.Driver.
func (d *Driver) Find(ctx context.Context, sel locator.Selector) (browser.Element, error) {
	els, err := d.lookup(ctx, sel)
	if err != nil {
		return nil, err
	}
	return &handle{el: els[0], driver: d, key: sel.Key}, nil
}

// FindAll implements browser.Driver.
func (d *Driver) FindAll(ctx context.Context, sel locator.Selector) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := d.current()
	if err != nil {
		return nil, err
	}
	els := doc.Elements[sel.Expr]
	result := make([]browser.Element, 0, len(els))
	for _, el := range els {
		result = append(result, &handle{el: el, driver: d, key: sel.Key})
	}
	return result, nil
}

func (d *Driver) lookup(ctx context.Context, sel locator.Selector) ([]*Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := d.current()
	if err != nil {
		return nil, err
	}
	els := doc.Elements[sel.Expr]
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrElementNotFound, sel)
	}
	return els, nil
}

// HTML implements browser.Driver.
func (d *Driver) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc, err := d.current()
	if err != nil {
		return "", err
	}
	return doc.HTML, nil
}

// EnterFrame implements browser.Driver.
func (d *Driver) EnterFrame(ctx context.Context, sel locator.Selector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := d.current()
	if err != nil {
		return err
	}
	frame, ok := doc.Frames[sel.Expr]
	if !ok {
		return fmt.Errorf("enter frame: %w: %s", browser.ErrElementNotFound, sel)
	}
	d.stack = append(d.stack, frame)
	d.record("enter", sel.Key)
	return nil
}

// LeaveFrame implements browser.Driver.
func (d *Driver) LeaveFrame() error {
	if len(d.stack) <= 1 {
		return browser.ErrNotInFrame
	}
	d.stack = d.stack[:len(d.stack)-1]
	d.record("leave", "")
	return nil
}

// FrameDepth implements browser.Driver.
func (d *Driver) FrameDepth() int {
	if len(d.stack) == 0 {
		return 0
	}
	return len(d.stack) - 1
}

// Count returns how many recorded actions match op and target.
func (d *Driver) Count(op, target string) int {
	n := 0
	for _, a := range d.Actions {
		if a.Op == op && a.Target == target {
			n++
		}
	}
	return n
}

// Last returns the last recorded action matching op and target.
func (d *Driver) Last(op, target string) (Action, bool) {
	for i := len(d.Actions) - 1; i >= 0; i-- {
		a := d.Actions[i]
		if a.Op == op && a.Target == target {
			return a, true
		}
	}
	return Action{}, false
}

// handle binds an Element to the driver that found it.
type handle struct {
	el     *Element
	driver *Driver
	key    string
}

func (h *handle) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return h.el.Value, nil
}

func (h *handle) Attribute(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, ok := h.el.Attrs[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", browser.ErrNoAttribute, name)
	}
	return v, nil
}

func (h *handle) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.driver.record("click", h.key)
	if h.el.ClickErr != nil {
		return h.el.ClickErr
	}
	h.el.Clicks++
	if h.el.OnClick != nil {
		h.el.OnClick()
	}
	return nil
}

func (h *handle) Input(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.driver.record("input", h.key)
	h.el.Inputs = append(h.el.Inputs, text)
	return nil
}
