// Package listing walks the paginated lawyer search results.
//
// The listing is opened once with every filter neutralized. The "last page"
// link of that first page gives the page count, and every page is then
// addressed directly through the pg query parameter.
package listing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/oabscraper/internal/browser"
	"github.com/nao1215/oabscraper/internal/locator"
	"github.com/nao1215/oabscraper/internal/model"
)

// PageParam is the query parameter carrying the 1-based page number.
const PageParam = "pg"

// ErrNoLastPage is returned when the last-page link is missing or does not
// carry a positive page number. Pagination cannot proceed without it.
var ErrNoLastPage = errors.New("last page number not found")

// Navigator opens the listing and yields the record links of each page.
type Navigator struct {
	driver      browser.Driver
	links       locator.Selector
	lastPage    locator.Selector
	baseURL     string
	waitTimeout time.Duration
	logger      *slog.Logger

	// fresh is true while the page loaded by Open is still the current
	// document and its records have not been read yet.
	fresh bool
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithWaitTimeout bounds the wait for record links after each page load.
func WithWaitTimeout(d time.Duration) Option {
	return func(n *Navigator) {
		n.waitTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Navigator) {
		n.logger = logger
	}
}

// New creates a Navigator for the listing at baseURL.
func New(d browser.Driver, reg *locator.Registry, baseURL string, opts ...Option) *Navigator {
	n := &Navigator{
		driver:      d,
		links:       reg.MustGet(locator.KeyRecordLink),
		lastPage:    reg.MustGet(locator.KeyLastPage),
		baseURL:     baseURL,
		waitTimeout: browser.DefaultElementTimeout,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// PageURL returns the listing URL for page, keeping every other query
// parameter of the base URL.
func (n *Navigator) PageURL(page int) string {
	u, err := url.Parse(n.baseURL)
	if err != nil {
		return n.baseURL + "&" + PageParam + "=" + strconv.Itoa(page)
	}
	q := u.Query()
	q.Set(PageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

// Open loads the first listing page and waits until a record link is present.
func (n *Navigator) Open(ctx context.Context) error {
	n.fresh = false
	if err := n.load(ctx, n.baseURL); err != nil {
		return model.NewError(model.KindNavigation, "open listing", err)
	}
	n.fresh = true
	n.logger.Info("listing opened", "url", n.baseURL)
	return nil
}

// LastPage reads the page number from the last-page link of the current
// listing page. It must be called right after Open.
func (n *Navigator) LastPage(ctx context.Context) (int, error) {
	el, err := n.driver.Find(ctx, n.lastPage)
	if err != nil {
		return 0, model.NewError(model.KindParsing, "last page", fmt.Errorf("%w: %w", ErrNoLastPage, err))
	}
	href, err := el.Attribute(ctx, "href")
	if err != nil {
		return 0, model.NewError(model.KindParsing, "last page", fmt.Errorf("%w: %w", ErrNoLastPage, err))
	}

	page, err := PageNumber(href)
	if err != nil {
		return 0, model.NewError(model.KindParsing, "last page", err)
	}
	return page, nil
}

// PageRecords returns the record links of page in display order.
// Page 1 reuses the document loaded by Open the first time it is read;
// every other request navigates to PageURL(page).
func (n *Navigator) PageRecords(ctx context.Context, page int) ([]model.RecordRef, error) {
	pageURL := n.baseURL
	if page == 1 && n.fresh {
		n.fresh = false
	} else {
		n.fresh = false
		pageURL = n.PageURL(page)
		if err := n.load(ctx, pageURL); err != nil {
			return nil, model.NewError(model.KindNavigation, fmt.Sprintf("load page %d", page), err)
		}
	}

	els, err := n.driver.FindAll(ctx, n.links)
	if err != nil {
		return nil, model.NewError(model.KindNavigation, fmt.Sprintf("read page %d", page), err)
	}

	refs := make([]model.RecordRef, 0, len(els))
	for i, el := range els {
		ref, err := n.recordRef(ctx, el, pageURL)
		if err != nil {
			return nil, model.NewError(model.KindNavigation, fmt.Sprintf("read page %d link %d", page, i+1), err)
		}
		refs = append(refs, ref)
	}

	n.logger.Debug("listing page read", "page", page, "records", len(refs))
	return refs, nil
}

func (n *Navigator) load(ctx context.Context, target string) error {
	if err := n.driver.Navigate(ctx, target); err != nil {
		return err
	}
	return n.driver.WaitFor(ctx, n.links, n.waitTimeout)
}

// recordRef reads the label and the absolute detail URL of one link.
func (n *Navigator) recordRef(ctx context.Context, el browser.Element, pageURL string) (model.RecordRef, error) {
	label, err := el.Text(ctx)
	if err != nil {
		return model.RecordRef{}, err
	}
	href, err := el.Attribute(ctx, "href")
	if err != nil {
		return model.RecordRef{}, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return model.RecordRef{}, err
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return model.RecordRef{}, fmt.Errorf("invalid record link %q: %w", href, err)
	}

	return model.RecordRef{
		Label: strings.Join(strings.Fields(label), " "),
		URL:   base.ResolveReference(ref).String(),
	}, nil
}

// PageNumber extracts the positive pg parameter from a listing link.
func PageNumber(href string) (int, error) {
	raw := ""
	if u, err := url.Parse(href); err == nil {
		raw = u.Query().Get(PageParam)
	}
	if raw == "" {
		// Fall back to the text after the last "pg=" for links the URL
		// parser rejects.
		if i := strings.LastIndex(href, PageParam+"="); i >= 0 {
			raw = href[i+len(PageParam)+1:]
			if j := strings.IndexAny(raw, "&#"); j >= 0 {
				raw = raw[:j]
			}
		}
	}

	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, fmt.Errorf("%w: link %q", ErrNoLastPage, href)
	}
	return page, nil
}
