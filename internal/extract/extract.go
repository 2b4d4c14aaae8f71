// Package extract turns the rendered detail page of one lawyer into a
// positional field vector.
//
// The detail page is a two-column table: the first cell of every row is the
// field title and the second cell is the value. Values are read in row order,
// so the vector lines up with model.Header() as long as the page keeps its
// layout.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/oabscraper/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// DefaultRowSelector matches the rows of the detail table.
const DefaultRowSelector = "table.table-striped tbody tr"

var (
	// ErrNoRows is returned when the page has no detail table rows.
	ErrNoRows = errors.New("detail table has no rows")

	// ErrMissingCell is returned when a row has no value cell.
	ErrMissingCell = errors.New("detail row has no value cell")
)

// Fields reads the second cell of every row matching rowSelector.
// An empty rowSelector uses DefaultRowSelector.
func Fields(document, rowSelector string) (model.FieldVector, error) {
	if rowSelector == "" {
		rowSelector = DefaultRowSelector
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("failed to parse detail page: %w", err)
	}

	rows := doc.Find(rowSelector)
	if rows.Length() == 0 {
		return nil, ErrNoRows
	}

	fields := make(model.FieldVector, 0, rows.Length())
	var rowErr error
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		cell := row.Find("td").Eq(1)
		if cell.Length() == 0 {
			rowErr = fmt.Errorf("%w: row %d", ErrMissingCell, i+1)
			return false
		}
		fields = append(fields, CellText(cell.Get(0)))
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}

	return fields, nil
}

// CellText renders the visible text of n the way a browser would show it:
// line breaks and block boundaries become spaces, runs of whitespace collapse
// to one space, and the result is NFC-normalized so accented names compare
// equal regardless of how the server encoded them.
func CellText(n *html.Node) string {
	var b strings.Builder
	collectText(n, &b)
	return Normalize(b.String())
}

// Normalize collapses whitespace and applies NFC.
func Normalize(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style":
			return
		case "br", "p", "div", "li":
			b.WriteByte(' ')
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "div", "li":
			b.WriteByte(' ')
		}
	}
}
