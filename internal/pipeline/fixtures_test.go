package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/nao1215/oabscraper/internal/browser/browsertest"
	"github.com/nao1215/oabscraper/internal/locator"
	"github.com/nao1215/oabscraper/internal/model"
)

var reg = locator.Default()

// detailHTML renders a detail table whose second column holds values.
func detailHTML(values ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="table table-striped"><tbody>`)
	for i, v := range values {
		fmt.Fprintf(&b, "<tr><td>label %d</td><td>%s</td></tr>", i+1, v)
	}
	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}

// detailPage returns a detail page document for the lawyer name. The rows
// selector matches so that the extract step's wait succeeds.
func detailPage(name string) *browsertest.Document {
	doc := browsertest.NewDocument()
	doc.HTML = detailHTML("1000", name, "", "Ativo", "Curitiba", "01/01/2000", "Rua A", "(41) 0000-0000")
	doc.Add(reg.MustGet(locator.KeyRows).Expr, browsertest.NewElement(""))
	return doc
}

// brokenPage returns a detail page without the detail table.
func brokenPage() *browsertest.Document {
	doc := browsertest.NewDocument()
	doc.HTML = `<html><body><p>erro</p></body></html>`
	return doc
}

// fakeResolver is a ChallengeResolver with a fixed answer.
type fakeResolver struct {
	state model.ChallengeState
	err   error
	calls int
}

func (f *fakeResolver) Resolve(context.Context) (model.ChallengeState, error) {
	f.calls++
	return f.state, f.err
}

// fakeAppender collects appended rows.
type fakeAppender struct {
	rows []model.FieldVector
	err  error
}

func (f *fakeAppender) Append(values model.FieldVector) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, values)
	return nil
}
