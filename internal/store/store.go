// Package store persists scraped records to the output spreadsheet.
//
// The workbook is append-only: Ensure creates it with a bold header row when
// it does not exist yet, and Append writes one row after the last used row.
// Existing rows are never rewritten, reordered or deduplicated.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/nao1215/oabscraper/internal/model"
	"github.com/xuri/excelize/v2"
)

// ErrNotCreated is returned by Append and Rows when the workbook file is missing.
var ErrNotCreated = errors.New("workbook does not exist")

// Workbook is the output spreadsheet.
type Workbook struct {
	path   string
	header []string
	logger *slog.Logger

	// mu serializes open-modify-save cycles on the file.
	mu sync.Mutex
}

// Option configures a Workbook.
type Option func(*Workbook)

// WithHeader overrides the header row written by Ensure.
func WithHeader(header []string) Option {
	return func(w *Workbook) {
		w.header = append([]string(nil), header...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workbook) {
		w.logger = logger
	}
}

// New creates a Workbook bound to path. The file is not touched until
// Ensure or Append is called.
func New(path string, opts ...Option) *Workbook {
	w := &Workbook{
		path:   path,
		header: model.Header(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Path returns the workbook file path.
func (w *Workbook) Path() string {
	return w.path
}

// Ensure creates the workbook with the header row if the file does not
// exist. It reports whether the file was created. Calling it on an
// existing file leaves the file untouched.
func (w *Workbook) Ensure() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := os.Stat(w.path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to stat workbook: %w", err)
	}

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return false, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetRow(sheet, "A1", &w.header); err != nil {
		return false, fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return false, fmt.Errorf("failed to create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(w.header), 1)
	if err != nil {
		return false, err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return false, fmt.Errorf("failed to style header: %w", err)
	}

	if err := f.SaveAs(w.path); err != nil {
		return false, fmt.Errorf("failed to save workbook: %w", err)
	}

	w.logger.Info("created output workbook", "path", w.path)
	return true, nil
}

// Append writes values as a new row after the last used row of the active
// sheet. Values are written positionally; a short or long vector produces a
// short or long row.
func (w *Workbook) Append(values model.FieldVector) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read rows: %w", err)
	}

	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return err
	}

	row := []string(values)
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// Rows returns every row of the active sheet, header included.
func (w *Workbook) Rows() ([][]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return rows, nil
}

func (w *Workbook) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotCreated, w.path)
		}
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return f, nil
}
