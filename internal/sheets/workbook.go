package sheets

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/domain"
)

// Workbook reads tabs out of an XLSX file held in memory.
type Workbook struct {
	mu sync.Mutex
	f  *excelize.File
}

// OpenWorkbook parses an XLSX stream.
func OpenWorkbook(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return &Workbook{f: f}, nil
}

// Close releases the parsed workbook.
func (w *Workbook) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// SheetNames lists the tabs in workbook order.
func (w *Workbook) SheetNames() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.GetSheetList()
}

// ReadTable reads one tab. Tab names match case-insensitively.
func (w *Workbook) ReadTable(ctx context.Context, name string) (Table, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	sheet, ok := w.lookup(name)
	if !ok {
		return Table{}, fmt.Errorf("sheet %q: %w", name, domain.ErrNotFound)
	}

	rows, err := w.f.Rows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	var raw [][]string
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return Table{}, err
		}
		record, err := rows.Columns()
		if err != nil {
			return Table{}, fmt.Errorf("failed to read row from %s: %w", sheet, err)
		}
		raw = append(raw, record)
	}
	if err := rows.Error(); err != nil {
		return Table{}, fmt.Errorf("error iterating rows in %s: %w", sheet, err)
	}
	return newTable(name, raw), nil
}

func (w *Workbook) lookup(name string) (string, bool) {
	for _, s := range w.f.GetSheetList() {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(name)) {
			return s, true
		}
	}
	return "", false
}

// WorkbookSource re-fetches and parses an XLSX file on every Open.
type WorkbookSource struct {
	name  string
	fetch func(ctx context.Context) (io.ReadCloser, error)
}

// NewWorkbookSource wraps any fetch function that yields XLSX bytes.
func NewWorkbookSource(name string, fetch func(ctx context.Context) (io.ReadCloser, error)) *WorkbookSource {
	return &WorkbookSource{name: name, fetch: fetch}
}

// FileSource reads a workbook from the local filesystem.
func FileSource(path string) *WorkbookSource {
	return NewWorkbookSource("file:"+path, func(ctx context.Context) (io.ReadCloser, error) {
		return os.Open(path)
	})
}

// Open downloads and parses the workbook.
func (s *WorkbookSource) Open(ctx context.Context) (TableReader, error) {
	rc, err := s.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", s.name, domain.ErrSourceUnavailable, err)
	}
	defer rc.Close()

	wb, err := OpenWorkbook(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	return wb, nil
}

// String names the source for logs.
func (s *WorkbookSource) String() string { return s.name }
