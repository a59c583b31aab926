// Package sheets is the spreadsheet boundary. It reads raw tabs from Google Sheets,
// Drive exports or XLSX workbooks and normalizes them into the canonical domain shapes.
package sheets

import (
	"context"
	"strings"
)

// Table is one tab as read: a header row and the data rows under it.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// TableReader reads named tabs from one consistent view of a spreadsheet.
type TableReader interface {
	ReadTable(ctx context.Context, name string) (Table, error)
}

// Source opens a TableReader for one snapshot. Workbook-backed sources download the
// file on every Open; the Sheets API source reads live.
type Source interface {
	Open(ctx context.Context) (TableReader, error)
}

// Tabs names the four tabs the console keeps.
type Tabs struct {
	Products     string
	Transactions string
	Damages      string
	CycleCounts  string
}

// DefaultTabs returns the tab names used when none are configured.
func DefaultTabs() Tabs {
	return Tabs{
		Products:     "Products",
		Transactions: "Transactions",
		Damages:      "Damages",
		CycleCounts:  "CycleCounts",
	}
}

// newTable splits raw rows into header and data, dropping fully blank rows.
func newTable(name string, raw [][]string) Table {
	t := Table{Name: name}
	for _, row := range raw {
		if isBlank(row) {
			continue
		}
		if t.Header == nil {
			t.Header = row
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// columns maps normalized header names to their index.
type columns map[string]int

func indexHeader(header []string) columns {
	cols := make(columns, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	return cols
}

// get returns the first non-empty cell among the aliases.
func (c columns) get(row []string, aliases ...string) string {
	for _, alias := range aliases {
		idx, ok := c[normalizeHeader(alias)]
		if !ok || idx >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[idx]); v != "" {
			return v
		}
	}
	return ""
}

// has reports whether any alias is present in the header.
func (c columns) has(aliases ...string) bool {
	for _, alias := range aliases {
		if _, ok := c[normalizeHeader(alias)]; ok {
			return true
		}
	}
	return false
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(h)
	return strings.Join(strings.Fields(h), " ")
}
