// Package table loads the operator's spreadsheet into header-addressed rows.
package table

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"lienzo/internal/pkg/errors"
)

// Table is a header plus data rows. Row numbers are 1-based and count the
// header, so the first data row is row 2, as in a spreadsheet.
type Table struct {
	Header  []string
	Rows    []Row
	columns map[string]int
}

// Row is one data row.
type Row struct {
	Number int
	cells  []string
	table  *Table
}

// New builds a Table from raw records, the first being the header. Blank
// header cells are ignored and repeated headers resolve to the first column.
func New(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, errors.Schema("table is empty: a header row is required")
	}

	t := &Table{columns: make(map[string]int)}
	for i, h := range records[0] {
		h = strings.TrimSpace(h)
		t.Header = append(t.Header, h)
		if h == "" {
			continue
		}
		if _, dup := t.columns[h]; !dup {
			t.columns[h] = i
		}
	}
	if len(t.columns) == 0 {
		return nil, errors.Schema("table header row has no column names")
	}

	for i, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		t.Rows = append(t.Rows, Row{Number: i + 2, cells: rec, table: t})
	}
	return t, nil
}

// HasColumn reports whether the header declares name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// MissingColumns returns the names not present in the header, in order.
func (t *Table) MissingColumns(names ...string) []string {
	var missing []string
	for _, n := range names {
		if !t.HasColumn(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// Lookup returns the trimmed cell value under column. An empty cell, a short
// row and an unknown column all report ok=false.
func (r Row) Lookup(column string) (string, bool) {
	idx, ok := r.table.columns[column]
	if !ok || idx >= len(r.cells) {
		return "", false
	}
	v := strings.TrimSpace(r.cells[idx])
	if v == "" {
		return "", false
	}
	return v, true
}

// Load parses r according to the extension of name.
func Load(name string, r io.Reader) (*Table, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx", ".xlsm":
		return LoadXLSX(r)
	case ".csv":
		return LoadCSV(r)
	default:
		return nil, errors.Newf(errors.CodeValidation, "unsupported table format %q (want .xlsx, .xlsm or .csv)", ext)
	}
}

// Supported reports whether Load accepts name.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".csv":
		return true
	}
	return false
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (r Row) String() string {
	return fmt.Sprintf("row %d", r.Number)
}
