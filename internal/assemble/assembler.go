// Package assemble aggregates per-page rows into one ordered dataset and
// exposes a bounded, resettable preview window.
package assemble

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Asanta4/pdf2xls/internal/session"
	"github.com/Asanta4/pdf2xls/internal/tabular"
)

// Dataset is the full ordered row sequence plus inferred column headers,
// consumed exactly once by the exporter.
type Dataset struct {
	Columns []string
	Rows    []tabular.Row
}

// RTLDominant reports whether more header/cell strings are right-to-left
// than left-to-right, which drives column direction metadata on export.
func (d Dataset) RTLDominant() bool {
	rtl, ltr := 0, 0
	count := func(s string) {
		if s == "" {
			return
		}
		if tabular.IsRTL(s) {
			rtl++
		} else {
			ltr++
		}
	}
	for _, col := range d.Columns {
		count(col)
	}
	for _, row := range d.Rows {
		for _, cell := range row {
			if cell.Kind == tabular.KindString {
				count(cell.Text)
			}
		}
	}
	return rtl > ltr
}

// Assembler owns the running dataset for one session. The controller loop is
// the single writer; preview reads may arrive concurrently from pollers.
type Assembler struct {
	mu sync.Mutex

	columns   []string
	rows      []tabular.Row
	firstPage []tabular.Row

	previewLimit int
	warnings     []string
}

// New creates an assembler with the given preview window bound.
func New(previewLimit int) *Assembler {
	if previewLimit <= 0 {
		previewLimit = 10
	}
	return &Assembler{previewLimit: previewLimit}
}

// AddPage appends a page's committed tables to the dataset and returns any
// warnings raised (column-count mismatches, recorded but non-fatal).
func (a *Assembler) AddPage(page int, tables []tabular.Table) []error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var warnings []error
	for _, table := range tables {
		rows := mergeContinuations(table.Rows)
		if len(rows) == 0 {
			continue
		}

		if a.columns == nil {
			rows = a.establishHeader(rows, table.Columns)
		} else if rowsEqualHeader(rows[0], a.columns) {
			// Subsequent pages often repeat the header row.
			rows = rows[1:]
		}

		if table.Columns != len(a.columns) {
			warnings = append(warnings, &session.ParseAmbiguityError{
				Page: page,
				Want: len(a.columns),
				Got:  table.Columns,
			})
		}

		for _, row := range rows {
			a.rows = append(a.rows, alignRow(row, len(a.columns)))
		}
	}

	if page == 1 && a.firstPage == nil && len(a.rows) > 0 {
		a.firstPage = append([]tabular.Row(nil), a.rows...)
	}

	return warnings
}

// establishHeader uses the first committed table's first row as the column
// labels when it reads like labels (numeric minority); otherwise synthetic
// names are used and the row is kept as data.
func (a *Assembler) establishHeader(rows []tabular.Row, columns int) []tabular.Row {
	first := rows[0]
	numeric := 0
	for _, cell := range first {
		if cell.Kind == tabular.KindNumber {
			numeric++
		}
	}

	if numeric*2 < len(first) {
		a.columns = make([]string, len(first))
		for i, cell := range first {
			a.columns[i] = sanitizeColumnName(cell.Format(), i)
		}
		return rows[1:]
	}

	a.columns = make([]string, columns)
	for i := range a.columns {
		a.columns[i] = fmt.Sprintf("Column %d", i+1)
	}
	return rows
}

// Dataset returns a copy of the assembled dataset.
func (a *Assembler) Dataset() Dataset {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Dataset{
		Columns: append([]string(nil), a.columns...),
		Rows:    append([]tabular.Row(nil), a.rows...),
	}
}

// RowCount returns the number of assembled data rows.
func (a *Assembler) RowCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.rows)
}

// Preview returns the first rows of the assembled dataset, bounded by the
// configured window size.
func (a *Assembler) Preview() *session.PreviewData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.previewOf(a.rows)
}

// FirstPagePreview returns the preview window anchored to page one's rows,
// independent of how far assembly has progressed. A page one that yielded no
// table rows anchors an empty window.
func (a *Assembler) FirstPagePreview() *session.PreviewData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.previewOf(a.firstPage)
}

func (a *Assembler) previewOf(rows []tabular.Row) *session.PreviewData {
	limit := a.previewLimit
	if limit > len(rows) {
		limit = len(rows)
	}
	out := &session.PreviewData{
		Columns: append([]string(nil), a.columns...),
		Rows:    make([][]any, 0, limit),
	}
	for _, row := range rows[:limit] {
		vals := make([]any, len(row))
		for i, cell := range row {
			vals[i] = cell.Value()
		}
		out.Rows = append(out.Rows, vals)
	}
	return out
}

// alignRow pads a short row with empty string cells and truncates a long one
// so every dataset row matches the header width.
func alignRow(row tabular.Row, width int) tabular.Row {
	if width <= 0 || len(row) == width {
		return row
	}
	if len(row) > width {
		return row[:width]
	}
	aligned := make(tabular.Row, width)
	copy(aligned, row)
	for i := len(row); i < width; i++ {
		aligned[i] = tabular.String("")
	}
	return aligned
}

// mergeContinuations folds rows that look like continuations of their
// predecessor (leading cells mostly empty) into the previous row.
func mergeContinuations(rows []tabular.Row) []tabular.Row {
	if len(rows) == 0 {
		return rows
	}
	merged := []tabular.Row{rows[0]}
	for _, row := range rows[1:] {
		leadingEmpty := 0
		for _, cell := range row {
			if !cell.IsEmpty() {
				break
			}
			leadingEmpty++
		}
		if leadingEmpty == 0 || leadingEmpty*2 < len(row) {
			merged = append(merged, row)
			continue
		}
		prev := merged[len(merged)-1]
		for i, cell := range row {
			if i >= len(prev) || cell.IsEmpty() {
				continue
			}
			if prev[i].IsEmpty() {
				prev[i] = cell
			} else if prev[i].Kind == tabular.KindString && cell.Kind == tabular.KindString {
				prev[i] = tabular.String(prev[i].Text + " " + cell.Text)
			}
		}
	}
	return merged
}

func rowsEqualHeader(row tabular.Row, columns []string) bool {
	if len(row) != len(columns) {
		return false
	}
	for i, cell := range row {
		if cell.Kind != tabular.KindString || cell.Text != columns[i] {
			return false
		}
	}
	return true
}

// sanitizeColumnName strips characters that break spreadsheet column labels
// and substitutes a synthetic name for empty results.
func sanitizeColumnName(name string, index int) string {
	var b []rune
	for _, r := range name {
		switch r {
		case '[', ']', '\\', '/', '*', '?', ':', '\'':
		default:
			b = append(b, r)
		}
	}
	cleaned := strings.TrimSpace(string(b))
	if cleaned == "" {
		return fmt.Sprintf("Column %d", index+1)
	}
	return cleaned
}
