package assemble

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Asanta4/pdf2xls/internal/session"
	"github.com/Asanta4/pdf2xls/internal/tabular"
)

func table(columns int, rows ...tabular.Row) tabular.Table {
	return tabular.Table{Rows: rows, Columns: columns}
}

func strRow(values ...string) tabular.Row {
	row := make(tabular.Row, len(values))
	for i, v := range values {
		row[i] = tabular.String(v)
	}
	return row
}

func TestAddPageUsesTextualFirstRowAsHeader(t *testing.T) {
	a := New(10)

	a.AddPage(1, []tabular.Table{table(2,
		strRow("Name", "Price"),
		tabular.Row{tabular.String("Widget"), tabular.Number(3.5)},
	)})

	ds := a.Dataset()
	assert.Equal(t, []string{"Name", "Price"}, ds.Columns)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, "Widget", ds.Rows[0][0].Text)
}

func TestAddPageSynthesisesHeaderForNumericFirstRow(t *testing.T) {
	a := New(10)

	a.AddPage(1, []tabular.Table{table(2,
		tabular.Row{tabular.Number(1), tabular.Number(2)},
		tabular.Row{tabular.Number(3), tabular.Number(4)},
	)})

	ds := a.Dataset()
	assert.Equal(t, []string{"Column 1", "Column 2"}, ds.Columns)
	// The numeric first row is data, not a header.
	assert.Len(t, ds.Rows, 2)
}

func TestAddPageDropsRepeatedHeaderOnLaterPages(t *testing.T) {
	a := New(10)

	page := []tabular.Table{table(2,
		strRow("Name", "Qty"),
		strRow("Widget", "x"),
	)}
	a.AddPage(1, page)
	a.AddPage(2, page)
	a.AddPage(3, page)

	assert.Equal(t, 3, a.RowCount())
}

func TestAddPageAlignsMismatchedRows(t *testing.T) {
	a := New(10)

	a.AddPage(1, []tabular.Table{table(3,
		strRow("A", "B", "C"),
		strRow("1r", "2r", "3r"),
	)})
	warnings := a.AddPage(2, []tabular.Table{table(2,
		strRow("short", "row"),
	)})

	require.Len(t, warnings, 1)
	var ambiguity *session.ParseAmbiguityError
	require.True(t, errors.As(warnings[0], &ambiguity))
	assert.Equal(t, 2, ambiguity.Page)
	assert.Equal(t, 3, ambiguity.Want)
	assert.Equal(t, 2, ambiguity.Got)

	ds := a.Dataset()
	// Short rows are padded to the header width.
	last := ds.Rows[len(ds.Rows)-1]
	require.Len(t, last, 3)
	assert.True(t, last[2].IsEmpty())
}

func TestAddPageTruncatesWideRows(t *testing.T) {
	a := New(10)

	a.AddPage(1, []tabular.Table{table(2,
		strRow("A", "B"),
		strRow("1r", "2r"),
	)})
	a.AddPage(2, []tabular.Table{table(3,
		strRow("x", "y", "z"),
	)})

	for _, row := range a.Dataset().Rows {
		assert.Len(t, row, 2)
	}
}

func TestMergeContinuations(t *testing.T) {
	merged := mergeContinuations([]tabular.Row{
		strRow("Widget", "desc start"),
		strRow("", "desc end"),
	})

	require.Len(t, merged, 1)
	assert.Equal(t, "Widget", merged[0][0].Text)
	assert.Equal(t, "desc start desc end", merged[0][1].Text)
}

func TestMergeContinuationsKeepsOrdinaryRows(t *testing.T) {
	rows := []tabular.Row{
		strRow("Widget", "2"),
		strRow("Gadget", "3"),
	}
	assert.Len(t, mergeContinuations(rows), 2)
}

func TestPreviewIsBounded(t *testing.T) {
	a := New(3)

	rows := []tabular.Row{strRow("Name", "Qty")}
	for i := 0; i < 8; i++ {
		rows = append(rows, strRow("item", "1"))
	}
	a.AddPage(1, []tabular.Table{table(2, rows...)})

	preview := a.Preview()
	assert.Equal(t, []string{"Name", "Qty"}, preview.Columns)
	assert.Len(t, preview.Rows, 3)
	assert.Equal(t, 8, a.RowCount())
}

func TestFirstPagePreviewSurvivesLaterPages(t *testing.T) {
	a := New(10)

	a.AddPage(1, []tabular.Table{table(2,
		strRow("Name", "Qty"),
		strRow("first", "1"),
	)})
	a.AddPage(2, []tabular.Table{table(2,
		strRow("second", "2"),
		strRow("third", "3"),
	)})

	assert.Len(t, a.Preview().Rows, 3)

	first := a.FirstPagePreview()
	require.Len(t, first.Rows, 1)
	assert.Equal(t, "first", first.Rows[0][0])
}

func TestFirstPagePreviewEmptyWhenPageOneHasNoTable(t *testing.T) {
	a := New(10)

	a.AddPage(1, nil)
	a.AddPage(2, []tabular.Table{table(2,
		strRow("Name", "Qty"),
		strRow("Widget", "1"),
	)})

	assert.Len(t, a.Preview().Rows, 1)

	// The window stays anchored to page one even though later pages
	// contributed rows.
	first := a.FirstPagePreview()
	assert.Empty(t, first.Rows)
}

func TestSanitizeColumnName(t *testing.T) {
	assert.Equal(t, "Price USD", sanitizeColumnName("Price [USD]", 0))
	assert.Equal(t, "Column 3", sanitizeColumnName("///", 2))
	assert.Equal(t, "Column 1", sanitizeColumnName("   ", 0))
}

func TestRTLDominant(t *testing.T) {
	rtl := Dataset{
		Columns: []string{"שם", "מחיר"},
		Rows:    []tabular.Row{{tabular.String("פריט"), tabular.Number(5)}},
	}
	assert.True(t, rtl.RTLDominant())

	ltr := Dataset{
		Columns: []string{"Name", "Price"},
		Rows:    []tabular.Row{{tabular.String("item"), tabular.Number(5)}},
	}
	assert.False(t, ltr.RTLDominant())
}
