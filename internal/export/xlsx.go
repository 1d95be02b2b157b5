package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Asanta4/pdf2xls/internal/assemble"
)

const (
	sheetName = "Data"

	// maxColumnWidth caps auto-sized columns so one long cell cannot blow
	// the layout out.
	maxColumnWidth = 50.0
)

// writeXLSX renders the dataset as a single-sheet workbook: styled header
// row, numeric cells stored with a numeric cell type, and a right-to-left
// sheet view when the dominant script is RTL.
func writeXLSX(w io.Writer, ds assemble.Dataset) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	// Header row.
	for i, col := range ds.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to build header cell name: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, col); err != nil {
			return fmt.Errorf("failed to write header cell: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E0E0E0"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if len(ds.Columns) > 0 {
		last, err := excelize.CoordinatesToCellName(len(ds.Columns), 1)
		if err != nil {
			return fmt.Errorf("failed to build header range: %w", err)
		}
		if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	// Data rows: numbers keep their numeric cell type.
	for r, row := range ds.Rows {
		for c, cell := range row {
			name, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return fmt.Errorf("failed to build cell name: %w", err)
			}
			if err := f.SetCellValue(sheetName, name, cell.Value()); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", name, err)
			}
		}
	}

	if err := autoSizeColumns(f, ds); err != nil {
		return err
	}

	if ds.RTLDominant() {
		rtl := true
		if err := f.SetSheetView(sheetName, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
			return fmt.Errorf("failed to set RTL view: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// autoSizeColumns widens each column to roughly fit its longest value,
// capped at maxColumnWidth.
func autoSizeColumns(f *excelize.File, ds assemble.Dataset) error {
	widths := make([]int, len(ds.Columns))
	for i, col := range ds.Columns {
		widths[i] = len([]rune(col))
	}
	for _, row := range ds.Rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if l := len([]rune(cell.Format())); l > widths[i] {
				widths[i] = l
			}
		}
	}
	for i, w := range widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to build column name: %w", err)
		}
		width := (float64(w) + 2) * 1.2
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		if err := f.SetColWidth(sheetName, name, name, width); err != nil {
			return fmt.Errorf("failed to size column %s: %w", name, err)
		}
	}
	return nil
}
