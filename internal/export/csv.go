package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/Asanta4/pdf2xls/internal/assemble"
)

// utf8BOM lets Excel detect UTF-8 and render Hebrew correctly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// writeCSV renders the dataset as comma-delimited CSV with a UTF-8 BOM and
// CRLF line endings. Numeric cells are written in their canonical numeric
// form (no grouping separators, so they re-parse as numbers); RTL text is
// written in logical order — visual reordering is a rendering concern.
func writeCSV(w io.Writer, ds assemble.Dataset) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if len(ds.Columns) > 0 {
		if err := cw.Write(ds.Columns); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	record := make([]string, 0, len(ds.Columns))
	for _, row := range ds.Rows {
		record = record[:0]
		for _, cell := range row {
			record = append(record, cell.Format())
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
