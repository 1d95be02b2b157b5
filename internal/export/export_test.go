package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Asanta4/pdf2xls/internal/assemble"
	"github.com/Asanta4/pdf2xls/internal/session"
	"github.com/Asanta4/pdf2xls/internal/tabular"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testDataset() assemble.Dataset {
	return assemble.Dataset{
		Columns: []string{"Name", "Price"},
		Rows: []tabular.Row{
			{tabular.String("Widget"), tabular.Number(1234.5)},
			{tabular.String("שלום"), tabular.Number(42)},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()

	path, err := Write(testLogger(), dir, "out", session.FormatCSV, testDataset())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// BOM first, CRLF line endings.
	require.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, string(data), "\r\n")

	records, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Name", "Price"}, records[0])
	// Numeric cells re-parse cleanly: no grouping separators.
	assert.Equal(t, []string{"Widget", "1234.5"}, records[1])
	assert.Equal(t, []string{"שלום", "42"}, records[2])
}

func TestWriteXLSX(t *testing.T) {
	dir := t.TempDir()

	path, err := Write(testLogger(), dir, "out", session.FormatXLSX, testDataset())
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Data")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Name", "Price"}, rows[0])
	assert.Equal(t, "Widget", rows[1][0])

	// Numbers are stored as numeric cells, not text.
	typ, err := f.GetCellType("Data", "B2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
	val, err := f.GetCellValue("Data", "B2")
	require.NoError(t, err)
	assert.Equal(t, "1234.5", val)
}

func TestWriteXLSXRightToLeftView(t *testing.T) {
	dir := t.TempDir()
	ds := assemble.Dataset{
		Columns: []string{"שם", "מחיר"},
		Rows: []tabular.Row{
			{tabular.String("פריט"), tabular.Number(5)},
		},
	}

	path, err := Write(testLogger(), dir, "rtl", session.FormatXLSX, ds)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	opts, err := f.GetSheetView("Data", 0)
	require.NoError(t, err)
	require.NotNil(t, opts.RightToLeft)
	assert.True(t, *opts.RightToLeft)
}

func TestWriteRejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()

	_, err := Write(testLogger(), dir, "out", session.Format("pdf"), testDataset())
	var exportErr *session.ExportError
	require.True(t, errors.As(err, &exportErr))

	// No artifact and no leftover partial file.
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".partial"))
		assert.False(t, strings.HasSuffix(e.Name(), ".pdf"))
	}
}

func TestWriteEmptyDataset(t *testing.T) {
	dir := t.TempDir()

	path, err := Write(testLogger(), dir, "empty", session.FormatCSV, assemble.Dataset{})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Just the BOM: no header row, no data.
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, data)
}
