// Package export serialises an assembled dataset to its output artifact:
// CSV (UTF-8 with BOM, Excel-compatible) or xlsx via excelize. Artifacts are
// written atomically so a failed export never leaves a partial file behind.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/Asanta4/pdf2xls/internal/assemble"
	"github.com/Asanta4/pdf2xls/internal/session"
)

// Write produces the artifact for the dataset in dir, named <name>.<format>,
// and returns its path. On any failure the destination is left untouched
// and an ExportError is returned.
func Write(logger *logrus.Logger, dir, name string, format session.Format, ds assemble.Dataset) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", &session.ExportError{Format: format, Path: dir, Cause: err}
	}

	dest := filepath.Join(dir, fmt.Sprintf("%s.%s", name, format))
	tmp, err := os.CreateTemp(dir, name+".*.partial")
	if err != nil {
		return "", &session.ExportError{Format: format, Path: dest, Cause: err}
	}
	tmpName := tmp.Name()

	fail := func(cause error) (string, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", &session.ExportError{Format: format, Path: dest, Cause: cause}
	}

	switch format {
	case session.FormatCSV:
		if err := writeCSV(tmp, ds); err != nil {
			return fail(err)
		}
	case session.FormatXLSX:
		if err := writeXLSX(tmp, ds); err != nil {
			return fail(err)
		}
	default:
		return fail(fmt.Errorf("unsupported output format: %s", format))
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", &session.ExportError{Format: format, Path: dest, Cause: err}
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		_ = os.Remove(tmpName)
		return "", &session.ExportError{Format: format, Path: dest, Cause: err}
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return "", &session.ExportError{Format: format, Path: dest, Cause: err}
	}

	logger.WithFields(logrus.Fields{
		"artifact": dest,
		"format":   format,
		"rows":     len(ds.Rows),
	}).Debug("Artifact written")
	return dest, nil
}
