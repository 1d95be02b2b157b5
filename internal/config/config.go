// Package config centralises the engine's tunables. Every value has a
// sensible default and an environment variable override so deployments can
// adjust behaviour without code changes.
package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	// DefaultMinTextChars is the minimum number of printable characters a
	// page's text layer must contain before it is trusted. Below this the
	// page is treated as image-based and sent to OCR.
	DefaultMinTextChars = 50

	// DefaultPreviewRows bounds the preview window exposed to pollers.
	DefaultPreviewRows = 10

	// DefaultMinTableLines is the number of consecutive consistent-column
	// lines required before a table candidate is committed.
	DefaultMinTableLines = 2

	// DefaultMaxUploadSize caps accepted input files (10MB).
	DefaultMaxUploadSize = int64(10 * 1024 * 1024)

	// DefaultTesseractLangs covers bilingual Latin/Hebrew documents.
	DefaultTesseractLangs = "eng+heb"

	MinTextCharsEnvVar   = "PDF2XLS_MIN_TEXT_CHARS"
	PreviewRowsEnvVar    = "PDF2XLS_PREVIEW_ROWS"
	MinTableLinesEnvVar  = "PDF2XLS_MIN_TABLE_LINES"
	MaxUploadSizeEnvVar  = "MAX_UPLOAD_SIZE"
	TesseractLangsEnvVar = "TESSERACT_LANGS"
	UploadFolderEnvVar   = "UPLOAD_FOLDER"
	WorkFolderEnvVar     = "TEMP_FOLDER"
)

// Config holds the resolved engine configuration.
type Config struct {
	// UploadDir is where source PDFs are expected.
	UploadDir string
	// WorkDir holds session records and produced artifacts.
	WorkDir string
	// TesseractLangs is the OCR language set, tesseract "+"-joined form.
	TesseractLangs []string
	// MinTextChars is the text-layer density threshold per page.
	MinTextChars int
	// PreviewRows bounds the preview window.
	PreviewRows int
	// MinTableLines is the table-commit threshold for the parser.
	MinTableLines int
	// MaxUploadSize caps input file size in bytes.
	MaxUploadSize int64
}

// FromEnv builds a Config from the environment, falling back to defaults for
// anything unset or unparseable.
func FromEnv() Config {
	return Config{
		UploadDir:      envString(UploadFolderEnvVar, "uploads"),
		WorkDir:        envString(WorkFolderEnvVar, "work"),
		TesseractLangs: splitLangs(envString(TesseractLangsEnvVar, DefaultTesseractLangs)),
		MinTextChars:   envInt(MinTextCharsEnvVar, DefaultMinTextChars),
		PreviewRows:    envInt(PreviewRowsEnvVar, DefaultPreviewRows),
		MinTableLines:  envInt(MinTableLinesEnvVar, DefaultMinTableLines),
		MaxUploadSize:  envInt64(MaxUploadSizeEnvVar, DefaultMaxUploadSize),
	}
}

func splitLangs(s string) []string {
	var langs []string
	for _, l := range strings.Split(s, "+") {
		l = strings.TrimSpace(l)
		if l != "" {
			langs = append(langs, l)
		}
	}
	return langs
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
