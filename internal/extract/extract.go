// Package extract acquires raw text per page: direct text-layer extraction
// first, OCR fallback when a page has no usable text layer.
package extract

import (
	"context"
	"unicode"
)

// Provenance records where a page's text came from.
type Provenance string

const (
	ProvenanceTextLayer Provenance = "text-layer"
	ProvenanceOCR       Provenance = "ocr"
)

// PageText is the acquisition result for one page.
type PageText struct {
	Text       string
	Provenance Provenance
}

// Source yields page text for one document. Implementations are not safe
// for concurrent use; each session owns its source.
type Source interface {
	// PageCount returns the total number of pages.
	PageCount(ctx context.Context) (int, error)
	// Page returns the text of the 1-based page n.
	Page(ctx context.Context, n int) (PageText, error)
	// Close releases any resources held by the source.
	Close() error
}

// Opener creates a Source for an input reference. The engine takes an
// Opener so tests can substitute in-memory documents.
type Opener func(ctx context.Context, inputRef string) (Source, error)

// PrintableCount counts the printable, non-space characters in s. It backs
// the minimum-density threshold that decides whether a text layer is
// usable.
func PrintableCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsPrint(r) && !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
