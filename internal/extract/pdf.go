package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sirupsen/logrus"
)

// PDFSource reads pages from a PDF on disk: pdfcpu for the text layer,
// with an OCR fallback for pages below the text-density threshold.
type PDFSource struct {
	path         string
	conf         *model.Configuration
	logger       *logrus.Logger
	ocr          OCREngine
	minTextChars int
	languages    []string

	pageCount int
}

// PDFOption configures a PDFSource.
type PDFOption func(*PDFSource)

// WithOCR sets the OCR engine used for image-based pages. Without one, such
// pages yield empty text with OCR provenance.
func WithOCR(engine OCREngine) PDFOption {
	return func(s *PDFSource) { s.ocr = engine }
}

// WithMinTextChars overrides the text-density threshold.
func WithMinTextChars(n int) PDFOption {
	return func(s *PDFSource) {
		if n > 0 {
			s.minTextChars = n
		}
	}
}

// WithLanguages sets the OCR language hints.
func WithLanguages(langs []string) PDFOption {
	return func(s *PDFSource) {
		if len(langs) > 0 {
			s.languages = langs
		}
	}
}

// OpenPDF validates the file and prepares a page source for it.
func OpenPDF(path string, logger *logrus.Logger, opts ...PDFOption) (*PDFSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat PDF file: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	// Relaxed validation: scanned documents from office scanners are often
	// slightly malformed but still perfectly extractable.
	conf.ValidationMode = model.ValidationRelaxed

	src := &PDFSource{
		path:         path,
		conf:         conf,
		logger:       logger,
		minTextChars: 50,
		languages:    []string{"eng", "heb"},
	}
	for _, opt := range opts {
		opt(src)
	}

	count, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	src.pageCount = count

	logger.WithFields(logrus.Fields{
		"file_path":  path,
		"page_count": count,
	}).Debug("Opened PDF source")
	return src, nil
}

// PageCount returns the document's page count.
func (s *PDFSource) PageCount(ctx context.Context) (int, error) {
	return s.pageCount, nil
}

// Page extracts text for the 1-based page n. The text layer is tried first;
// below the density threshold the page is treated as image-based and OCR'd.
func (s *PDFSource) Page(ctx context.Context, n int) (PageText, error) {
	if n < 1 || n > s.pageCount {
		return PageText{}, fmt.Errorf("page %d out of range (1-%d)", n, s.pageCount)
	}
	if err := ctx.Err(); err != nil {
		return PageText{}, err
	}

	text, err := s.textLayer(n)
	if err != nil {
		s.logger.WithError(err).WithField("page", n).Debug("Text layer extraction failed, falling back to OCR")
		text = ""
	}

	if PrintableCount(text) >= s.minTextChars {
		return PageText{Text: text, Provenance: ProvenanceTextLayer}, nil
	}

	ocrText, err := s.ocrPage(ctx, n)
	if err != nil {
		return PageText{}, err
	}
	return PageText{Text: ocrText, Provenance: ProvenanceOCR}, nil
}

// Close releases resources. PDFSource holds no persistent handles; it
// satisfies the Source contract.
func (s *PDFSource) Close() error {
	return nil
}

// textLayer extracts and decodes one page's content stream via pdfcpu.
func (s *PDFSource) textLayer(n int) (string, error) {
	tempDir, err := os.MkdirTemp("", "pdf2xls_text_*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			s.logger.WithError(err).Warn("Failed to clean up temp directory")
		}
	}()

	selection := []string{strconv.Itoa(n)}
	if err := api.ExtractContentFile(s.path, tempDir, selection, s.conf); err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(s.path), filepath.Ext(s.path))
	contentFile := filepath.Join(tempDir, fmt.Sprintf("%s_Content_page_%d.txt", baseName, n))
	contentBytes, err := os.ReadFile(contentFile)
	if err != nil {
		return "", fmt.Errorf("failed to read content file: %w", err)
	}

	return decodePageContent(string(contentBytes)), nil
}

// ocrPage extracts the page's images and runs them through the OCR engine.
func (s *PDFSource) ocrPage(ctx context.Context, n int) (string, error) {
	if s.ocr == nil {
		return "", nil
	}

	tempDir, err := os.MkdirTemp("", "pdf2xls_ocr_*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			s.logger.WithError(err).Warn("Failed to clean up temp directory")
		}
	}()

	selection := []string{strconv.Itoa(n)}
	if err := api.ExtractImagesFile(s.path, tempDir, selection, s.conf); err != nil {
		return "", fmt.Errorf("failed to extract page images: %w", err)
	}

	images, err := listImageFiles(tempDir)
	if err != nil {
		return "", fmt.Errorf("failed to list page images: %w", err)
	}
	if len(images) == 0 {
		return "", nil
	}

	var parts []string
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		data, err := os.ReadFile(img)
		if err != nil {
			return "", fmt.Errorf("failed to read page image: %w", err)
		}
		text, err := s.ocr.Recognize(ctx, data, s.languages)
		if err != nil {
			return "", fmt.Errorf("OCR failed on page %d: %w", n, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

func listImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png", ".tif", ".tiff", ".bmp":
			images = append(images, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(images)
	return images, nil
}
