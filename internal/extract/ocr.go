package extract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// OCREngine recognises text in one encoded image.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte, languages []string) (string, error)
}

// TesseractEngine is the gosseract-backed default OCR provider. A fresh
// client is created per call; gosseract clients are not safe for reuse
// across goroutines.
type TesseractEngine struct {
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine constructs a Tesseract-backed OCR engine.
func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{clientFactory: gosseract.NewClient}
}

// Recognize performs OCR on a single image with the given language hints.
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte, languages []string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	c := e.clientFactory()
	defer func() { _ = c.Close() }()

	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if len(languages) > 0 {
		if err := c.SetLanguage(languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
