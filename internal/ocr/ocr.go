// Package ocr wraps optical character recognition behind a small interface so
// the pipeline degrades to zero events when Tesseract is not installed.
package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Engine extracts text from an encoded image.
type Engine interface {
	ImageText(ctx context.Context, img []byte) (string, error)
}

// Tesseract implements Engine using the system Tesseract via gosseract.
type Tesseract struct {
	language string
}

// NewTesseract returns an engine recognizing the given language (e.g. "jpn").
func NewTesseract(language string) *Tesseract {
	if language == "" {
		language = "jpn"
	}
	return &Tesseract{language: language}
}

// ImageText runs OCR over one encoded image. A fresh client per call keeps
// the engine safe for concurrent targets.
func (t *Tesseract) ImageText(ctx context.Context, img []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client := gosseract.NewClient()
	defer client.Close() //nolint:errcheck

	if err := client.SetLanguage(t.language); err != nil {
		return "", fmt.Errorf("set ocr language: %w", err)
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("load ocr image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return text, nil
}

// Disabled is the no-op engine used when OCR is turned off.
type Disabled struct{}

// ImageText always yields empty text.
func (Disabled) ImageText(context.Context, []byte) (string, error) {
	return "", nil
}
