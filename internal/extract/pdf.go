package extract

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/endou0310-byte/rindo/internal/event"
	"github.com/endou0310-byte/rindo/internal/ocr"
)

// PDF extracts events from PDF bodies, falling back to page rasterization
// plus OCR when the embedded text layer is too thin (scanned notices).
type PDF struct {
	MinTextLen int
	OCR        ocr.Engine
}

// FromPDF pulls the text layer out of the document and, when it is shorter
// than MinTextLen, OCRs each rasterized page instead. Whichever pass yields
// more text feeds the free-text extractor.
func (p PDF) FromPDF(ctx context.Context, page Page) ([]event.Raw, error) {
	doc, err := fitz.NewFromMemory(page.Body)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close() //nolint:errcheck

	var sb strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	text := sb.String()

	if len(strings.TrimSpace(text)) < p.MinTextLen && p.OCR != nil {
		ocrText, err := p.ocrPages(ctx, doc)
		if err == nil && len(ocrText) > len(text) {
			text = ocrText
		}
	}
	return FromText(text, page.URL), nil
}

func (p PDF) ocrPages(ctx context.Context, doc *fitz.Document) (string, error) {
	var sb strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		img, err := doc.Image(i)
		if err != nil {
			continue
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			continue
		}
		text, err := p.OCR.ImageText(ctx, buf.Bytes())
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
