package extract

import (
	"context"
	"fmt"

	"github.com/endou0310-byte/rindo/internal/event"
	"github.com/endou0310-byte/rindo/internal/ocr"
)

// FromImage OCRs one image body (notice boards published as JPEG/PNG) and
// feeds the recognized text through the free-text extractor.
func FromImage(ctx context.Context, page Page, engine ocr.Engine) ([]event.Raw, error) {
	if engine == nil {
		return nil, nil
	}
	text, err := engine.ImageText(ctx, page.Body)
	if err != nil {
		return nil, fmt.Errorf("ocr image %s: %w", page.URL, err)
	}
	return FromText(text, page.URL), nil
}
