package extract

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endou0310-byte/rindo/internal/classify"
)

// countingEngine records how often OCR ran, returning canned text.
type countingEngine struct {
	calls int
	text  string
}

func (e *countingEngine) ImageText(context.Context, []byte) (string, error) {
	e.calls++
	return e.text, nil
}

// pdfFixture builds a one-page PDF whose text layer contains exactly text.
// Offsets are computed while writing so the cross-reference table is valid.
func pdfFixture(text string) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	obj("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	obj("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
		"/Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n")
	stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	obj(fmt.Sprintf("4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(stream), stream))
	obj("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	xref := buf.Len()
	buf.WriteString(fmt.Sprintf("xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1))
	for _, off := range offsets {
		buf.WriteString(fmt.Sprintf("%010d 00000 n \n", off))
	}
	buf.WriteString(fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xref))
	return buf.Bytes()
}

func TestFromPDFEmbeddedTextSkipsOCR(t *testing.T) {
	// Well above the threshold, so the rasterize-and-OCR pass must not run.
	body := pdfFixture("Forest road regulation summary, nothing to report today.")
	engine := &countingEngine{text: "大菩薩線 全面通行止"}
	p := PDF{MinTextLen: 30, OCR: engine}

	events, err := p.FromPDF(context.Background(), Page{URL: "https://example.jp/kisei.pdf", Body: body})
	require.NoError(t, err)
	assert.Empty(t, events, "the embedded text carries no restriction signal")
	assert.Zero(t, engine.calls)
}

func TestFromPDFScannedFallsBackToOCR(t *testing.T) {
	// An empty text layer is the scanned-notice case.
	body := pdfFixture("")
	engine := &countingEngine{text: "大菩薩線 全面通行止\n奥山線 片側交互通行"}
	p := PDF{MinTextLen: 30, OCR: engine}

	page := Page{URL: "https://example.jp/scan.pdf", Body: body}
	events, err := p.FromPDF(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, 1, engine.calls, "one page, one OCR pass")

	require.Len(t, events, 2)
	assert.Equal(t, "大菩薩", events[0].NormName)
	assert.Equal(t, classify.StatusClosed, events[0].Status)
	assert.Equal(t, "奥山", events[1].NormName)
	assert.Equal(t, classify.StatusRegulated, events[1].Status)
	assert.Equal(t, page.URL, events[0].SourceURL)
}

func TestFromPDFKeepsLongerText(t *testing.T) {
	// Thin text layer triggers OCR, but OCR output shorter than the layer is
	// discarded in favor of what the document already had.
	body := pdfFixture("memo")
	engine := &countingEngine{text: "x"}
	p := PDF{MinTextLen: 30, OCR: engine}

	events, err := p.FromPDF(context.Background(), Page{URL: "https://example.jp/memo.pdf", Body: body})
	require.NoError(t, err)
	assert.Equal(t, 1, engine.calls)
	assert.Empty(t, events)
}

func TestFromPDFInvalidDocument(t *testing.T) {
	p := PDF{MinTextLen: 30}
	_, err := p.FromPDF(context.Background(), Page{URL: "https://example.jp/broken.pdf", Body: []byte("not a pdf")})
	require.Error(t, err)
}
