package fetch

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Detector decides whether an HTML body needs a headless render pass.
// Agency sites are overwhelmingly static; the detector exists for the few
// that build their restriction tables client-side.
type Detector struct {
	minHTMLBytes int
	keywords     [][]byte
}

// NewDetector constructs a Detector with the configured thresholds.
func NewDetector(minBytes int, keywords []string) *Detector {
	lower := make([][]byte, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			lower = append(lower, bytes.ToLower([]byte(kw)))
		}
	}
	return &Detector{minHTMLBytes: minBytes, keywords: lower}
}

// NeedsJS inspects the body for signals that JS rendering is required: a
// suspiciously small document, a known SPA marker, or a body element with no
// text at all.
func (d *Detector) NeedsJS(body []byte) bool {
	if d == nil || len(body) == 0 {
		return false
	}
	if d.minHTMLBytes > 0 && len(body) < d.minHTMLBytes {
		return true
	}
	lowerBody := bytes.ToLower(body)
	for _, kw := range d.keywords {
		if bytes.Contains(lowerBody, kw) {
			return true
		}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	return strings.TrimSpace(doc.Find("body").Text()) == ""
}
