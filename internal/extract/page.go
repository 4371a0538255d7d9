// Package extract converts fetched bodies into raw road-status events and
// discovered links. Every pipeline here is best-effort: a stage that fails is
// logged by the caller and treated as zero events, never as a run failure.
package extract

import (
	"bytes"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/japanese"
)

// Page is one fetched document handed to an extractor or site adapter.
type Page struct {
	URL         string
	ContentType string
	Body        []byte
}

// Host returns the lowercased host of the page URL.
func (p Page) Host() string {
	u, err := url.Parse(p.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// DecodeHTML decodes the body into UTF-8. A charset declared in the header or
// in a meta tag is trusted; otherwise valid UTF-8 passes through and anything
// else is treated as Shift_JIS, the legacy encoding of the agency sites. It
// never fails: undecodable bytes become replacement runes.
func DecodeHTML(body []byte, contentType string) string {
	if declaresCharset(body, contentType) {
		if r, err := charset.NewReader(bytes.NewReader(body), contentType); err == nil {
			if decoded, readErr := io.ReadAll(r); readErr == nil {
				return string(decoded)
			}
		}
	}
	if utf8.Valid(body) {
		return string(body)
	}
	if decoded, err := io.ReadAll(japanese.ShiftJIS.NewDecoder().Reader(bytes.NewReader(body))); err == nil {
		return string(decoded)
	}
	return string(body)
}

func declaresCharset(body []byte, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "charset=") {
		return true
	}
	head := body
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("charset"))
}

// Document parses the page into a goquery document over the decoded HTML.
func (p Page) Document() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(DecodeHTML(p.Body, p.ContentType)))
}
