// Package fetch retrieves pages with conditional-GET support and decides how
// their bodies should be dispatched.
package fetch

import (
	"bytes"
	"context"
	"net/http"
	"strings"
)

// Conditional carries the cached validators for a conditional request.
type Conditional struct {
	ETag         string
	LastModified string
}

// Result is the outcome of one fetch. NotModified means the server answered
// 304 and Body is empty.
type Result struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Headers     http.Header
	Body        []byte
	NotModified bool
}

// Fetcher retrieves a single URL, sending validators when provided.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, cond Conditional) (Result, error)
}

// Kind is the extraction dispatch key for a fetched body.
type Kind int

const (
	KindUnknown Kind = iota
	KindHTML
	KindPDF
	KindImage
)

// Classify derives the dispatch key: server-declared MIME first, then an HTML
// signature sniff over the leading bytes, then the URL suffix.
func Classify(contentType string, body []byte, rawURL string) Kind {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "text/html"), strings.Contains(ct, "application/xhtml"):
		return KindHTML
	case strings.Contains(ct, "application/pdf"):
		return KindPDF
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	}

	head := bytes.ToLower(body)
	if len(head) > 512 {
		head = head[:512]
	}
	if bytes.Contains(head, []byte("<html")) || bytes.Contains(head, []byte("<!doctype html")) {
		return KindHTML
	}

	lower := strings.ToLower(rawURL)
	switch {
	case strings.HasSuffix(lower, ".html"), strings.HasSuffix(lower, ".htm"),
		strings.Contains(lower, ".php"):
		return KindHTML
	case strings.HasSuffix(lower, ".pdf"):
		return KindPDF
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"),
		strings.HasSuffix(lower, ".png"):
		return KindImage
	}
	return KindUnknown
}
