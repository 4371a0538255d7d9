// Package snapshot archives fetched bodies for audit and extractor debugging.
// Snapshots are best-effort evidence; no pipeline stage ever reads one back.
package snapshot

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/endou0310-byte/rindo/internal/fetch"
)

// BlobStore writes one object and returns its URI.
type BlobStore interface {
	PutObject(ctx context.Context, objectPath string, contentType string, data io.Reader) (string, error)
}

// Saver names objects content-addressed by source URL so re-fetching a page
// overwrites its previous snapshot instead of accumulating copies.
type Saver struct {
	store  BlobStore
	prefix string
}

// NewSaver wraps a blob store. prefix becomes the leading path segment of
// every object; empty means none.
func NewSaver(store BlobStore, prefix string) *Saver {
	return &Saver{store: store, prefix: strings.Trim(prefix, "/")}
}

// Save archives one body and returns the object URI. A nil Saver is the
// disabled state and saves nothing.
func (s *Saver) Save(ctx context.Context, rawURL string, kind fetch.Kind, body []byte) (string, error) {
	if s == nil || s.store == nil {
		return "", nil
	}
	name := ObjectName(rawURL, kind)
	if s.prefix != "" {
		name = s.prefix + "/" + name
	}
	return s.store.PutObject(ctx, name, contentTypeFor(kind), bytes.NewReader(body))
}

// ObjectName derives the stable object name for a URL: a short digest plus an
// extension taken from the URL path when recognizable, else from the kind.
func ObjectName(rawURL string, kind fetch.Kind) string {
	sum := sha1.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:16] + extFor(rawURL, kind)
}

var knownExts = map[string]struct{}{
	".html": {}, ".htm": {}, ".php": {}, ".pdf": {},
	".jpg": {}, ".jpeg": {}, ".png": {},
}

func extFor(rawURL string, kind fetch.Kind) string {
	if u, err := url.Parse(rawURL); err == nil {
		ext := strings.ToLower(path.Ext(u.Path))
		if _, ok := knownExts[ext]; ok {
			return ext
		}
	}
	switch kind {
	case fetch.KindHTML:
		return ".html"
	case fetch.KindPDF:
		return ".pdf"
	case fetch.KindImage:
		return ".img"
	default:
		return ".bin"
	}
}

func contentTypeFor(kind fetch.Kind) string {
	switch kind {
	case fetch.KindHTML:
		return "text/html"
	case fetch.KindPDF:
		return "application/pdf"
	case fetch.KindImage:
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
