// Package event defines the canonical road-status event model and the merge
// engine that folds extractor output into the durable store.
package event

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"github.com/endou0310-byte/rindo/internal/classify"
)

// Raw is what an extractor produces before normalization. It is never
// persisted; the merge engine converts it to a Canonical record.
type Raw struct {
	Name       string
	NormName   string
	Status     classify.Status
	StatusText string
	Reason     string
	From       string
	To         string
	Snippet    string
	SourceURL  string
}

// Canonical is the unit of truth in the store. ID is stable across runs for
// the same (pref, norm_name, canonical source URL) triple.
type Canonical struct {
	ID        string          `json:"id"`
	Pref      string          `json:"pref"`
	PrefCode  string          `json:"pref_code"`
	Name      string          `json:"name"`
	NormName  string          `json:"norm_name"`
	Status    classify.Status `json:"status"`
	Reason    string          `json:"reason,omitempty"`
	From      string          `json:"from,omitempty"`
	To        string          `json:"to,omitempty"`
	Snippet   string          `json:"snippet,omitempty"`
	SourceURL string          `json:"source_url"`
	UpdatedAt string          `json:"updated_at"`
}

// noisyParams are query parameters that vary without changing page identity.
var noisyParams = map[string]struct{}{"area_id": {}}

// CanonicalURL strips the fragment and known noisy query parameters so the
// same page always yields the same identity component.
func CanonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	if u.RawQuery != "" {
		q := u.Query()
		for p := range noisyParams {
			q.Del(p)
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// ID derives the stable event identity from the identity triple.
func ID(pref, normName, sourceURL string) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%s|%s", pref, normName, sourceURL)))
	return hex.EncodeToString(sum[:])[:16]
}

// Timestamp formats t the way the store records update times.
func Timestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}
