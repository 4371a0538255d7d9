// Package adapter hosts per-site extraction overrides. Most agency pages go
// through the generic pipeline; a site whose layout defeats the heuristics
// gets a dedicated adapter keyed by host.
package adapter

import (
	"strings"

	"github.com/endou0310-byte/rindo/internal/event"
	"github.com/endou0310-byte/rindo/internal/extract"
)

// Adapter customizes extraction and link discovery for one site.
type Adapter interface {
	// Host is the canonical host the adapter serves, for logging.
	Host() string
	// Match reports whether the adapter handles the given host. Subdomains
	// of the canonical host match too.
	Match(host string) bool
	// Extract converts one page into raw events.
	Extract(page extract.Page) []event.Raw
	// Links returns site-specific links the crawler should follow from this
	// page, in addition to whatever the generic discovery policy finds.
	Links(page extract.Page) []string
}

// Registry resolves pages to adapters by host.
type Registry struct {
	adapters []Adapter
}

// NewRegistry returns a registry with every built-in site adapter installed.
func NewRegistry() *Registry {
	return &Registry{adapters: []Adapter{NewYamanashi()}}
}

// For returns the adapter handling the host, or nil for the generic pipeline.
func (r *Registry) For(host string) Adapter {
	host = strings.ToLower(host)
	for _, a := range r.adapters {
		if a.Match(host) {
			return a
		}
	}
	return nil
}

func hostMatches(host, canonical string) bool {
	return host == canonical || strings.HasSuffix(host, "."+canonical)
}
