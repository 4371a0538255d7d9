// Package registry loads the agency watchlist produced by the discovery tool.
// The registry document is read-only input; this pipeline never modifies it.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

// CrawlPolicy bounds the per-agency BFS.
type CrawlPolicy struct {
	MaxDepth   int      `json:"max_depth"`
	SameDomain *bool    `json:"same_domain,omitempty"`
	Allow      []string `json:"allow,omitempty"`
	Deny       []string `json:"deny,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	PathHints  []string `json:"path_hints,omitempty"`
}

// SameDomainOnly defaults to true when the registry leaves it unset.
func (p CrawlPolicy) SameDomainOnly() bool {
	if p.SameDomain == nil {
		return true
	}
	return *p.SameDomain
}

// Agency is one monitored organization. Watch URLs are explicit entry points;
// AutoSeeds are starting points for keyword/path-hint link discovery.
type Agency struct {
	Pref          string      `json:"pref"`
	Watch         []string    `json:"watch,omitempty"`
	AutoSeeds     []string    `json:"auto_seeds,omitempty"`
	Domains       []string    `json:"domains,omitempty"`
	WatchPatterns []string    `json:"watch_patterns,omitempty"`
	Crawl         CrawlPolicy `json:"crawl"`
}

// PrefCode returns the agency's JIS X 0401 prefecture code, or "".
func (a Agency) PrefCode() string {
	return prefNameToCode[a.Pref]
}

// Load reads the ordered agency list. The registry builder writes UTF-8 with
// BOM for PowerShell compatibility, so the BOM is tolerated here.
func Load(path string) ([]Agency, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	if len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF {
		raw = raw[3:]
	}
	var agencies []Agency
	if err := json.Unmarshal(raw, &agencies); err != nil {
		return nil, fmt.Errorf("decode registry %s: %w", path, err)
	}
	return agencies, nil
}
