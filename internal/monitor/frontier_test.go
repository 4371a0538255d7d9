package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/endou0310-byte/rindo/internal/registry"
)

func TestFrontierVisitsOnce(t *testing.T) {
	f := newFrontier("https://example.jp/a.html")

	assert.False(t, f.enqueue("https://example.jp/a.html", 1))
	assert.True(t, f.enqueue("https://example.jp/b.html", 1))
	assert.False(t, f.enqueue("https://example.jp/b.html", 2))
	assert.False(t, f.enqueue("", 1))

	tk, ok := f.next()
	assert.True(t, ok)
	assert.Equal(t, "https://example.jp/a.html", tk.url)
	assert.Equal(t, 0, tk.depth)

	tk, ok = f.next()
	assert.True(t, ok)
	assert.Equal(t, "https://example.jp/b.html", tk.url)
	assert.Equal(t, 1, tk.depth)

	_, ok = f.next()
	assert.False(t, ok)
}

func TestInScope(t *testing.T) {
	sameDomain := true
	anyDomain := false

	agency := registry.Agency{
		Pref:    "山梨県",
		Domains: []string{"pref.yamanashi.jp"},
		Crawl:   registry.CrawlPolicy{SameDomain: &sameDomain},
	}

	assert.True(t, inScope("https://www.example.jp/a.html", "www.example.jp", agency))
	assert.True(t, inScope("https://www.pref.yamanashi.jp/rindo/", "www.example.jp", agency))
	assert.True(t, inScope("https://pref.yamanashi.jp/rindo/", "www.example.jp", agency))
	assert.False(t, inScope("https://www.other.jp/a.html", "www.example.jp", agency))
	assert.False(t, inScope("ftp://www.example.jp/a", "www.example.jp", agency))
	assert.False(t, inScope("://bad", "www.example.jp", agency))

	open := agency
	open.Crawl = registry.CrawlPolicy{SameDomain: &anyDomain}
	assert.True(t, inScope("https://www.other.jp/a.html", "www.example.jp", open))

	// Unset same_domain defaults to the restrictive mode.
	defaulted := registry.Agency{Pref: "山梨県"}
	assert.False(t, inScope("https://www.other.jp/a.html", "www.example.jp", defaulted))
	assert.True(t, inScope("https://www.example.jp/a.html", "www.example.jp", defaulted))
}

func TestExpandTargets(t *testing.T) {
	agencies := []registry.Agency{
		{
			Pref:          "山梨県",
			Watch:         []string{"https://www.pref.yamanashi.jp/rindo/list.php"},
			AutoSeeds:     []string{"https://www.pref.yamanashi.jp/"},
			WatchPatterns: []string{`kisei\.php\?id=\d+$`},
			Crawl:         registry.CrawlPolicy{MaxDepth: 2},
		},
		{
			Pref:      "静岡県",
			AutoSeeds: []string{"https://www.pref.shizuoka.jp/"},
		},
		{
			Pref:  "長野県",
			Watch: []string{"not a url", "https://www.pref.nagano.lg.jp/rindo/"},
		},
	}

	targets := expandTargets(agencies)
	assert.Len(t, targets, 3)

	// Watch URLs supersede the agency's auto seeds entirely.
	assert.Equal(t, "www.pref.yamanashi.jp", targets[0].seedHost)
	assert.Equal(t, 2, targets[0].maxDepth)
	assert.False(t, targets[0].policy.Auto)

	// Auto seeds only appear for agencies with nothing watched.
	assert.Equal(t, "静岡県", targets[1].agency.Pref)
	assert.True(t, targets[1].policy.Auto)

	// Depth defaults to one hop from the seed.
	assert.Equal(t, 1, targets[2].maxDepth)
	assert.Equal(t, "長野県", targets[2].agency.Pref)
}
