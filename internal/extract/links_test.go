package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func linkPage(body string) Page {
	return Page{
		URL:         "https://www.pref.example.jp/rindo/index.html",
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(body),
	}
}

func TestDiscoverLinksWatchPatterns(t *testing.T) {
	policy := CompileLinkPolicy(nil, nil, []string{`kisei\.php\?id=\d+$`}, nil, nil, false)
	page := linkPage(`<html><body>
		<a href="kisei.php?id=3">詳細</a>
		<a href="kisei.php?id=3">重複</a>
		<a href="/sitemap.html">サイトマップ</a>
		<a href="mailto:info@example.jp">連絡</a>
	</body></html>`)

	links := DiscoverLinks(page, policy)
	assert.Equal(t, []string{"https://www.pref.example.jp/rindo/kisei.php?id=3"}, links)
}

func TestDiscoverLinksAutoMode(t *testing.T) {
	policy := CompileLinkPolicy(nil, nil, nil, nil, nil, true)
	page := linkPage(`<html><body>
		<a href="/news/20240901.html">林道の通行規制について</a>
		<a href="/bosai/index.html">防災情報</a>
		<a href="/event/matsuri.html">お祭り情報</a>
		<a href="/docs/map.pdf">地図</a>
	</body></html>`)

	links := DiscoverLinks(page, policy)
	// First by anchor keyword, second by path hint; the others match neither.
	assert.Equal(t, []string{
		"https://www.pref.example.jp/news/20240901.html",
		"https://www.pref.example.jp/bosai/index.html",
	}, links)
}

func TestDiscoverLinksDenyBeforeAllow(t *testing.T) {
	policy := CompileLinkPolicy(nil, []string{`sitemap`}, []string{`\.html$`}, nil, nil, false)
	page := linkPage(`<html><body>
		<a href="/sitemap.html">サイトマップ</a>
		<a href="/kisei.html">規制情報</a>
	</body></html>`)

	links := DiscoverLinks(page, policy)
	assert.Equal(t, []string{"https://www.pref.example.jp/kisei.html"}, links)
}

func TestDiscoverLinksAllowFiltersExtensions(t *testing.T) {
	policy := CompileLinkPolicy(nil, nil, []string{`.`}, nil, nil, false)
	page := linkPage(`<html><body>
		<a href="/kisei.html">a</a>
		<a href="/notice.pdf">b</a>
		<a href="/photo.jpg">c</a>
		<a href="/archive.zip">d</a>
	</body></html>`)

	links := DiscoverLinks(page, policy)
	assert.Equal(t, []string{
		"https://www.pref.example.jp/kisei.html",
		"https://www.pref.example.jp/notice.pdf",
		"https://www.pref.example.jp/photo.jpg",
	}, links)
}
