package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endou0310-byte/rindo/internal/classify"
	"github.com/endou0310-byte/rindo/internal/extract"
)

func yamanashiPage(rawURL, body string) extract.Page {
	return extract.Page{
		URL:         rawURL,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(body),
	}
}

func TestRegistryFor(t *testing.T) {
	r := NewRegistry()

	assert.NotNil(t, r.For("www.pref.yamanashi.jp"))
	assert.NotNil(t, r.For("pref.yamanashi.jp"))
	assert.Nil(t, r.For("www.pref.nagano.lg.jp"))
	assert.Nil(t, r.For("notpref.yamanashi.jp.example.com"))
}

func TestYamanashiListLinks(t *testing.T) {
	page := yamanashiPage("https://www.pref.yamanashi.jp/rindo/list.php", `<html><body>
		<a href="kisei.php?id=1">大菩薩線ほか</a>
		<a href="kisei.php?id=2">金山沢線</a>
		<a href="kisei.php?id=1">重複</a>
		<a href="/kankou/index.html">観光情報</a>
	</body></html>`)

	a := NewYamanashi()
	assert.Equal(t, []string{
		"https://www.pref.yamanashi.jp/rindo/kisei.php?id=1",
		"https://www.pref.yamanashi.jp/rindo/kisei.php?id=2",
	}, a.Links(page))

	// List pages carry no road names themselves.
	assert.Empty(t, a.Extract(page))
}

func TestYamanashiDetailExtract(t *testing.T) {
	page := yamanashiPage("https://www.pref.yamanashi.jp/rindo/kisei.php?id=3", `<html><body>
		<table>
			<tr><th>林道名</th><td>大菩薩線／金山沢支線・丹波山線</td></tr>
			<tr><th>規制内容</th><td>全面通行止</td></tr>
			<tr><th>期間</th><td>2024/10/01～2025/03/31</td></tr>
			<tr><th>理由</th><td>落石のため</td></tr>
		</table>
	</body></html>`)

	a := NewYamanashi()
	events := a.Extract(page)
	require.Len(t, events, 3)

	var norms []string
	for _, ev := range events {
		norms = append(norms, ev.NormName)
		assert.Equal(t, classify.StatusClosed, ev.Status)
		assert.Equal(t, "2024/10/01", ev.From)
		assert.Equal(t, "2025/03/31", ev.To)
		assert.Equal(t, "落石", ev.Reason)
		assert.Equal(t, page.URL, ev.SourceURL)
	}
	assert.Equal(t, []string{"大菩薩", "金山沢", "丹波山"}, norms)

	// Detail pages contribute no further links.
	assert.Empty(t, a.Links(page))
}

func TestYamanashiDetailWithoutNameCell(t *testing.T) {
	page := yamanashiPage("https://www.pref.yamanashi.jp/rindo/kisei.php?id=9",
		`<html><body><p>ページが見つかりません</p></body></html>`)
	assert.Empty(t, NewYamanashi().Extract(page))
}
