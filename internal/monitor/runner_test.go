package monitor

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endou0310-byte/rindo/internal/classify"
	"github.com/endou0310-byte/rindo/internal/config"
	"github.com/endou0310-byte/rindo/internal/event"
	"github.com/endou0310-byte/rindo/internal/fetch"
	"github.com/endou0310-byte/rindo/internal/fingerprint"
	"github.com/endou0310-byte/rindo/internal/registry"
)

// stubFetcher serves canned pages and honors ETag validators.
type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]stubPage
	calls []string
}

type stubPage struct {
	body string
	etag string
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string, cond fetch.Conditional) (fetch.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	f.mu.Unlock()

	p, ok := f.pages[rawURL]
	if !ok {
		return fetch.Result{}, fmt.Errorf("no response for %s", rawURL)
	}
	headers := http.Header{}
	if p.etag != "" {
		headers.Set("Etag", p.etag)
	}
	if p.etag != "" && cond.ETag == p.etag {
		return fetch.Result{URL: rawURL, StatusCode: http.StatusNotModified, Headers: headers, NotModified: true}, nil
	}
	return fetch.Result{
		URL:         rawURL,
		FinalURL:    rawURL,
		StatusCode:  http.StatusOK,
		ContentType: "text/html; charset=utf-8",
		Headers:     headers,
		Body:        []byte(p.body),
	}, nil
}

const (
	indexURL = "https://www.example.jp/rindo/index.html"
	kiseiURL = "https://www.example.jp/rindo/kisei.html"
)

func testAgency() registry.Agency {
	return registry.Agency{
		Pref:          "山梨県",
		Watch:         []string{indexURL},
		WatchPatterns: []string{`kisei\.html$`},
		Crawl:         registry.CrawlPolicy{MaxDepth: 1},
	}
}

func testFetcher() *stubFetcher {
	return &stubFetcher{pages: map[string]stubPage{
		indexURL: {body: `<html><body>
			<a href="kisei.html">林道規制情報</a>
			<a href="https://www.other.jp/kisei.html">別サイト</a>
		</body></html>`},
		kiseiURL: {body: `<html><body><table>
			<tr><th>路線名</th><th>規制状況</th><th>理由</th></tr>
			<tr><td>例之沢林道</td><td>全面通行止</td><td>落石</td></tr>
			<tr><td>奥山林道</td><td>片側交互通行</td><td>工事</td></tr>
		</table></body></html>`, etag: `"v1"`},
	}}
}

func testRunner(f fetch.Fetcher, now func() time.Time) *Runner {
	return testRunnerN(f, now, 2)
}

func testRunnerN(f fetch.Fetcher, now func() time.Time, concurrency int) *Runner {
	cfg := config.MonitorConfig{Concurrency: concurrency, TimeoutSeconds: 5}
	return NewRunner(cfg, RunnerDeps{Fetcher: f, Now: now})
}

func newPrints(t *testing.T) *fingerprint.Store {
	t.Helper()
	prints, err := fingerprint.Load(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	return prints
}

func TestRunCrawlsAndMerges(t *testing.T) {
	fetcher := testFetcher()
	events := event.NewStore()
	prints := newPrints(t)
	r := testRunner(fetcher, func() time.Time { return time.Date(2024, 10, 2, 9, 0, 0, 0, time.UTC) })

	stats := r.Run(context.Background(), []registry.Agency{testAgency()}, events, prints, Options{})

	assert.Equal(t, 1, stats.Targets)
	assert.Equal(t, 2, stats.Pages)
	assert.Equal(t, 2, stats.Merged)
	assert.Zero(t, stats.Errors)
	assert.NotEmpty(t, stats.RunID)

	require.Equal(t, 2, events.Len())
	ev, ok := events.BestForName("例之沢")
	require.True(t, ok)
	assert.Equal(t, classify.StatusClosed, ev.Status)
	assert.Equal(t, "落石", ev.Reason)
	assert.Equal(t, "山梨県", ev.Pref)
	assert.Equal(t, "19", ev.PrefCode)
	assert.Equal(t, kiseiURL, ev.SourceURL)

	// Off-site link never fetched; both visited pages fingerprinted.
	assert.NotContains(t, fetcher.calls, "https://www.other.jp/kisei.html")
	assert.Equal(t, 2, prints.Len())
}

func TestRunSecondPassUnchanged(t *testing.T) {
	fetcher := testFetcher()
	events := event.NewStore()
	prints := newPrints(t)

	// Watch both pages directly so the regulation page is rechecked even
	// when the index stops yielding links.
	agency := testAgency()
	agency.Watch = []string{indexURL, kiseiURL}

	first := time.Date(2024, 10, 2, 9, 0, 0, 0, time.UTC)
	second := first.Add(6 * time.Hour)
	current := first
	r := testRunnerN(fetcher, func() time.Time { return current }, 1)

	r.Run(context.Background(), []registry.Agency{agency}, events, prints, Options{})
	updatedAfterFirst := events.Updated()

	current = second
	stats := r.Run(context.Background(), []registry.Agency{agency}, events, prints, Options{})

	// The index is skipped by body fingerprint, the regulation page by 304;
	// nothing merges.
	assert.Equal(t, 2, stats.Unchanged)
	assert.Zero(t, stats.Merged)
	assert.Equal(t, updatedAfterFirst, events.Updated())

	// The unchanged check still advances the recheck timestamp.
	fp, ok := prints.Get(kiseiURL)
	require.True(t, ok)
	assert.Equal(t, second.Format(time.RFC3339), fp.CheckedAt)
	assert.Equal(t, `"v1"`, fp.ETag)
}

func TestRunAdapterHostKeepsGenericDiscovery(t *testing.T) {
	const (
		listURL   = "https://www.pref.yamanashi.jp/forest/rindou/list.php"
		detailURL = "https://www.pref.yamanashi.jp/forest/rindou/kisei.php?id=1"
		noticeURL = "https://www.pref.yamanashi.jp/forest/rindou/oshirase.html"
	)
	fetcher := &stubFetcher{pages: map[string]stubPage{
		listURL: {body: `<html><body>
			<a href="kisei.php?id=1">大菩薩林道</a>
			<a href="oshirase.html">お知らせ</a>
		</body></html>`},
		detailURL: {body: `<html><body><table>
			<tr><th>林道名</th><td>大菩薩線</td></tr>
			<tr><th>規制内容</th><td>全面通行止</td></tr>
		</table></body></html>`},
		noticeURL: {body: `<html><body><p>各規制の詳細は一覧ページへ。</p></body></html>`},
	}}
	events := event.NewStore()
	prints := newPrints(t)
	r := testRunner(fetcher, time.Now)

	agency := registry.Agency{
		Pref:          "山梨県",
		Watch:         []string{listURL},
		WatchPatterns: []string{`oshirase\.html$`},
		Crawl:         registry.CrawlPolicy{MaxDepth: 1},
	}
	stats := r.Run(context.Background(), []registry.Agency{agency}, events, prints, Options{})

	// The site adapter contributes the detail link; the agency's watch
	// patterns still pick up the notice page from the same list.
	assert.Equal(t, 3, stats.Pages)
	assert.Contains(t, fetcher.calls, detailURL)
	assert.Contains(t, fetcher.calls, noticeURL)

	ev, ok := events.BestForName("大菩薩")
	require.True(t, ok)
	assert.Equal(t, classify.StatusClosed, ev.Status)
	assert.Equal(t, detailURL, ev.SourceURL)
}

func TestUnionLinks(t *testing.T) {
	got := unionLinks(
		[]string{"https://a.example.jp/1", "https://a.example.jp/2"},
		[]string{"https://a.example.jp/2", "https://a.example.jp/3"},
	)
	assert.Equal(t, []string{"https://a.example.jp/1", "https://a.example.jp/2", "https://a.example.jp/3"}, got)

	assert.Equal(t, []string{"https://a.example.jp/1"}, unionLinks(nil, []string{"https://a.example.jp/1"}))
}

func TestRunFullBypassesFingerprints(t *testing.T) {
	fetcher := testFetcher()
	events := event.NewStore()
	prints := newPrints(t)
	r := testRunner(fetcher, func() time.Time { return time.Now() })

	r.Run(context.Background(), []registry.Agency{testAgency()}, events, prints, Options{})
	stats := r.Run(context.Background(), []registry.Agency{testAgency()}, events, prints, Options{Full: true})

	assert.Zero(t, stats.Unchanged)
	assert.Equal(t, 2, stats.Pages)
	assert.Equal(t, 2, stats.Merged)
}

func TestRunFetchErrorIsCounted(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]stubPage{}}
	events := event.NewStore()
	prints := newPrints(t)
	r := testRunner(fetcher, time.Now)

	stats := r.Run(context.Background(), []registry.Agency{testAgency()}, events, prints, Options{})

	assert.Equal(t, 1, stats.Errors)
	assert.Zero(t, stats.Pages)
	assert.Zero(t, events.Len())
	// Failed fetches leave no fingerprint behind.
	assert.Zero(t, prints.Len())
}

func TestRunLimit(t *testing.T) {
	fetcher := testFetcher()
	events := event.NewStore()
	prints := newPrints(t)
	r := testRunner(fetcher, time.Now)

	a := testAgency()
	a.Watch = []string{indexURL, kiseiURL}

	stats := r.Run(context.Background(), []registry.Agency{a}, events, prints, Options{Limit: 1})
	assert.Equal(t, 1, stats.Targets)
}
