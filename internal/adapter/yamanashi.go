package adapter

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/endou0310-byte/rindo/internal/classify"
	"github.com/endou0310-byte/rindo/internal/event"
	"github.com/endou0310-byte/rindo/internal/extract"
	"github.com/endou0310-byte/rindo/internal/normalize"
)

// Yamanashi handles the prefectural forest-road regulation system. List pages
// link each regulation to a kisei.php?id=N detail page; only the detail pages
// carry road names, so list pages contribute links and no events. PDFs on this
// host duplicate the detail pages and are skipped.
type Yamanashi struct{}

func NewYamanashi() *Yamanashi { return &Yamanashi{} }

const yamanashiHost = "pref.yamanashi.jp"

var (
	detailLinkPattern = regexp.MustCompile(`kisei\.php\?id=\d+$`)
	nameCellPattern   = regexp.MustCompile(`林道名|路線名`)
)

func (*Yamanashi) Host() string { return yamanashiHost }

func (*Yamanashi) Match(host string) bool { return hostMatches(host, yamanashiHost) }

// Extract parses one detail page: the 林道名 cell may list several routes
// separated by ／、・ etc., and each becomes an event sharing the page-level
// status, period, and reason.
func (*Yamanashi) Extract(page extract.Page) []event.Raw {
	if !isDetailPage(page.URL) {
		return nil
	}
	doc, err := page.Document()
	if err != nil {
		return nil
	}

	var rawNames string
	doc.Find("th,td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		if !nameCellPattern.MatchString(strings.TrimSpace(cell.Text())) {
			return true
		}
		if td := cell.Next(); td.Length() > 0 {
			rawNames = strings.TrimSpace(td.Text())
			return false
		}
		return true
	})
	if rawNames == "" {
		return nil
	}

	text := doc.Text()
	status, label := classify.Classify(text)
	from, to := extract.PickRange(text)
	reason := extract.PickReason(text)

	var out []event.Raw
	for _, part := range normalize.SplitNames(rawNames) {
		norm := normalize.Name(part)
		if norm == "" {
			continue
		}
		out = append(out, event.Raw{
			Name:       norm + "林道",
			NormName:   norm,
			Status:     status,
			StatusText: label,
			Reason:     reason,
			From:       from,
			To:         to,
			Snippet:    rawNames,
			SourceURL:  page.URL,
		})
	}
	return out
}

// Links returns the kisei.php detail links on a list page. Detail pages
// contribute no further links.
func (*Yamanashi) Links(page extract.Page) []string {
	if isDetailPage(page.URL) {
		return nil
	}
	doc, err := page.Document()
	if err != nil {
		return nil
	}
	base, err := url.Parse(page.URL)
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if !detailLinkPattern.MatchString(abs) {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	})
	return out
}

func isDetailPage(rawURL string) bool {
	return detailLinkPattern.MatchString(rawURL)
}
