package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Default anchor-text keywords marking a link as interesting when an agency
// has no explicit watch patterns.
var defaultKeywords = []string{
	"林道", "森林管理道", "通行止", "通行規制", "規制", "解除", "道路",
	"交通規制", "土砂", "落石", "崩落", "災害",
}

// Default path fragments hinting at forestry/road/notice sections.
var defaultPathHints = []string{
	`/rindou`, `/rindo`, `/rindoujyouhou`, `/forest`, `/rin`, `/ringyo`, `/ringyou`,
	`/road`, `/douro`, `/kisei`, `/bosai`, `/news`, `/oshirase`, `/koho`,
}

// Default allow list: only page-like and document-like URLs are followed.
var defaultAllow = []string{
	`\.html?$`, `\.php(\?.*)?$`, `\.pdf$`, `\.jpe?g$`, `\.png$`,
}

// LinkPolicy is the compiled per-agency link filter. Deny is evaluated before
// Allow; WatchPatterns mark a link interesting directly, and in auto mode a
// keyword/path-hint heuristic is applied instead.
type LinkPolicy struct {
	Allow         []*regexp.Regexp
	Deny          []*regexp.Regexp
	WatchPatterns []*regexp.Regexp
	Keywords      []string
	PathHints     []*regexp.Regexp
	Auto          bool
}

// CompileLinkPolicy builds a LinkPolicy, substituting defaults for empty
// allow/keyword/hint lists. Invalid patterns are skipped rather than fatal.
func CompileLinkPolicy(allow, deny, watchPatterns, keywords, pathHints []string, auto bool) LinkPolicy {
	if len(allow) == 0 {
		allow = defaultAllow
	}
	if len(keywords) == 0 {
		keywords = defaultKeywords
	}
	if len(pathHints) == 0 {
		pathHints = defaultPathHints
	}
	return LinkPolicy{
		Allow:         compileAll(allow, false),
		Deny:          compileAll(deny, false),
		WatchPatterns: compileAll(watchPatterns, false),
		Keywords:      keywords,
		PathHints:     compileAll(pathHints, true),
		Auto:          auto,
	}
}

func compileAll(patterns []string, caseInsensitive bool) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if caseInsensitive {
			p = "(?i)" + p
		}
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		out = append(out, re)
	}
	return out
}

// DiscoverLinks resolves every anchor on the page to an absolute URL and
// filters it through the policy. Order of evaluation per anchor: deny, allow,
// then watch patterns or (auto mode) the keyword/path-hint heuristic.
func DiscoverLinks(page Page, policy LinkPolicy) []string {
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
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()

		if matchAny(policy.Deny, abs) {
			return
		}
		if len(policy.Allow) > 0 && !matchAny(policy.Allow, abs) {
			return
		}

		hit := matchAny(policy.WatchPatterns, abs)
		if !hit && policy.Auto {
			text := a.Text()
			for _, kw := range policy.Keywords {
				if strings.Contains(text, kw) {
					hit = true
					break
				}
			}
			if !hit {
				hit = matchAny(policy.PathHints, abs)
			}
		}
		if !hit {
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

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
