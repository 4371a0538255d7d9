package extract

import (
	"regexp"
	"strings"

	"github.com/endou0310-byte/rindo/internal/classify"
	"github.com/endou0310-byte/rindo/internal/event"
	"github.com/endou0310-byte/rindo/internal/normalize"
)

const snippetLimit = 160

var (
	// Name-shaped tokens: 林道〇〇線 or 〇〇林道.
	nameAfterWord  = regexp.MustCompile(`(林道|森林管理道)(?P<n>[\p{Han}\p{Hiragana}\p{Katakana}0-9０-９々ー・･\- 　]{2,30}?)(支線|線|せん)`)
	nameBeforeWord = regexp.MustCompile(`(?P<n>[\p{Han}\p{Hiragana}\p{Katakana}0-9０-９々ー・･\- 　]{2,30}?)(林道線|林道|森林管理道)`)

	reasonPattern = regexp.MustCompile(`落石|倒木|崩落|土砂(崩れ|流出)|凍結|積雪|台風|豪雨|地震|崩土|工事|補修|点検|伐採|路肩損傷|路面損傷`)
	rangePattern  = regexp.MustCompile(`(?P<from>\d{4}[./-]\d{1,2}[./-]\d{1,2})[^0-9]{0,6}(～|~|−|-|—|–|至|まで|から|より)\s*(?P<to>\d{4}[./-]\d{1,2}[./-]\d{1,2}|未定|当面の間|当面)`)
	singleDate    = regexp.MustCompile(`\d{4}[./-]\d{1,2}[./-]\d{1,2}`)

	// Free-text pattern: a name-shaped token followed within a short window
	// by a status-shaped token.
	inlinePattern = regexp.MustCompile(`(?P<name>[\p{Han}\p{Hiragana}\p{Katakana}0-9０-９々ー・･\-]+?(支)?線).{0,8}?(?P<status>全面通行止|通行止|通行規制|片側交互通行|一部通行|う回|迂回|解除|通行可能|通行可)`)
)

// Header cells and name fragments that are labels, not road names.
var badNameSubstrings = []string{"路線名", "市町村", "現在", "管理", "センター", "注意", "について", "お知らせ"}

// Particles at either edge of a capture mean the match bled into the
// surrounding sentence, not a road name.
const particleRunes = "のはがをにでとやもへ"

func usableName(norm string) bool {
	runes := []rune(norm)
	if len(runes) < 2 {
		return false
	}
	if strings.ContainsRune(particleRunes, runes[0]) || strings.ContainsRune(particleRunes, runes[len(runes)-1]) {
		return false
	}
	for _, bad := range badNameSubstrings {
		if strings.Contains(norm, bad) {
			return false
		}
	}
	return true
}

// PickNames extracts candidate normalized road names from free text.
func PickNames(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(raw string) {
		norm := normalize.Name(raw)
		if norm == "" || !usableName(norm) {
			return
		}
		if _, dup := seen[norm]; dup {
			return
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	for _, m := range namesFrom(nameAfterWord, text) {
		add(m)
	}
	for _, m := range namesFrom(nameBeforeWord, text) {
		add(m)
	}
	return out
}

func namesFrom(re *regexp.Regexp, text string) []string {
	idx := re.SubexpIndex("n")
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if idx >= 0 && idx < len(m) {
			out = append(out, m[idx])
		}
	}
	return out
}

// PickReason returns the first recognized closure reason in text, if any.
func PickReason(text string) string {
	return reasonPattern.FindString(text)
}

// PickRange extracts a regulation period. A lone date becomes the start.
func PickRange(text string) (from, to string) {
	if m := rangePattern.FindStringSubmatch(text); m != nil {
		return m[rangePattern.SubexpIndex("from")], m[rangePattern.SubexpIndex("to")]
	}
	if d := singleDate.FindString(text); d != "" {
		return d, ""
	}
	return "", ""
}

func snippet(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > snippetLimit {
		runes = runes[:snippetLimit]
	}
	return string(runes)
}

// FromText is the generic free-text extractor used for OCR output, PDF text,
// and as the last HTML fallback: each name token adjacent to a status token
// yields one raw event.
func FromText(text, sourceURL string) []event.Raw {
	var out []event.Raw
	seen := make(map[string]struct{})
	for _, m := range inlinePattern.FindAllStringSubmatch(text, -1) {
		rawName := m[inlinePattern.SubexpIndex("name")]
		statusText := m[inlinePattern.SubexpIndex("status")]

		norm := normalize.Name(rawName)
		if norm == "" || !usableName(norm) {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}

		status, _ := classify.Classify(statusText)
		out = append(out, event.Raw{
			Name:       norm + "林道",
			NormName:   norm,
			Status:     status,
			StatusText: statusText,
			Snippet:    snippet(rawName + " " + statusText),
			SourceURL:  sourceURL,
		})
	}
	return out
}
