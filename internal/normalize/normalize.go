// Package normalize reduces forest-road names to canonical match keys.
//
// Road names arrive from dozens of agency sites with inconsistent furigana
// brackets, operator prefixes, dash glyphs and suffixes. Every component that
// needs a match key (extraction, merge, the read API) must call Name from this
// package; re-implementing any subset of the rules elsewhere is a defect.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	squareBrackets = regexp.MustCompile(`【[^】]*】`)
	roundBrackets  = regexp.MustCompile(`[（(][^（()）]*[)）]`)
	// Operator prefixes and the generic "forest management road" qualifier.
	operatorWords = regexp.MustCompile(`県営|市営|町営|村営|森林管理道`)
	separators    = regexp.MustCompile(`[・･／/、，,\s　\-]+`)
	// Trailing 支線/本線/幹線 first, then the bare 線/せん/道 suffixes. The
	// quantifier is greedy so chained suffixes ("〇〇支線線") strip in one pass,
	// which keeps Name idempotent.
	trailingSuffix = regexp.MustCompile(`(支線|本線|幹線|線|せん|道)+$`)
)

// The katakana long-vowel mark ー is deliberately not a dash variant; it is
// part of many legitimate names.
var dashVariants = strings.NewReplacer(
	"－", "-", "―", "-", "—", "-", "–", "-", "‐", "-",
)

var smallKana = strings.NewReplacer("ヶ", "ケ", "ヵ", "カ")

// Name canonicalizes a raw road name into a match key. The rule sequence is
// fixed; Name(Name(x)) == Name(x) for any input.
func Name(raw string) string {
	if raw == "" {
		return ""
	}
	t := norm.NFKC.String(raw)
	t = squareBrackets.ReplaceAllString(t, "")
	t = roundBrackets.ReplaceAllString(t, "")
	t = dashVariants.Replace(t)
	t = smallKana.Replace(t)
	t = operatorWords.ReplaceAllString(t, "")
	t = strings.ReplaceAll(t, "林道", "")
	t = separators.ReplaceAllString(t, "")
	t = trailingSuffix.ReplaceAllString(t, "")
	return t
}

// SplitNames breaks a delimited cell like 小森川／本谷釜瀬・御岳 into its
// component raw names. Suffix words are left intact; Name strips them.
var splitPattern = regexp.MustCompile(`[／/、，,・･\s　]+`)

func SplitNames(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := splitPattern.Split(norm.NFKC.String(raw), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
