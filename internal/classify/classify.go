// Package classify maps raw Japanese notice text to a road status.
//
// This is best-effort pattern matching over noisy prose, not parsing. The
// precedence below is the contract: explicit closure wording always wins, an
// explicit lift always beats restriction keywords, and a page with no
// recognizable signal is reported open rather than unknown.
package classify

import "regexp"

// Status is the normalized passability state of a road.
type Status string

const (
	StatusOpen      Status = "open"
	StatusRegulated Status = "regulated"
	StatusClosed    Status = "closed"
)

// Severity places statuses on the total order open < regulated < closed.
func (s Status) Severity() int {
	switch s {
	case StatusClosed:
		return 2
	case StatusRegulated:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the three canonical values.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusRegulated, StatusClosed:
		return true
	}
	return false
}

// Worse returns the higher-severity of the two statuses.
func Worse(a, b Status) Status {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

var (
	closedPattern = regexp.MustCompile(`(全面|全線|通年)?通行止(め)?`)
	openPattern   = regexp.MustCompile(`規制はありません|規制なし|規制解除|解除|通行可能|通行可`)
	// Restriction keywords: partial closures, alternating one-lane passage,
	// detours, chains, and the usual limit vocabulary.
	regulatedPattern = regexp.MustCompile(`通行規制|規制|片側交互通行|片側|交互通行|一部通行|迂回|う回|チェーン|徐行|幅員|速度|重量|大型車`)
	// Bare numeric-with-unit tokens (20km/h, 3.6m, 2t, 50%) also imply an
	// active restriction even without a keyword.
	numericPattern = regexp.MustCompile(`[0-9０-９]+([.．][0-9０-９]+)?\s*(km/?h|ｋｍ/?ｈ|km|ｋｍ|m|ｍ|t|ｔ|%|％)`)
)

// Classify maps text to a status plus the matched evidence fragment.
// First match in precedence order wins; text with no signal is open.
func Classify(text string) (Status, string) {
	if m := closedPattern.FindString(text); m != "" {
		return StatusClosed, m
	}
	if m := openPattern.FindString(text); m != "" {
		return StatusOpen, m
	}
	if m := regulatedPattern.FindString(text); m != "" {
		return StatusRegulated, m
	}
	if m := numericPattern.FindString(text); m != "" {
		return StatusRegulated, m
	}
	return StatusOpen, ""
}

// HasSignal reports whether text contains any status-classifiable fragment.
// Extraction tiers use this to decide if a row or line is worth emitting.
func HasSignal(text string) bool {
	return closedPattern.MatchString(text) ||
		openPattern.MatchString(text) ||
		regulatedPattern.MatchString(text) ||
		numericPattern.MatchString(text)
}
