// Package names decides whether two person names denote the same individual
// and splits free-text BibTeX author lists into structured names.
package names

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultThreshold is the minimum Levenshtein ratio two name tokens need to
// be considered the same spelling.
const DefaultThreshold = 0.85

// Comparator compares person names tolerating case, accents, punctuation,
// spacing, initials and small typos. The zero value is not usable; use
// NewComparator.
type Comparator struct {
	threshold float64
}

// NewComparator creates a Comparator with the given similarity threshold.
// A threshold outside (0, 1] falls back to DefaultThreshold.
func NewComparator(threshold float64) *Comparator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Comparator{threshold: threshold}
}

// Threshold returns the configured similarity threshold.
func (c *Comparator) Threshold() float64 {
	return c.threshold
}

// IsSimilar reports whether (firstA, lastA) and (firstB, lastB) plausibly name
// the same person. The relation is symmetric.
func (c *Comparator) IsSimilar(firstA, lastA, firstB, lastB string) bool {
	la := Normalize(lastA)
	lb := Normalize(lastB)
	if la == "" || lb == "" {
		return false
	}
	if !c.tokensMatch(strings.ReplaceAll(la, " ", ""), strings.ReplaceAll(lb, " ", "")) {
		return false
	}
	return c.firstNamesCompatible(Normalize(firstA), Normalize(firstB))
}

// firstNamesCompatible compares normalized first names token by token over
// the shorter token list. A missing first name is compatible with anything.
func (c *Comparator) firstNamesCompatible(a, b string) bool {
	if a == "" || b == "" {
		return true
	}

	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	if len(tokensA) > len(tokensB) {
		tokensA, tokensB = tokensB, tokensA
	}

	for i, ta := range tokensA {
		tb := tokensB[i]
		if isInitial(ta) || isInitial(tb) {
			if firstRune(ta) != firstRune(tb) {
				return false
			}
			continue
		}
		if !c.tokensMatch(ta, tb) {
			return false
		}
	}
	return true
}

func (c *Comparator) tokensMatch(a, b string) bool {
	if a == b {
		return true
	}
	return Ratio(a, b) >= c.threshold
}

// Ratio returns a similarity score in [0, 1] derived from the Levenshtein
// distance of a and b: 1 - distance / max(len(a), len(b)), counted in runes.
func Ratio(a, b string) float64 {
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1.0
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(d)/float64(maxLen)
}

// Normalize folds a name to the form used for comparison: accents removed,
// lower case, hyphens turned into spaces, every other non-letter dropped and
// whitespace collapsed.
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, name); err == nil {
		name = folded
	}
	name = strings.ToLower(name)

	var sb strings.Builder
	sb.Grow(len(name))
	prevSpace := false

	for _, r := range name {
		switch {
		case unicode.IsLetter(r):
			sb.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '.':
			if !prevSpace && sb.Len() > 0 {
				sb.WriteRune(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimRight(sb.String(), " ")
}

func isInitial(token string) bool {
	return utf8.RuneCountInString(token) == 1
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}
