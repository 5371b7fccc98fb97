package utils

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

// Words lowercases s and splits it on anything that is not a letter or a digit.
// Apostrophes are dropped, so "I'm" becomes "im".
func Words(s string) []string {
	s = strings.NewReplacer("'", "", "’", "").Replace(strings.ToLower(s))
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// CleanText is Words joined with single spaces.
func CleanText(s string) string {
	return strings.Join(Words(s), " ")
}

// ContainsPhrase reports whether phrase occurs in text on word boundaries.
func ContainsPhrase(text, phrase string) bool {
	p := CleanText(phrase)
	if p == "" {
		return false
	}
	return strings.Contains(" "+CleanText(text)+" ", " "+p+" ")
}

// Similarity is the difflib ratio of a and b compared character by character.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return difflib.NewMatcher(chars(a), chars(b)).Ratio()
}

// ClosestMatch returns the candidate most similar to s with a ratio of at least cutoff.
// Earlier candidates win ties.
func ClosestMatch(s string, candidates []string, cutoff float64) (string, bool) {
	best, bestRatio := "", 0.0
	for _, c := range candidates {
		if ratio := Similarity(s, c); ratio >= cutoff && ratio > bestRatio {
			best, bestRatio = c, ratio
		}
	}
	return best, best != ""
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
