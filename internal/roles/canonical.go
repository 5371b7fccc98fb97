// Package roles turns free-form role text into canonical job titles and search keywords.
package roles

import (
	"regexp"
	"strings"

	"github.com/spigell/job-assistant/internal/utils"
)

var fillerWords = set(
	"job", "jobs", "role", "roles", "position", "positions", "work", "working",
	"in", "at", "for", "a", "an", "the", "as",
	"looking", "searching", "find", "me", "please",
	"i", "im", "am", "want", "need",
)

// Schedule and contract words are never part of a title.
var timeWords = set(
	"evening", "night", "overnight",
	"weekend", "weekends", "weekday", "weekdays",
	"seasonal", "temporary", "temp",
	"casual", "permanent",
	"contract", "agency", "bank",
	"shift", "shifts",
	"zero", "hour", "hours",
	"part", "full", "time",
)

var timePhrases = []string{
	"part time", "full time", "zero hours", "zero hour",
}

var badRoleKeywords = []string{
	"employment", "position", "positions", "career", "a job", "jobs", "work", "role", "roles", "job",
}

// Normalization narrows common synonyms in the matching space. Order matters.
var normalizations = []struct {
	re   *regexp.Regexp
	with string
}{
	{regexp.MustCompile(`\bwaiting staff\b`), "waiter"},
	{regexp.MustCompile(`\bwaitress\b`), "waiter"},
}

// StripFillers removes conversational filler words: "I'm looking for a chef job" -> "chef".
func StripFillers(text string) string {
	words := utils.Words(text)
	kept := words[:0]
	for _, w := range words {
		if _, ok := fillerWords[w]; !ok {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// StripTimeModifiers removes schedule and contract modifiers:
// "Evening Waiter" -> "waiter", "Zero hours bartender" -> "bartender".
func StripTimeModifiers(text string) string {
	s := " " + utils.CleanText(text) + " "

	for _, phrase := range timePhrases {
		s = strings.ReplaceAll(s, " "+phrase+" ", " ")
	}
	for _, bad := range badRoleKeywords {
		for strings.Contains(s, " "+bad+" ") {
			s = strings.ReplaceAll(s, " "+bad+" ", " ")
		}
	}

	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if _, ok := timeWords[w]; !ok {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// Canonicalize is the single pipeline shared by extraction and dataset matching.
// The result is lowercase, job-only and stable: Canonicalize(Canonicalize(x)) == Canonicalize(x).
func Canonicalize(text string) string {
	s := StripFillers(text)
	s = StripTimeModifiers(s)
	for _, n := range normalizations {
		s = n.re.ReplaceAllString(s, n.with)
	}
	return utils.CleanText(s)
}

// IsBadRole reports whether text is a generic word such as "job" or "career" rather than a title.
func IsBadRole(text string) bool {
	clean := utils.CleanText(text)
	for _, bad := range badRoleKeywords {
		if clean == bad {
			return true
		}
	}
	return false
}

func set(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}
