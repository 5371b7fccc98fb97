package roles

import (
	"strings"

	"github.com/spigell/job-assistant/internal/utils"
)

const synonymCutoff = 0.72

type synonym struct {
	key, display string
}

// First match wins, so longer phrases go before the words they contain.
var synonyms = []synonym{
	{"app development", "Software Developer"},
	{"software engineer", "Software Developer"},
	{"software developer", "Software Developer"},
	{"web developer", "Software Developer"},
	{"frontend", "Frontend Developer"},
	{"backend", "Backend Developer"},
	{"ux", "UX Designer"},
	{"ui", "UI Designer"},
	{"data analyst", "Data Analyst"},
	{"data scientist", "Data Scientist"},
	{"mobile developer", "Mobile Developer"},
	{"waiter", "Waiter"},
	{"waitress", "Waiter"},
	{"waiting staff", "Waiter"},
	{"server", "Waiter"},
	{"bar staff", "Bartender"},
	{"bartender", "Bartender"},
	{"barista", "Barista"},
	{"chef", "Chef"},
	{"cook", "Chef"},
	{"teacher", "Teacher"},
	{"delivery driver", "Driver"},
	{"driver", "Driver"},
}

// DisplayName turns a canonical role into a UI label.
// Known synonyms map to a standard label, near misses are matched fuzzily, anything else is title-cased.
func DisplayName(canonical string) string {
	canonical = utils.CleanText(canonical)
	if canonical == "" {
		return ""
	}

	for _, s := range synonyms {
		if utils.ContainsPhrase(canonical, s.key) {
			return s.display
		}
	}

	best, bestRatio := "", 0.0
	for _, s := range synonyms {
		if ratio := utils.Similarity(canonical, s.key); ratio >= synonymCutoff && ratio > bestRatio {
			best, bestRatio = s.display, ratio
		}
	}
	if best != "" {
		return best
	}

	return titleCase(canonical)
}

// titleCase keeps short all-consonant acronyms such as "ppc" upper-case.
func titleCase(s string) string {
	words := strings.Fields(utils.TitleCase(s))
	for i, w := range words {
		if isAcronym(w) {
			words[i] = strings.ToUpper(w)
		}
	}
	return strings.Join(words, " ")
}

func isAcronym(w string) bool {
	if len(w) < 2 || len(w) > 3 {
		return false
	}
	return !strings.ContainsAny(strings.ToLower(w), "aeiouy")
}
