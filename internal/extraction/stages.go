package extraction

import (
	"context"
	"regexp"
	"strings"

	"github.com/spigell/job-assistant/internal/conversation"
	"github.com/spigell/job-assistant/internal/roles"
	"github.com/spigell/job-assistant/internal/utils"
)

const (
	cityCutoff         = 0.7
	maxHeuristicTokens = 6
	maxLocationTokens  = 3
)

// incomeVocabulary is checked in order; the first income type with a matching phrase wins.
var incomeVocabulary = []struct {
	income  string
	phrases []string
}{
	{conversation.IncomeFullTime, []string{"full time", "permanent"}},
	{conversation.IncomePartTime, []string{"part time", "casual", "zero hour", "zero hours"}},
	{conversation.IncomeTemporary, []string{"temporary", "temp", "short term"}},
	{conversation.IncomeFreelance, []string{"freelance", "gig", "self employed", "contract"}},
	{conversation.IncomeInternship, []string{"intern", "internship", "trainee"}},
}

// NormalizeIncomeType maps free text onto one of the known income types, or "".
func NormalizeIncomeType(text string) string {
	for _, v := range incomeVocabulary {
		if v.income == strings.ToLower(strings.TrimSpace(text)) {
			return v.income
		}
		for _, phrase := range v.phrases {
			if utils.ContainsPhrase(text, phrase) {
				return v.income
			}
		}
	}
	return ""
}

// KeywordStage finds explicit vocabulary: income types, "remote" and known city names.
type KeywordStage struct {
	Cities []string
}

func (k *KeywordStage) Name() string { return "keyword" }

func (k *KeywordStage) Attempt(_ context.Context, in Input) (Signals, error) {
	var out Signals
	out.IncomeType = NormalizeIncomeType(in.Message)

	for _, city := range k.Cities {
		if utils.ContainsPhrase(in.Message, city) {
			out.Location = city
			return out, nil
		}
	}
	if utils.ContainsPhrase(in.Message, "remote") {
		out.Location = "Remote"
	}

	return out, nil
}

// Captures end at a preposition, a new clause or punctuation.
const (
	clauseWords  = `and|but|to|looking|want|doing`
	stopPattern  = `(?:\s+(?:in|near|around|based in|based|` + clauseWords + `)\b|[.,;!?]|$)`
	placePattern = `(?:\s+(?:for|as|with|` + clauseWords + `)\b|[.,;!?]|$)`
)

var (
	rolePatternRe    = regexp.MustCompile(`(?i)\b(?:work as|job as|be an?|looking for|i am an?|i'm an?|i’m an?|im an?|as an?)\s+(.+?)` + stopPattern)
	roleInLocationRe = regexp.MustCompile(`(?i)^(.+?)\s+(?:in|near|around|based in)\s+(.+?)` + placePattern)
	locationRe       = regexp.MustCompile(`(?i)\b(?:in|near|around|based in|based)\s+(.+?)` + placePattern)
)

// notLocations are things people say after "in" or "near" that are not places.
var notLocations = map[string]struct{}{
	"me": {}, "here": {}, "there": {}, "my area": {}, "the area": {}, "town": {}, "the city": {},
	"general": {}, "mind": {}, "it": {}, "this": {}, "that": {},
}

// PatternStage matches phrasing such as "work as X", "X in Y" and "based in Y".
type PatternStage struct{}

func (p *PatternStage) Name() string { return "pattern" }

func (p *PatternStage) Attempt(_ context.Context, in Input) (Signals, error) {
	var out Signals
	msg := strings.TrimSpace(in.Message)

	if m := rolePatternRe.FindStringSubmatch(msg); len(m) == 2 {
		out.Role = strings.TrimSpace(m[1])
	}

	if m := roleInLocationRe.FindStringSubmatch(msg); len(m) == 3 {
		if out.Role == "" {
			out.Role = strings.TrimSpace(m[1])
		}
		out.Location = locationCandidate(m[2])
	}

	if out.Location == "" {
		if m := locationRe.FindStringSubmatch(msg); len(m) == 2 {
			out.Location = locationCandidate(m[1])
		}
	}

	return out, nil
}

func locationCandidate(text string) string {
	clean := utils.CleanText(text)
	if _, ok := notLocations[clean]; ok || clean == "" {
		return ""
	}
	if len(strings.Fields(clean)) > maxLocationTokens {
		return ""
	}
	return strings.TrimSpace(text)
}

// Pivot words and greetings carry no role information.
var heuristicFillers = map[string]struct{}{
	"actually": {}, "instead": {}, "rather": {}, "switch": {}, "change": {}, "to": {},
	"what": {}, "about": {}, "how": {}, "try": {}, "maybe": {}, "new": {}, "search": {},
	"different": {}, "else": {}, "ok": {}, "okay": {}, "so": {}, "and": {}, "but": {},
	"well": {}, "um": {}, "hmm": {}, "oh": {}, "hi": {}, "hello": {}, "hey": {},
	"thanks": {}, "thank": {}, "you": {}, "can": {}, "could": {}, "show": {}, "some": {},
	"something": {}, "like": {}, "would": {}, "love": {}, "id": {}, "do": {}, "get": {},
}

// HeuristicStage treats a short filler-free message as a role, or as a location
// when the role is already known and only the location is missing. A known role is
// replaced only by a recognised title.
type HeuristicStage struct {
	// IsRole reports whether text is a known job title; such text is never taken as a location.
	IsRole func(text string) bool
}

func (h *HeuristicStage) Name() string { return "heuristic" }

func (h *HeuristicStage) Attempt(_ context.Context, in Input) (Signals, error) {
	var out Signals
	if in.Found.Role != "" {
		return out, nil
	}

	text := stripSalary(in.Message)

	words := make([]string, 0)
	for _, w := range strings.Fields(roles.StripFillers(text)) {
		if _, ok := heuristicFillers[w]; ok {
			continue
		}
		if _, ok := metaWords[w]; ok {
			continue
		}
		if in.Found.Location != "" && utils.ContainsPhrase(in.Found.Location, w) {
			continue
		}
		words = append(words, w)
	}
	candidate := strings.Join(words, " ")
	if candidate == "" || len(words) > maxHeuristicTokens {
		return out, nil
	}

	isRole := h.IsRole != nil && h.IsRole(candidate)

	switch {
	case !in.HasRole || isRole:
		out.Role = candidate
	case !in.HasLocation && in.Found.Location == "" && len(words) <= maxLocationTokens:
		if place := roles.StripTimeModifiers(candidate); place != "" && (h.IsRole == nil || !h.IsRole(place)) {
			out.Location = place
		}
	}

	return out, nil
}

// stripSalary removes pay text from a role candidate: "£25k waiter" -> "waiter".
func stripSalary(text string) string {
	if salary := FindSalary(text); salary != "" {
		text = strings.Replace(text, salary, " ", 1)
	}
	return utils.CollapseSpaces(text)
}

var (
	salaryRe = regexp.MustCompile(`(?i)(?:[£$€]\s?\d[\d,]*(?:\.\d+)?k?|\b\d[\d,]*(?:\.\d+)?k\b|\b\d[\d,]*(?:\.\d+)?)` +
		`(?:\s*(?:-|to)\s*[£$€]?\d[\d,]*(?:\.\d+)?k?)?` +
		`(?:\s*(?:per|/|an|a)\s*(?:year|annum|month|week|day|hour)|\s*p/?h\b)?`)
	salaryUnitRe = regexp.MustCompile(`(?i)(?:year|annum|month|week|day|hour|p/?h)$`)
	salaryKRe    = regexp.MustCompile(`(?i)\dk`)
)

// FindSalary returns the first salary-looking text verbatim. A bare number is not a salary:
// it needs a currency symbol, a "k" or a per-period suffix.
func FindSalary(message string) string {
	for _, m := range salaryRe.FindAllString(message, -1) {
		m = strings.TrimSpace(m)
		if strings.ContainsAny(m, "£$€") || salaryKRe.MatchString(m) || salaryUnitRe.MatchString(m) {
			return m
		}
	}
	return ""
}
