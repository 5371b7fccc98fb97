package dialog

import (
	"regexp"
	"strings"

	"github.com/spigell/job-assistant/internal/utils"
)

type Intent string

const (
	IntentGreeting   Intent = "greeting"
	IntentReset      Intent = "reset"
	IntentAck        Intent = "ack"
	IntentReflective Intent = "reflective"
	IntentJobSearch  Intent = "job_search"
	IntentUnknown    Intent = "unknown"
)

var (
	greetings = map[string]struct{}{"hi": {}, "hello": {}, "hey": {}, "hiya": {}}

	resetRe      = regexp.MustCompile(`(?i)\b(?:reset|start over|new search|clear everything)\b`)
	ackRe        = regexp.MustCompile(`(?i)^\s*(?:thanks|thank you|ok|okay|cool|great|nice|legend)\s*[.!?]*\s*$`)
	pivotRe      = regexp.MustCompile(`(?i)\b(?:actually|instead|change|different|switch|new\s+role|new\s+job)\b`)
	newSearchRe  = regexp.MustCompile(`(?i)\b(?:find|search|look for|can you find|what about)\b`)
	jobRe        = regexp.MustCompile(`(?i)\b(?:find|search|look for|apply|applications|openings|vacancies|listings|hire|hiring|role|job|work)\b`)
	locationHint = regexp.MustCompile(`(?i)\b(?:in|near|around|based in)\s+[a-z]`)
	reflectiveRe = regexp.MustCompile(`(?i)\b(?:confused|lost|unsure|stuck|anxious|stressed|burnt out|burned out|future|life|career path|direction)\b`)
)

// DetectIntent classifies a message without any model call.
func DetectIntent(message string) Intent {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return IntentUnknown
	}

	if _, ok := greetings[utils.CleanText(msg)]; ok {
		return IntentGreeting
	}
	if resetRe.MatchString(msg) {
		return IntentReset
	}
	if ackRe.MatchString(msg) {
		return IntentAck
	}
	if reflectiveRe.MatchString(msg) {
		// Someone unsure who still names a job and a place wants listings.
		if jobRe.MatchString(msg) && locationHint.MatchString(msg) {
			return IntentJobSearch
		}
		return IntentReflective
	}
	if jobRe.MatchString(msg) {
		return IntentJobSearch
	}

	return IntentUnknown
}

// isPivot reports whether the message starts a different search.
func isPivot(message string) bool {
	return pivotRe.MatchString(message) || newSearchRe.MatchString(message)
}

var (
	yesAnswers = map[string]struct{}{"yes": {}, "y": {}, "yeah": {}, "yep": {}, "sure": {}}
	noAnswers  = map[string]struct{}{"no": {}, "n": {}, "nah": {}, "nope": {}}
)

// answer maps a short reply onto yes or no. Button values are accepted as well.
func answer(message string, yesValue, noValue string) (yes, no bool) {
	low := strings.ToLower(strings.TrimSpace(message))
	if low == yesValue {
		return true, false
	}
	if low == noValue {
		return false, true
	}

	clean := utils.CleanText(low)
	if _, ok := yesAnswers[clean]; ok {
		return true, false
	}
	if _, ok := noAnswers[clean]; ok {
		return false, true
	}
	return false, false
}
