// Package ranking orders raw listings into job cards.
//
// Scores are a best-effort relevance heuristic. Only the relative order of cards is meaningful;
// absolute values may change whenever the role-family configuration does.
package ranking

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/spigell/job-assistant/internal/listings"
	"github.com/spigell/job-assistant/internal/roles"
	"github.com/spigell/job-assistant/internal/utils"
)

type Action string

const (
	ActionApply    Action = "Apply"
	ActionConsider Action = "Consider"
	ActionSkip     Action = "Skip"
)

const (
	baseScore         = 50
	minTokenLength    = 3
	specialistMalus   = 25
	locationBonus     = 15
	companyBonus      = 2
	applyThreshold    = 70
	considerThreshold = 55
	maxNotes          = 2
)

const (
	reasonStrong   = "Strong match to your role keywords."
	reasonGood     = "Good match to your role keywords."
	reasonPartial  = "Partial match to your role keywords."
	reasonLocation = "Location matches your preference."
	missingRole    = "Doesn’t strongly match your role keywords."
	missingDirect  = "Looks more like a related role than a direct match."
)

// JobCard is a scored listing ready for the swipe deck.
type JobCard struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	RedirectURL string   `json:"redirect_url"`
	Score       int      `json:"score"`
	Reasons     []string `json:"reasons"`
	Missing     []string `json:"missing"`
	Action      Action   `json:"action"`
}

// Assessment is the scoring metadata of a single listing.
type Assessment struct {
	Score   int
	Reasons []string
	Missing []string
	Action  Action
}

type Ranker struct {
	families roles.Families
}

// New returns a Ranker using families for token expansion and specialist markers.
func New(families roles.Families) *Ranker {
	if families == nil {
		families = roles.DefaultFamilies
	}
	return &Ranker{families: families}
}

// Score rates one listing against the canonical role and the requested location.
func (r *Ranker) Score(l listings.Listing, roleCanon, location string) Assessment {
	text := l.Title + " " + l.Description
	overlap := intersect(tokens(r.families.ExpandTokens(roleCanon)), tokens(utils.Words(text)))

	reasons := []string{}
	missing := []string{}
	score := baseScore

	switch {
	case overlap >= 3:
		score += 25
		reasons = append(reasons, reasonStrong)
	case overlap == 2:
		score += 18
		reasons = append(reasons, reasonGood)
	case overlap == 1:
		score += 8
		reasons = append(reasons, reasonPartial)
	default:
		score -= 12
		missing = append(missing, missingRole)
	}

	if markers := r.families.SpecialistMarkers(roleCanon); len(markers) > 0 && !mentionsAny(text, markers) {
		score -= specialistMalus
		missing = append(missing, missingDirect)
	}

	location = strings.ToLower(strings.TrimSpace(location))
	if location != "" && strings.Contains(strings.ToLower(l.Location), location) {
		score += locationBonus
		reasons = append(reasons, reasonLocation)
	}

	if strings.TrimSpace(l.Company) != "" {
		score += companyBonus
	}

	score = max(0, min(100, score))

	return Assessment{
		Score:   score,
		Reasons: head(reasons),
		Missing: head(missing),
		Action:  action(score),
	}
}

// ToCards scores listings and sorts them by score, highest first. Ties keep provider order.
// Listings with an id already seen are dropped. incomeType is already applied by the provider
// as a search filter and does not affect the score.
func (r *Ranker) ToCards(items []listings.Listing, roleCanon, location, incomeType string) []JobCard {
	cards := make([]JobCard, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, l := range items {
		id := JobID(l)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		a := r.Score(l, roleCanon, location)
		cards = append(cards, JobCard{
			ID:          id,
			Title:       l.Title,
			Company:     l.Company,
			Location:    l.Location,
			RedirectURL: l.RedirectURL,
			Score:       a.Score,
			Reasons:     a.Reasons,
			Missing:     a.Missing,
			Action:      a.Action,
		})
	}

	sort.SliceStable(cards, func(i, j int) bool { return cards[i].Score > cards[j].Score })

	return cards
}

// JobID is a stable identifier: the sha1 of title|company|location|url.
func JobID(l listings.Listing) string {
	sum := sha1.Sum([]byte(strings.Join([]string{l.Title, l.Company, l.Location, l.RedirectURL}, "|")))
	return hex.EncodeToString(sum[:])
}

func action(score int) Action {
	switch {
	case score >= applyThreshold:
		return ActionApply
	case score >= considerThreshold:
		return ActionConsider
	default:
		return ActionSkip
	}
}

func tokens(words []string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) >= minTokenLength {
			out[w] = struct{}{}
		}
	}
	return out
}

func intersect(a, b map[string]struct{}) int {
	n := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			n++
		}
	}
	return n
}

func mentionsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if utils.ContainsPhrase(text, p) {
			return true
		}
	}
	return false
}

func head(notes []string) []string {
	if len(notes) > maxNotes {
		return notes[:maxNotes]
	}
	return notes
}
