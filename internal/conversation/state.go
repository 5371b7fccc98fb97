// Package conversation holds per-conversation state and the stores that keep it.
package conversation

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/spigell/job-assistant/internal/ranking"
)

type Phase string

const (
	PhaseDiscovery          Phase = "discovery"
	PhaseAwaitingIncomeType Phase = "awaiting_income_type"
	PhaseReady              Phase = "ready"
	PhaseResultsFound       Phase = "results_found"
	PhaseNoResults          Phase = "no_results"
	PhasePostSwipe          Phase = "post_swipe"
	PhaseDiscussLikes       Phase = "discuss_likes"
	PhaseClarityOffer       Phase = "clarity_offer"
	PhaseClarityLevel       Phase = "clarity_level"
)

var phases = []Phase{
	PhaseDiscovery,
	PhaseAwaitingIncomeType,
	PhaseReady,
	PhaseResultsFound,
	PhaseNoResults,
	PhasePostSwipe,
	PhaseDiscussLikes,
	PhaseClarityOffer,
	PhaseClarityLevel,
}

func (p Phase) Valid() bool {
	return slices.Contains(phases, p)
}

func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown phase %q", s)
	}
	return p, nil
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*p = PhaseDiscovery
		return nil
	}
	parsed, err := ParsePhase(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Income types the assistant understands.
const (
	IncomeFullTime   = "full-time"
	IncomePartTime   = "part-time"
	IncomeTemporary  = "temporary"
	IncomeFreelance  = "freelance"
	IncomeInternship = "internship"
)

// Turn is one chat message kept for the coached reply.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Deck is the bounded subset of cached cards offered for swiping.
type Deck struct {
	ID       string   `json:"deck_id"`
	JobIDs   []string `json:"job_ids"`
	Liked    []string `json:"liked"`
	Passed   []string `json:"passed"`
	Complete bool     `json:"complete"`
}

// State is everything the assistant remembers about one conversation.
type State struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Phase          Phase  `json:"phase"`

	RoleRaw      string `json:"role_raw,omitempty"`
	RoleCanon    string `json:"role_canon,omitempty"`
	RoleDisplay  string `json:"role_display,omitempty"`
	ResolvedRole string `json:"resolved_role,omitempty"`
	RoleQuery    string `json:"role_query,omitempty"`
	Location     string `json:"location,omitempty"`
	IncomeType   string `json:"income_type,omitempty"`
	Salary       string `json:"salary,omitempty"`

	JobsShown       bool `json:"jobs_shown"`
	AskedIncomeType bool `json:"asked_income_type"`
	IncomeSkipped   bool `json:"income_skipped"`
	Readiness       bool `json:"readiness"`

	ClarityLevel int    `json:"clarity_level,omitempty"`
	Priority     string `json:"priority,omitempty"`

	CachedJobs  []ranking.JobCard `json:"cached_jobs,omitempty"`
	CurrentDeck *Deck             `json:"current_deck,omitempty"`
	History     []Turn            `json:"history,omitempty"`

	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// New returns a fresh state in the discovery phase.
func New(conversationID, userID string, now time.Time) *State {
	return &State{
		ConversationID: conversationID,
		UserID:         userID,
		Phase:          PhaseDiscovery,
		CreatedAt:      now,
		LastActivity:   now,
	}
}

// Reset replaces the state wholly, keeping only identity and history.
func (s *State) Reset(now time.Time) {
	history := s.History
	*s = *New(s.ConversationID, s.UserID, now)
	s.History = history
}

// ClearSearch drops every job-search field. Location survives when keepLocation is set.
func (s *State) ClearSearch(keepLocation bool) {
	s.RoleRaw = ""
	s.RoleCanon = ""
	s.RoleDisplay = ""
	s.ResolvedRole = ""
	s.RoleQuery = ""
	if !keepLocation {
		s.Location = ""
	}
	s.IncomeType = ""
	s.Salary = ""
	s.ResetResults()
	s.AskedIncomeType = false
	s.IncomeSkipped = false
	s.Readiness = false
}

// ResetResults forgets fetched jobs so the next ready turn searches again.
func (s *State) ResetResults() {
	s.JobsShown = false
	s.CachedJobs = nil
	s.CurrentDeck = nil
}

// HasRole reports whether a canonical role is known.
func (s *State) HasRole() bool { return s.RoleCanon != "" }

// HasLocation reports whether a location is known.
func (s *State) HasLocation() bool { return s.Location != "" }

// IncomeSettled reports whether income type is known or the user declined to choose.
func (s *State) IncomeSettled() bool { return s.IncomeType != "" || s.IncomeSkipped }

// UpdateReadiness recomputes and returns the readiness flag.
func (s *State) UpdateReadiness() bool {
	s.Readiness = s.HasRole() && s.HasLocation() && s.IncomeSettled()
	return s.Readiness
}

// AddTurn appends a chat turn, keeping at most limit entries.
func (s *State) AddTurn(role, content string, limit int) {
	s.History = append(s.History, Turn{Role: role, Content: content})
	if limit > 0 && len(s.History) > limit {
		s.History = slices.Clone(s.History[len(s.History)-limit:])
	}
}

// Card returns the cached card with id.
func (s *State) Card(id string) (ranking.JobCard, bool) {
	for _, c := range s.CachedJobs {
		if c.ID == id {
			return c, true
		}
	}
	return ranking.JobCard{}, false
}

// Clone returns a deep copy so a turn can work without touching the stored state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	out := *s
	if s.CachedJobs != nil {
		out.CachedJobs = make([]ranking.JobCard, len(s.CachedJobs))
		for i, c := range s.CachedJobs {
			c.Reasons = slices.Clone(c.Reasons)
			c.Missing = slices.Clone(c.Missing)
			out.CachedJobs[i] = c
		}
	}
	if s.CurrentDeck != nil {
		deck := *s.CurrentDeck
		deck.JobIDs = slices.Clone(deck.JobIDs)
		deck.Liked = slices.Clone(deck.Liked)
		deck.Passed = slices.Clone(deck.Passed)
		out.CurrentDeck = &deck
	}
	out.History = slices.Clone(s.History)

	return &out
}
