// Package dialog is the conversation state machine: it decides what to ask, when to search
// and what to show next.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/job-assistant/internal/ai"
	"github.com/spigell/job-assistant/internal/conversation"
	"github.com/spigell/job-assistant/internal/extraction"
	"github.com/spigell/job-assistant/internal/logger"
	"github.com/spigell/job-assistant/internal/ranking"
	"github.com/spigell/job-assistant/internal/roles"
	"github.com/spigell/job-assistant/internal/search"
	"github.com/spigell/job-assistant/internal/utils"
)

type Mode string

const (
	ModeChat         Mode = "chat"
	ModeResults      Mode = "results"
	ModeNoResults    Mode = "no_results"
	ModeResultsFound Mode = "results_found"
	ModePostSwipe    Mode = "post_swipe"
	ModeSwipeDeck    Mode = "swipe_deck"
)

// Action types a client knows how to render.
const (
	ActionYesNo     = "YES_NO"
	ActionOpenSwipe = "OPEN_SWIPE"
)

const (
	DefaultDeckSize     = 8
	defaultReplyTimeout = 15 * time.Second
	coachHistory        = 12
	coachTemperature    = 0.45
	maxPriorityLength   = 80
)

const (
	welcomeText       = "Welcome! I’m Axis.\nTell me the role and location you’re looking for."
	resetText         = "Alright, starting fresh. Tell me the role + location you want."
	ackText           = "No worries. Want to search for something else, or tweak role/location?"
	askRoleText       = "What role are you interested in?"
	askLocationText   = "Which city or location do you prefer?"
	reaskIncomeText   = "Full-time or part-time?"
	postSwipeText     = "Quick one: do you want to talk about the jobs you liked? Yes or no."
	discussText       = "Cool. What matters most to you: pay, flexibility, location, or growth?"
	linksText         = "All good. Here are the direct links to the ones you liked:"
	noLinksText       = "All good. Nothing caught your eye this time, so tell me if you want to tweak the role or city."
	swipeSubmitText   = "Nice. Want to talk about the ones you liked?"
	deckText          = "Swipe right on the jobs you like, left on the rest."
	fallbackText      = "Tell me the role + location you want, and I’ll find jobs."
	coachFailureText  = "Sorry, I had trouble processing that. Can you tell me about the role or location you're interested in?"
	clarityRepeatText = "Do you want the quick clarity pass? Yes or no."
	clarityNoText     = "All good. Tell me the role + city you want and I’ll pull listings."
	clarityLevelText  = "Cool. What’s your experience level?\n1) Student  2) Entry  3) 1–3 yrs  4) 3–7 yrs  5) 7+ yrs"
	clarityPickText   = "Pick one number: 1) Student  2) Entry  3) 1–3 yrs  4) 3–7 yrs  5) 7+ yrs"
	clarityDoneText   = "Nice. Now tell me a role + location to search (example: waiter in Edinburgh)."
	coachPrompt       = "You are Axis, a friendly job-search assistant for people looking for work in the UK.\n" +
		"Keep replies short and practical. Never claim you searched for jobs unless the state says jobs were shown.\n" +
		"When the role or location is missing, ask for it."
)

// ErrUnknownDeck is returned by deck operations when the id does not match the current deck.
var ErrUnknownDeck = errors.New("unknown deck")

// ActionItem is a suggested UI action. Values are echoed back by the client instead of free text.
type ActionItem struct {
	Type     string `json:"type"`
	Label    string `json:"label,omitempty"`
	DeckID   string `json:"deckId,omitempty"`
	YesLabel string `json:"yesLabel,omitempty"`
	YesValue string `json:"yesValue,omitempty"`
	NoLabel  string `json:"noLabel,omitempty"`
	NoValue  string `json:"noValue,omitempty"`
}

type LinkItem struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Reply is the outcome of one turn. Slices are never nil.
type Reply struct {
	Text    string
	Mode    Mode
	Actions []ActionItem
	Jobs    []ranking.JobCard
	Links   []LinkItem
	Debug   map[string]any
}

func newReply(text string, mode Mode) Reply {
	return Reply{
		Text:    text,
		Mode:    mode,
		Actions: []ActionItem{},
		Jobs:    []ranking.JobCard{},
		Links:   []LinkItem{},
		Debug:   map[string]any{},
	}
}

func chatReply(text string, intent string) Reply {
	r := newReply(text, ModeChat)
	r.Debug["intent"] = intent
	return r
}

// Searcher runs a complete job search.
type Searcher interface {
	Run(ctx context.Context, req search.Request) (search.Result, error)
}

type Machine struct {
	extractor    *extraction.Extractor
	searcher     Searcher
	completer    ai.Completer
	model        string
	temperature  float32
	deckSize     int
	replyTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
	newDeckID    func() string
}

type Options struct {
	Extractor *extraction.Extractor
	Searcher  Searcher
	// Completer writes coached replies. Without it fixed texts are used.
	Completer    ai.Completer
	Model        string
	Temperature  float32
	DeckSize     int
	ReplyTimeout time.Duration
	Logger       *zap.Logger
}

func New(opts Options) *Machine {
	m := &Machine{
		extractor:    opts.Extractor,
		searcher:     opts.Searcher,
		completer:    opts.Completer,
		model:        opts.Model,
		temperature:  opts.Temperature,
		deckSize:     opts.DeckSize,
		replyTimeout: opts.ReplyTimeout,
		logger:       opts.Logger,
		now:          time.Now,
		newDeckID:    uuid.NewString,
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.extractor == nil {
		m.extractor = extraction.New(extraction.Options{Logger: m.logger})
	}
	if m.deckSize <= 0 {
		m.deckSize = DefaultDeckSize
	}
	if m.replyTimeout <= 0 {
		m.replyTimeout = defaultReplyTimeout
	}
	if m.temperature <= 0 {
		m.temperature = coachTemperature
	}
	return m
}

// Advance handles one user message against st, mutating it, and returns the reply.
// An error means the turn could not be completed and st must be discarded.
func (m *Machine) Advance(ctx context.Context, st *conversation.State, message string) (Reply, error) {
	msg := strings.TrimSpace(message)
	intent := DetectIntent(msg)

	switch intent {
	case IntentGreeting:
		return chatReply(welcomeText, string(intent)), nil
	case IntentReset:
		st.Reset(m.now())
		return chatReply(resetText, string(intent)), nil
	case IntentAck:
		return chatReply(ackText, string(intent)), nil
	case IntentReflective:
		return m.offerClarity(st)
	}

	switch st.Phase {
	case conversation.PhaseClarityOffer:
		return m.clarityOffer(st, msg)
	case conversation.PhaseClarityLevel:
		return m.clarityLevel(st, msg)
	case conversation.PhasePostSwipe:
		if reply, handled, err := m.postSwipe(st, msg); handled || err != nil {
			return reply, err
		}
	case conversation.PhaseDiscussLikes:
		if !isPivot(msg) {
			return m.discussLikes(ctx, st, msg)
		}
	}

	return m.discover(ctx, st, msg)
}

// searchFields are the job-search fields a pivot or a change may carry over.
type searchFields struct {
	roleRaw, roleCanon, roleDisplay, resolvedRole, roleQuery string
	location, incomeType, salary                             string
	incomeSkipped                                            bool
}

func captureSearch(st *conversation.State) searchFields {
	return searchFields{
		roleRaw:       st.RoleRaw,
		roleCanon:     st.RoleCanon,
		roleDisplay:   st.RoleDisplay,
		resolvedRole:  st.ResolvedRole,
		roleQuery:     st.RoleQuery,
		location:      st.Location,
		incomeType:    st.IncomeType,
		salary:        st.Salary,
		incomeSkipped: st.IncomeSkipped,
	}
}

func (f searchFields) restoreRole(st *conversation.State) {
	st.RoleRaw = f.roleRaw
	st.RoleCanon = f.roleCanon
	st.RoleDisplay = f.roleDisplay
	st.ResolvedRole = f.resolvedRole
	st.RoleQuery = f.roleQuery
}

func (f searchFields) restoreIncome(st *conversation.State) {
	st.IncomeType = f.incomeType
	st.IncomeSkipped = f.incomeSkipped
	st.Salary = f.salary
}

// differs reports a change between two known values. Filling an empty value is not a change.
func differs(before, after string) bool {
	return before != "" && after != "" && !strings.EqualFold(before, after)
}

func (m *Machine) discover(ctx context.Context, st *conversation.State, msg string) (Reply, error) {
	searched := st.JobsShown || st.Phase == conversation.PhaseNoResults
	original := captureSearch(st)

	pivot := isPivot(msg)
	if pivot {
		st.ClearSearch(true)
		if err := m.move(st, conversation.PhaseDiscovery); err != nil {
			return Reply{}, err
		}
	}
	prev := captureSearch(st)

	found := m.extractor.Extract(ctx, msg, st)

	// "change the city to Leeds" pivots without naming a role: keep the one we had.
	if pivot && found.Role == "" && original.roleCanon != "" && (found.Location != "" || found.IncomeType != "") {
		original.restoreRole(st)
		if found.IncomeType == "" {
			original.restoreIncome(st)
		}
	}

	changed := differs(prev.roleCanon, st.RoleCanon) ||
		differs(prev.location, st.Location) ||
		differs(prev.incomeType, st.IncomeType) ||
		(searched && !pivot && prev.incomeType == "" && st.IncomeType != "")
	if changed {
		kept := captureSearch(st)
		st.ClearSearch(false)
		kept.restoreRole(st)
		kept.restoreIncome(st)
		st.Location = kept.location
		if err := m.move(st, conversation.PhaseDiscovery); err != nil {
			return Reply{}, err
		}
	}
	st.UpdateReadiness()

	if st.Phase == conversation.PhasePostSwipe {
		reply := newReply(postSwipeText, ModePostSwipe)
		reply.Actions = append(reply.Actions, talkAction())
		reply.Debug["intent"] = "post_swipe_repeat"
		return reply, nil
	}

	if st.Phase == conversation.PhaseNoResults && (found.Role != "" || found.Location != "" || found.IncomeType != "") {
		if err := m.move(st, conversation.PhaseReady); err != nil {
			return Reply{}, err
		}
	}

	if !st.HasRole() {
		if err := m.move(st, conversation.PhaseDiscovery); err != nil {
			return Reply{}, err
		}
		return chatReply(askRoleText, "ask_role"), nil
	}
	if !st.HasLocation() {
		if err := m.move(st, conversation.PhaseDiscovery); err != nil {
			return Reply{}, err
		}
		return chatReply(askLocationText, "ask_location"), nil
	}

	if !st.IncomeSettled() {
		reply, asked, err := m.settleIncome(st, msg)
		if asked || err != nil {
			return reply, err
		}
	}

	if st.Readiness && !st.JobsShown && st.Phase != conversation.PhaseNoResults {
		return m.search(ctx, st)
	}

	return m.coach(ctx, st, msg, fallbackText)
}

// settleIncome asks the income question once and then interprets the answer.
// asked is true when the returned reply must be sent as is.
func (m *Machine) settleIncome(st *conversation.State, msg string) (reply Reply, asked bool, err error) {
	if !st.AskedIncomeType {
		st.AskedIncomeType = true
		if err := m.move(st, conversation.PhaseAwaitingIncomeType); err != nil {
			return Reply{}, true, err
		}
		reply = chatReply(fmt.Sprintf("Do you want full-time or part-time %s work in %s?", roleLabel(st), st.Location), "ask_income_type")
		reply.Actions = append(reply.Actions, incomeAction())
		return reply, true, nil
	}

	switch income, skip := incomeAnswer(msg); {
	case income != "":
		st.IncomeType = income
	case skip:
		st.IncomeSkipped = true
	default:
		if err := m.move(st, conversation.PhaseAwaitingIncomeType); err != nil {
			return Reply{}, true, err
		}
		reply = chatReply(reaskIncomeText, "ask_income_type")
		reply.Actions = append(reply.Actions, incomeAction())
		return reply, true, nil
	}

	st.JobsShown = false
	st.UpdateReadiness()
	return Reply{}, false, nil
}

var noPreference = []string{"either", "any", "both", "dont mind", "do not mind", "no preference", "whatever", "doesnt matter"}

// incomeAnswer reads a reply to the income question: a word starting with "part" or "full",
// or a phrase saying any type will do.
func incomeAnswer(msg string) (income string, skip bool) {
	for _, w := range utils.Words(msg) {
		switch {
		case strings.HasPrefix(w, "part"):
			return conversation.IncomePartTime, false
		case strings.HasPrefix(w, "full"):
			return conversation.IncomeFullTime, false
		}
	}
	for _, phrase := range noPreference {
		if utils.ContainsPhrase(msg, phrase) {
			return "", true
		}
	}
	return "", false
}

func (m *Machine) search(ctx context.Context, st *conversation.State) (Reply, error) {
	if err := m.move(st, conversation.PhaseReady); err != nil {
		return Reply{}, err
	}

	keywords := st.RoleQuery
	if keywords == "" {
		keywords = roles.BuildSearchKeywords(st.RoleCanon)
	}
	label := st.ResolvedRole
	if label == "" {
		label = st.RoleCanon
	}

	result := search.Result{Cards: []ranking.JobCard{}}
	if m.searcher != nil {
		res, err := m.searcher.Run(ctx, search.Request{
			Keywords:   keywords,
			Location:   st.Location,
			IncomeType: st.IncomeType,
			RoleCanon:  st.RoleCanon,
		})
		switch {
		case ctx.Err() != nil:
			return Reply{}, ctx.Err()
		case err != nil:
			logger.WithConversation(m.logger, st.ConversationID, st.UserID).
				Warn("listing search failed, reporting no results", zap.Error(err))
		default:
			result = res
		}
	}

	debug := map[string]any{
		"intent":          "search",
		"resolved_role":   label,
		"search_keywords": keywords,
		"income_type":     st.IncomeType,
		"total_found":     len(result.Cards),
	}

	if len(result.Cards) == 0 {
		st.ResetResults()
		if err := m.move(st, conversation.PhaseNoResults); err != nil {
			return Reply{}, err
		}
		reply := newReply(noResultsText(label, st), ModeNoResults)
		reply.Debug = debug
		return reply, nil
	}

	st.CachedJobs = result.Cards
	st.JobsShown = true
	if err := m.move(st, conversation.PhaseResultsFound); err != nil {
		return Reply{}, err
	}

	size := min(m.deckSize, len(result.Cards))
	deck := &conversation.Deck{
		ID:     m.newDeckID(),
		JobIDs: make([]string, 0, size),
		Liked:  []string{},
		Passed: []string{},
	}
	for _, c := range result.Cards[:size] {
		deck.JobIDs = append(deck.JobIDs, c.ID)
	}
	st.CurrentDeck = deck

	reply := newReply(fmt.Sprintf("Found %d listings for '%s' in %s.\nWant to swipe through the top %d?",
		len(result.Cards), label, st.Location, size), ModeResultsFound)
	reply.Actions = append(reply.Actions, ActionItem{Type: ActionOpenSwipe, Label: "Swipe jobs", DeckID: deck.ID})
	reply.Jobs = append(reply.Jobs, result.Cards[:size]...)
	debug["deck_size"] = size
	reply.Debug = debug

	return reply, nil
}

func noResultsText(label string, st *conversation.State) string {
	text := fmt.Sprintf("I couldn’t find any listings for '%s' in %s.\nTry a nearby city or a broader title (e.g. 'software engineer')", label, st.Location)
	if st.IncomeType != "" {
		return text + fmt.Sprintf(", or drop the '%s' filter.", st.IncomeType)
	}
	return text + "."
}

func (m *Machine) postSwipe(st *conversation.State, msg string) (Reply, bool, error) {
	yes, no := answer(msg, "talk_yes", "talk_no")
	switch {
	case yes:
		if err := m.move(st, conversation.PhaseDiscussLikes); err != nil {
			return Reply{}, true, err
		}
		return chatReply(discussText, "discuss_likes"), true, nil
	case no:
		links := likedLinks(st)
		if err := m.move(st, conversation.PhaseReady); err != nil {
			return Reply{}, true, err
		}
		text := linksText
		if len(links) == 0 {
			text = noLinksText
		}
		reply := chatReply(text, "liked_links")
		reply.Links = links
		return reply, true, nil
	default:
		return Reply{}, false, nil
	}
}

func likedLinks(st *conversation.State) []LinkItem {
	links := []LinkItem{}
	if st.CurrentDeck == nil {
		return links
	}
	for _, id := range st.CurrentDeck.Liked {
		card, ok := st.Card(id)
		if !ok || card.RedirectURL == "" {
			continue
		}
		label := card.Title
		if card.Company != "" {
			label = fmt.Sprintf("%s at %s", card.Title, card.Company)
		}
		links = append(links, LinkItem{Label: strings.TrimSpace(label), URL: card.RedirectURL})
	}
	return links
}

var priorities = []string{"pay", "flexibility", "location", "growth"}

func (m *Machine) discussLikes(ctx context.Context, st *conversation.State, msg string) (Reply, error) {
	st.Priority = priorityOf(msg)
	if err := m.move(st, conversation.PhaseReady); err != nil {
		return Reply{}, err
	}

	fallback := fmt.Sprintf("Got it, %s matters most. Want me to search again or tweak the role or city?", st.Priority)
	return m.coach(ctx, st, msg, fallback)
}

func priorityOf(msg string) string {
	for _, p := range priorities {
		if utils.ContainsPhrase(msg, p) {
			return p
		}
	}
	return utils.TruncateForLog(utils.CollapseSpaces(msg), maxPriorityLength)
}

// coach asks the completion service for a free-form reply. Any failure gives a fixed text.
func (m *Machine) coach(ctx context.Context, st *conversation.State, msg, fallback string) (Reply, error) {
	if m.completer == nil {
		return chatReply(fallback, "chat"), nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.replyTimeout)
	defer cancel()

	messages := []ai.Message{ai.System(coachPrompt), ai.System(stateSummary(st))}
	history := st.History
	if len(history) > coachHistory {
		history = history[len(history)-coachHistory:]
	}
	for _, turn := range history {
		messages = append(messages, ai.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, ai.User(msg))

	text, err := m.completer.Complete(ctx, ai.Request{
		Model:       m.model,
		Messages:    messages,
		Temperature: m.temperature,
	})
	if err != nil {
		logger.WithConversation(m.logger, st.ConversationID, st.UserID).Debug("coached reply failed", zap.Error(err))
		return chatReply(coachFailureText, "chat"), nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		text = fallback
	}
	return chatReply(text, "chat"), nil
}

func stateSummary(st *conversation.State) string {
	var b strings.Builder
	b.WriteString("Conversation state:\n")
	fmt.Fprintf(&b, "- phase: %s\n", st.Phase)
	fmt.Fprintf(&b, "- role: %s\n", st.RoleDisplay)
	fmt.Fprintf(&b, "- location: %s\n", st.Location)
	fmt.Fprintf(&b, "- income_type: %s\n", st.IncomeType)
	fmt.Fprintf(&b, "- readiness: %t\n", st.Readiness)
	fmt.Fprintf(&b, "- jobs_shown: %t\n", st.JobsShown)
	if st.Salary != "" {
		fmt.Fprintf(&b, "- salary: %s\n", st.Salary)
	}
	if st.ClarityLevel > 0 {
		fmt.Fprintf(&b, "- experience: %s\n", clarityLabels[st.ClarityLevel])
	}
	if st.Priority != "" {
		fmt.Fprintf(&b, "- priority: %s\n", st.Priority)
	}
	if st.CurrentDeck != nil {
		for _, id := range st.CurrentDeck.Liked {
			if card, ok := st.Card(id); ok {
				fmt.Fprintf(&b, "- liked: %s at %s\n", card.Title, card.Company)
			}
		}
	}
	return b.String()
}

// roleLabel is the display role for use inside a sentence: "Waiter" -> "waiter", "PPC Executive" -> "PPC executive".
func roleLabel(st *conversation.State) string {
	display := st.RoleDisplay
	if display == "" {
		display = st.RoleCanon
	}
	words := strings.Fields(display)
	if len(words) == 0 {
		return "that role"
	}
	for i, w := range words {
		if w != strings.ToUpper(w) {
			words[i] = strings.ToLower(w)
		}
	}
	return strings.Join(words, " ")
}

func incomeAction() ActionItem {
	return ActionItem{
		Type:     ActionYesNo,
		YesLabel: "Full-time",
		YesValue: conversation.IncomeFullTime,
		NoLabel:  "Part-time",
		NoValue:  conversation.IncomePartTime,
	}
}

func talkAction() ActionItem {
	return ActionItem{Type: ActionYesNo, YesLabel: "Yes", YesValue: "talk_yes", NoLabel: "No", NoValue: "talk_no"}
}
