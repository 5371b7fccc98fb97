// Package extraction pulls search signals (role, location, income type, salary) out of chat messages.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-assistant/internal/conversation"
	"github.com/spigell/job-assistant/internal/metrics"
	"github.com/spigell/job-assistant/internal/roles"
	"github.com/spigell/job-assistant/internal/utils"
)

// DefaultCities is the list locations are snapped to.
var DefaultCities = []string{
	"Edinburgh",
	"London",
	"Manchester",
	"Bristol",
	"Glasgow",
	"Leeds",
	"Liverpool",
	"Belfast",
	"Cardiff",
}

// Signals are the structured fields found in one message. Empty means unknown.
type Signals struct {
	Role       string `json:"role,omitempty"`
	Location   string `json:"location,omitempty"`
	IncomeType string `json:"income_type,omitempty"`
	Salary     string `json:"salary,omitempty"`
}

func (s Signals) Empty() bool {
	return s == Signals{}
}

// Input is what every stage sees.
type Input struct {
	Message string
	// HasRole and HasLocation describe the conversation before this message.
	HasRole     bool
	HasLocation bool
	// Found holds what earlier stages already produced for this message.
	Found Signals
}

// Stage is one extraction strategy. Stages run in a fixed order; the first
// non-empty value per field wins.
type Stage interface {
	Name() string
	Attempt(ctx context.Context, in Input) (Signals, error)
}

// Error is a failed stage. It never leaves the extractor.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extraction stage %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Extractor struct {
	stages   []Stage
	dataset  *roles.Dataset
	families roles.Families
	cities   []string
	logger   *zap.Logger
}

type Options struct {
	// Model enables the model-assisted stage when set.
	Model    *ModelStage
	Dataset  *roles.Dataset
	Families roles.Families
	Cities   []string
	Logger   *zap.Logger
}

func New(opts Options) *Extractor {
	cities := opts.Cities
	if len(cities) == 0 {
		cities = DefaultCities
	}
	families := opts.Families
	if families == nil {
		families = roles.DefaultFamilies
	}
	dataset := opts.Dataset
	if dataset == nil {
		dataset = roles.NewDataset("", opts.Logger)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	stages := []Stage{
		&KeywordStage{Cities: cities},
		&PatternStage{},
	}
	if opts.Model != nil {
		stages = append(stages, opts.Model)
	}
	stages = append(stages, &HeuristicStage{IsRole: func(text string) bool {
		return dataset.Has(text) || len(families.Matching(roles.Canonicalize(text))) > 0
	}})

	return &Extractor{
		stages:   stages,
		dataset:  dataset,
		families: families,
		cities:   cities,
		logger:   logger,
	}
}

// Signals runs every stage against message without touching st.
func (e *Extractor) Signals(ctx context.Context, message string, st *conversation.State) Signals {
	in := Input{
		Message:     strings.TrimSpace(message),
		HasRole:     st != nil && st.HasRole(),
		HasLocation: st != nil && st.HasLocation(),
	}
	if in.Message == "" {
		return Signals{}
	}

	var modelSalary string
	for _, stage := range e.stages {
		found, err := stage.Attempt(ctx, in)
		if err != nil {
			var extErr *Error
			if !errors.As(err, &extErr) {
				extErr = &Error{Stage: stage.Name(), Err: err}
			}
			e.logger.Debug("extraction stage failed", zap.String("stage", stage.Name()), zap.Error(extErr))
			continue
		}
		if found.Empty() {
			continue
		}
		metrics.ExtractionStageHitsTotal.WithLabelValues(stage.Name()).Inc()

		// A model salary is only a fallback for the regex below.
		if _, ok := stage.(*ModelStage); ok {
			modelSalary = found.Salary
			found.Salary = ""
		}

		in.Found = e.merge(in.Found, found, st)
	}

	out := in.Found
	if out.Location != "" {
		out.Location = NormalizeLocation(out.Location, e.cities)
	}
	if out.Role != "" && !e.acceptRole(out.Role, out.Location, st) {
		out.Role = ""
	}
	if salary := FindSalary(in.Message); salary != "" {
		out.Salary = salary
	} else if modelSalary != "" {
		out.Salary = modelSalary
	}

	return out
}

// Extract runs the stages and writes what was found into st. Role fields are always derived
// together from the canonical role. It returns the signals that were applied.
func (e *Extractor) Extract(ctx context.Context, message string, st *conversation.State) Signals {
	found := e.Signals(ctx, message, st)

	if found.IncomeType != "" {
		st.IncomeType = found.IncomeType
	}
	if found.Salary != "" {
		st.Salary = found.Salary
	}
	if found.Location != "" {
		st.Location = found.Location
	}
	if found.Role != "" {
		e.ApplyRole(st, found.Role)
	}

	e.logger.Debug("signals extracted",
		zap.String("role", found.Role),
		zap.String("location", found.Location),
		zap.String("income_type", found.IncomeType),
		zap.String("salary", found.Salary),
	)

	return found
}

// ApplyRole sets every role field from raw role text.
func (e *Extractor) ApplyRole(st *conversation.State, raw string) {
	canon := roles.Canonicalize(raw)
	if canon == "" {
		return
	}

	resolved, ok := e.dataset.Resolve(canon)
	if !ok {
		resolved = canon
	}

	st.RoleRaw = strings.TrimSpace(raw)
	st.RoleCanon = canon
	st.RoleDisplay = roles.DisplayName(canon)
	st.ResolvedRole = resolved
	st.RoleQuery = e.families.SearchKeywords(resolved)
}

func (e *Extractor) merge(into, found Signals, st *conversation.State) Signals {
	if into.Location == "" {
		into.Location = strings.TrimSpace(found.Location)
	}
	if into.IncomeType == "" {
		into.IncomeType = found.IncomeType
	}
	if into.Salary == "" {
		into.Salary = found.Salary
	}
	if role := stripSalary(found.Role); into.Role == "" && role != "" {
		location := into.Location
		if location == "" && st != nil {
			location = st.Location
		}
		if e.acceptRole(role, location, st) {
			into.Role = role
		}
	}
	return into
}

// metaWords are answers and small talk that must never become a role.
var metaWords = map[string]struct{}{
	"yes": {}, "yeah": {}, "yep": {}, "no": {}, "nope": {}, "ok": {}, "okay": {}, "sure": {},
	"maybe": {}, "thanks": {}, "thank": {}, "you": {}, "hi": {}, "hello": {}, "hey": {},
	"either": {}, "any": {}, "anything": {}, "both": {}, "none": {}, "nothing": {}, "something": {},
	"help": {}, "live": {}, "living": {}, "based": {}, "located": {}, "here": {}, "there": {},
	"job": {}, "jobs": {}, "role": {}, "position": {}, "work": {}, "career": {}, "employment": {},
	"remote": {}, "actually": {}, "instead": {}, "again": {},
	"location": {}, "city": {}, "area": {}, "place": {}, "town": {},
}

// acceptRole applies the guardrails to a role candidate.
func (e *Extractor) acceptRole(candidate, location string, st *conversation.State) bool {
	canon := roles.Canonicalize(candidate)
	if canon == "" || roles.IsBadRole(candidate) {
		return false
	}

	meta := true
	for _, w := range strings.Fields(canon) {
		if _, ok := metaWords[w]; !ok {
			meta = false
			break
		}
	}
	if meta {
		return false
	}

	for _, city := range e.cities {
		if strings.EqualFold(canon, city) {
			return false
		}
	}
	if location == "" && st != nil {
		location = st.Location
	}
	if location != "" && strings.EqualFold(canon, utils.CleanText(location)) {
		return false
	}

	return true
}

// NormalizeLocation snaps text to a known city when it names or nearly names one,
// otherwise title-cases it.
func NormalizeLocation(text string, cities []string) string {
	clean := roles.StripTimeModifiers(text)
	if clean == "" {
		clean = utils.CleanText(text)
	}
	if clean == "" {
		return ""
	}

	for _, city := range cities {
		if utils.ContainsPhrase(clean, city) {
			return city
		}
	}

	titled := utils.TitleCase(clean)
	if city, ok := utils.ClosestMatch(titled, cities, cityCutoff); ok {
		return city
	}

	return titled
}
