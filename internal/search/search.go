// Package search runs one job search: provider, filters, ranking.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-assistant/internal/filtering"
	"github.com/spigell/job-assistant/internal/listings"
	"github.com/spigell/job-assistant/internal/ranking"
)

const (
	defaultPerPage = 30
	defaultTimeout = 20 * time.Second
)

// Request is what the dialog knows when it decides to search.
type Request struct {
	Keywords   string
	Location   string
	IncomeType string
	// RoleCanon is used for ranking, Keywords for the provider.
	RoleCanon string
}

// Result is a ranked search. Cards is never nil.
type Result struct {
	Cards []ranking.JobCard
	// Found is how many listings the provider returned before filtering.
	Found int
}

type Pipeline struct {
	provider listings.Provider
	filters  []filtering.Filter
	ranker   *ranking.Ranker
	perPage  int
	timeout  time.Duration
	logger   *zap.Logger
}

type Options struct {
	Provider listings.Provider
	// Filters must be validated already. Nil means no filtering.
	Filters []filtering.Filter
	Ranker  *ranking.Ranker
	PerPage int
	Timeout time.Duration
	Logger  *zap.Logger
}

func New(opts Options) *Pipeline {
	p := &Pipeline{
		provider: opts.Provider,
		filters:  opts.Filters,
		ranker:   opts.Ranker,
		perPage:  opts.PerPage,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
	}
	if p.ranker == nil {
		p.ranker = ranking.New(nil)
	}
	if p.perPage <= 0 {
		p.perPage = defaultPerPage
	}
	if p.timeout <= 0 {
		p.timeout = defaultTimeout
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	return p
}

// Run searches, filters and ranks. Provider failures come back as the error with
// an empty, non-nil result so callers can treat them as zero results.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	empty := Result{Cards: []ranking.JobCard{}}
	if p.provider == nil {
		return empty, fmt.Errorf("no listing provider configured")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	query := listings.Query{
		Keywords:   req.Keywords,
		Location:   req.Location,
		IncomeType: req.IncomeType,
		PerPage:    p.perPage,
	}

	items, err := p.provider.Search(ctx, query)
	if err != nil {
		return empty, fmt.Errorf("searching listings: %w", err)
	}

	filtered, err := filtering.Run(ctx, filtering.Deps{Logger: p.logger}, p.filters, items)
	if err != nil {
		return empty, fmt.Errorf("filtering listings: %w", err)
	}

	cards := p.ranker.ToCards(filtered, req.RoleCanon, req.Location, req.IncomeType)

	p.logger.Info("search finished",
		zap.String("keywords", req.Keywords),
		zap.String("location", req.Location),
		zap.String("income_type", req.IncomeType),
		zap.Int("found", len(items)),
		zap.Int("filtered", len(filtered)),
		zap.Int("cards", len(cards)),
	)

	return Result{Cards: cards, Found: len(items)}, nil
}
