package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-assistant/internal/listings"
)

type duplicatesFilter struct {
	disabled bool
	reason   string
}

// NewDuplicates creates a filter that keeps only the first listing per (title, company, location).
func NewDuplicates() Filter {
	return &duplicatesFilter{}
}

func (f *duplicatesFilter) Name() string { return "duplicates" }

func (f *duplicatesFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *duplicatesFilter) IsEnabled() bool { return !f.disabled }

func (f *duplicatesFilter) Validate(*Config) error { return nil }

func (f *duplicatesFilter) Apply(_ context.Context, deps Deps, items []listings.Listing) ([]listings.Listing, Step, error) {
	seen := make(map[string]struct{}, len(items))
	kept := make([]listings.Listing, 0, len(items))
	var dropped []string

	for _, item := range items {
		key := DedupKey(item)
		if _, ok := seen[key]; ok {
			dropped = append(dropped, item.Title)
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, item)
	}

	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Debug("excluding duplicated listings", zap.Strings("titles", dropped))
	}

	return kept, stepOf(len(items), kept), nil
}

func (f *duplicatesFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}

// DedupKey is the identity used to spot the same vacancy posted twice.
func DedupKey(item listings.Listing) string {
	return strings.Join([]string{
		normalize(item.Title),
		normalize(item.Company),
		normalize(item.Location),
	}, "|")
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
