package filtering

import (
	"context"
	"strings"

	"github.com/spigell/job-assistant/internal/listings"
)

type incompleteFilter struct {
	disabled bool
	reason   string
}

// NewIncomplete creates a filter that removes listings without a title or a link.
func NewIncomplete() Filter {
	return &incompleteFilter{}
}

func (f *incompleteFilter) Name() string { return "incomplete" }

func (f *incompleteFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *incompleteFilter) IsEnabled() bool { return !f.disabled }

func (f *incompleteFilter) Validate(*Config) error { return nil }

func (f *incompleteFilter) Apply(_ context.Context, _ Deps, items []listings.Listing) ([]listings.Listing, Step, error) {
	kept := make([]listings.Listing, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Title) == "" || strings.TrimSpace(item.RedirectURL) == "" {
			continue
		}
		kept = append(kept, item)
	}

	return kept, stepOf(len(items), kept), nil
}

func (f *incompleteFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
