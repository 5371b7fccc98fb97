package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-assistant/internal/listings"
)

type employersFilter struct {
	employers map[string]struct{}
	names     []string
}

// NewEmployers creates a filter that removes listings by employers configured in the config.
func NewEmployers() Filter {
	return &employersFilter{}
}

func (f *employersFilter) Name() string { return "employers" }

func (f *employersFilter) Disable(string) {}

func (f *employersFilter) IsEnabled() bool { return true }

func (f *employersFilter) Validate(cfg *Config) error {
	f.employers = make(map[string]struct{})
	f.names = nil
	if cfg == nil {
		return nil
	}

	for _, name := range cfg.Employers {
		key := normalize(name)
		if key == "" {
			continue
		}
		f.employers[key] = struct{}{}
		f.names = append(f.names, name)
	}
	return nil
}

func (f *employersFilter) Apply(_ context.Context, deps Deps, items []listings.Listing) ([]listings.Listing, Step, error) {
	if len(f.employers) == 0 {
		return items, stepOf(len(items), items), nil
	}

	kept := make([]listings.Listing, 0, len(items))
	var excluded []string
	for _, item := range items {
		if _, ok := f.employers[normalize(item.Company)]; ok {
			excluded = append(excluded, item.Title)
			continue
		}
		kept = append(kept, item)
	}

	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Debug("excluding listings by employers",
			zap.Strings("excluded_employers", f.names),
			zap.Strings("excluded_listings", excluded),
			zap.Int("listings_left", len(kept)),
		)
	}

	return kept, stepOf(len(items), kept), nil
}

func (f *employersFilter) Status() Status {
	details := map[string]string{}
	if len(f.names) > 0 {
		details["employers"] = strings.Join(f.names, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
