package filtering

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/job-assistant/internal/listings"
)

func sample() []listings.Listing {
	return []listings.Listing{
		{Title: "Waiter", Company: "The Kitchin", Location: "Edinburgh", RedirectURL: "https://a"},
		{Title: "waiter ", Company: "the kitchin", Location: "EDINBURGH", RedirectURL: "https://b"},
		{Title: "", Company: "Nameless", Location: "Edinburgh", RedirectURL: "https://c"},
		{Title: "Bar Staff", Company: "Spam Ltd", Location: "Edinburgh", RedirectURL: "https://d"},
		{Title: "Chef", Company: "Cafe Royal", Location: "Leith", RedirectURL: ""},
		{Title: "Server", Company: "Cafe Royal", Location: "Edinburgh", RedirectURL: "https://e"},
	}
}

func TestDuplicatesKeepsFirst(t *testing.T) {
	t.Parallel()

	items, info, err := NewDuplicates().Apply(context.Background(), Deps{}, sample())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info.Initial != 6 || info.Dropped != 1 || info.Left != 5 {
		t.Fatalf("unexpected step: %+v", info)
	}
	if items[0].RedirectURL != "https://a" {
		t.Fatalf("expected first occurrence to be kept, got %+v", items[0])
	}

	seen := map[string]bool{}
	for _, item := range items {
		key := DedupKey(item)
		if seen[key] {
			t.Fatalf("duplicate left after filtering: %s", key)
		}
		seen[key] = true
	}
}

func TestIncompleteDropsListingsWithoutTitleOrLink(t *testing.T) {
	t.Parallel()

	items, info, err := NewIncomplete().Apply(context.Background(), Deps{}, sample())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Dropped != 2 || len(items) != 4 {
		t.Fatalf("unexpected result: %+v, %d items", info, len(items))
	}
}

func TestEmployersFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		employers []string
		left      int
	}{
		{name: "no config", employers: nil, left: 6},
		{name: "case insensitive", employers: []string{"spam ltd"}, left: 5},
		{name: "blank entries ignored", employers: []string{"  ", "Cafe Royal"}, left: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := NewEmployers()
			if err := f.Validate(&Config{Employers: tt.employers}); err != nil {
				t.Fatalf("validate: %v", err)
			}
			items, info, err := f.Apply(context.Background(), Deps{}, sample())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(items) != tt.left || info.Left != tt.left {
				t.Fatalf("expected %d left, got %d (%+v)", tt.left, len(items), info)
			}
		})
	}
}

func TestRunAppliesStepsInOrderAndLogs(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	steps := Default()
	if err := Validate(&Config{Employers: []string{"Spam Ltd"}}, steps); err != nil {
		t.Fatalf("validate: %v", err)
	}

	items, err := Run(context.Background(), Deps{Logger: zap.New(core)}, steps, sample())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 listings, got %d: %+v", len(items), items)
	}

	entries := logs.FilterMessage("filter step").All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 filter step logs, got %d", len(entries))
	}
	if name := entries[0].ContextMap()["name"]; name != "incomplete" {
		t.Fatalf("expected incomplete to run first, got %v", name)
	}
}

func TestRunSkipsDisabledFilters(t *testing.T) {
	t.Parallel()

	steps := Default()
	DisableByName(steps, "duplicates", "testing")

	items, err := Run(context.Background(), Deps{}, steps, sample())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 listings, got %d", len(items))
	}

	for _, status := range Describe(steps) {
		if status.Name == "duplicates" && (status.Enabled || status.Reason != "testing") {
			t.Fatalf("unexpected duplicates status: %+v", status)
		}
	}
}

func TestRunNeverReturnsNil(t *testing.T) {
	t.Parallel()

	items, err := Run(context.Background(), Deps{}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items == nil {
		t.Fatal("expected empty non-nil slice")
	}
}
