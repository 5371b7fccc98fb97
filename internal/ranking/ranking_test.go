package ranking

import (
	"fmt"
	"testing"

	"github.com/spigell/job-assistant/internal/listings"
)

func TestScoreBounds(t *testing.T) {
	t.Parallel()

	r := New(nil)
	roles := []string{"", "waiter", "google ads executive", "software engineer", "ppc ppc ppc", "x"}
	locations := []string{"", "Edinburgh", "edinburgh", "Nowhere"}
	jobs := []listings.Listing{
		{},
		{Title: "Waiter", Company: "A", Location: "Edinburgh"},
		{Title: "PPC Executive Google Ads Paid Search SEM performance acquisition", Description: "adwords ppc", Company: "B", Location: "Edinburgh, Scotland"},
		{Title: "Growth Marketing Manager", Location: "London"},
	}

	for _, role := range roles {
		for _, loc := range locations {
			for _, job := range jobs {
				a := r.Score(job, role, loc)
				if a.Score < 0 || a.Score > 100 {
					t.Fatalf("score %d out of bounds for role %q, location %q, job %+v", a.Score, role, loc, job)
				}
				if len(a.Reasons) > 2 || len(a.Missing) > 2 {
					t.Fatalf("too many notes: %+v", a)
				}
			}
		}
	}
}

func TestScoreMonotonicInRoleMatch(t *testing.T) {
	t.Parallel()

	r := New(nil)
	matching := listings.Listing{Title: "Software Engineer", Company: "Acme", Location: "Leeds"}
	unrelated := listings.Listing{Title: "Kitchen Porter", Company: "Acme", Location: "Leeds"}

	if m, u := r.Score(matching, "software engineer", "Leeds").Score, r.Score(unrelated, "software engineer", "Leeds").Score; m <= u {
		t.Fatalf("expected matching job to score higher: %d <= %d", m, u)
	}
}

func TestSpecialistGuard(t *testing.T) {
	t.Parallel()

	r := New(nil)
	direct := listings.Listing{Title: "PPC Executive", Company: "Agency", Location: "Manchester"}
	adjacent := listings.Listing{
		Title:       "Growth Marketing Manager",
		Description: "Own performance and acquisition across paid channels and search",
		Company:     "Startup",
		Location:    "Manchester",
	}

	cards := r.ToCards([]listings.Listing{adjacent, direct}, "ppc executive", "Manchester", "")
	if cards[0].Title != "PPC Executive" {
		t.Fatalf("expected specialist match first, got %+v", cards)
	}

	a := r.Score(adjacent, "ppc executive", "Manchester")
	found := false
	for _, m := range a.Missing {
		if m == missingDirect {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected related-role note, got %+v", a.Missing)
	}
}

func TestScoreDetails(t *testing.T) {
	t.Parallel()

	r := New(nil)

	tests := []struct {
		name     string
		job      listings.Listing
		role     string
		location string
		score    int
		action   Action
	}{
		{
			name:     "partial match in location",
			job:      listings.Listing{Title: "Waiter", Company: "Cafe", Location: "Leith, Edinburgh"},
			role:     "waiter",
			location: "edinburgh",
			score:    75,
			action:   ActionApply,
		},
		{
			name:     "no match elsewhere",
			job:      listings.Listing{Title: "Software Engineer", Location: "London"},
			role:     "waiter",
			location: "Edinburgh",
			score:    38,
			action:   ActionSkip,
		},
		{
			name:     "good match without company",
			job:      listings.Listing{Title: "Waiting Staff", Location: "Glasgow"},
			role:     "waiter",
			location: "Edinburgh",
			score:    68,
			action:   ActionConsider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := r.Score(tt.job, tt.role, tt.location)
			if a.Score != tt.score || a.Action != tt.action {
				t.Fatalf("expected %d/%s, got %d/%s (%+v)", tt.score, tt.action, a.Score, a.Action, a)
			}
		})
	}
}

func TestToCardsStableAndUnique(t *testing.T) {
	t.Parallel()

	r := New(nil)
	var items []listings.Listing
	for i := 0; i < 5; i++ {
		items = append(items, listings.Listing{
			Title:       "Barista",
			Company:     "Coffee Co",
			Location:    "Bristol",
			RedirectURL: fmt.Sprintf("https://example.com/%d", i),
		})
	}
	items = append(items, items[2])

	cards := r.ToCards(items, "barista", "Bristol", "part-time")
	if len(cards) != 5 {
		t.Fatalf("expected 5 unique cards, got %d", len(cards))
	}

	ids := map[string]bool{}
	for i, c := range cards {
		if c.RedirectURL != fmt.Sprintf("https://example.com/%d", i) {
			t.Fatalf("ties must keep provider order, got %s at %d", c.RedirectURL, i)
		}
		if ids[c.ID] {
			t.Fatalf("duplicate id %s", c.ID)
		}
		ids[c.ID] = true
		if c.Reasons == nil || c.Missing == nil {
			t.Fatalf("notes must never be nil: %+v", c)
		}
	}
}

func TestToCardsSortsDescending(t *testing.T) {
	t.Parallel()

	cards := New(nil).ToCards([]listings.Listing{
		{Title: "Cleaner", Location: "Leeds"},
		{Title: "Head Chef", Company: "Bistro", Location: "Leeds", Description: "kitchen cook"},
		{Title: "Chef", Location: "York"},
	}, "chef", "Leeds", "")

	for i := 1; i < len(cards); i++ {
		if cards[i-1].Score < cards[i].Score {
			t.Fatalf("cards not sorted: %+v", cards)
		}
	}
	if cards[0].Title != "Head Chef" {
		t.Fatalf("expected Head Chef first, got %s", cards[0].Title)
	}
}

func TestJobIDStable(t *testing.T) {
	t.Parallel()

	l := listings.Listing{Title: "Driver", Company: "Vans", Location: "Cardiff", RedirectURL: "https://x"}
	if JobID(l) != JobID(l) || len(JobID(l)) != 40 {
		t.Fatalf("unexpected id %q", JobID(l))
	}
	other := l
	other.RedirectURL = "https://y"
	if JobID(l) == JobID(other) {
		t.Fatal("different urls must give different ids")
	}
}

func TestEmptyInput(t *testing.T) {
	t.Parallel()

	cards := New(nil).ToCards(nil, "waiter", "Leeds", "")
	if cards == nil || len(cards) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", cards)
	}
}
