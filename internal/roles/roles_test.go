package roles

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		expect string
	}{
		{"Evening Waiter", "waiter"},
		{"Part-time waiting staff", "waiter"},
		{"Weekend barista", "barista"},
		{"Zero hours bartender", "bartender"},
		{"I'm looking for a chef job please", "chef"},
		{"Waitress", "waiter"},
		{"software engineer", "software engineer"},
		{"full-time permanent night shift nurse", "nurse"},
		{"data analyst roles", "data analyst"},
		{"Barista positions", "barista"},
		{"a job", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := Canonicalize(tt.input); got != tt.expect {
				t.Fatalf("Canonicalize(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Evening Waiter", "part time part time chef", "I am a job job seeker",
		"Waiting Staff / Waitress", "Zero-Hours Bar Staff!!", "Senior PPC Executive (Remote)",
		"   ", "café assistant", "work work work", "waitresses",
	}

	for _, in := range inputs {
		once := Canonicalize(in)
		if twice := Canonicalize(once); twice != once {
			t.Fatalf("Canonicalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestStripHelpers(t *testing.T) {
	t.Parallel()

	if got := StripFillers("Please find me a job as a barista"); got != "barista" {
		t.Fatalf("unexpected StripFillers result: %q", got)
	}
	if got := StripTimeModifiers("Temporary seasonal kitchen porter"); got != "kitchen porter" {
		t.Fatalf("unexpected StripTimeModifiers result: %q", got)
	}
}

func TestIsBadRole(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"job", "Career", "employment", " work "} {
		if !IsBadRole(bad) {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
	if IsBadRole("chef") {
		t.Fatal("chef is a real role")
	}
}

func TestDatasetResolve(t *testing.T) {
	t.Parallel()

	d := NewDataset("", nil)

	tests := []struct {
		input  string
		expect string
		ok     bool
	}{
		{input: "waiter", expect: "waiter", ok: true},
		{input: "part time waitress", expect: "waiter", ok: true},
		{input: "sous", expect: "sous chef", ok: true},
		{input: "ppc", expect: "ppc manager", ok: true},
		{input: "senior software engineer", expect: "software engineer", ok: true},
		{input: "kitchen helper", expect: "kitchen porter", ok: true},
		{input: "plumb", expect: "plumber", ok: true},
		{input: "xyzzy", ok: false},
		{input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, ok := d.Resolve(tt.input)
			if ok != tt.ok || got != tt.expect {
				t.Fatalf("Resolve(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.expect, tt.ok)
			}
		})
	}
}

func TestDatasetFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "titles.json")
	if err := os.WriteFile(path, []byte(`{"categories":{"Sea":["Deckhand","Marine Biologist"]}}`), 0o600); err != nil {
		t.Fatalf("write dataset: %v", err)
	}

	d := NewDataset(path, nil)
	if err := d.Err(); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if got := d.Titles(); len(got) != 2 || got[0] != "deckhand" {
		t.Fatalf("unexpected titles: %v", got)
	}
	if got, ok := d.Resolve("biologist"); !ok || got != "marine biologist" {
		t.Fatalf("unexpected resolve: %q, %v", got, ok)
	}
}

func TestDatasetMissingFileBehavesEmpty(t *testing.T) {
	t.Parallel()

	d := NewDataset(filepath.Join(t.TempDir(), "missing.json"), nil)
	if d.Err() == nil {
		t.Fatal("expected load error")
	}
	if _, ok := d.Resolve("waiter"); ok {
		t.Fatal("did not expect a match from an empty dataset")
	}
}

func TestBuildSearchKeywords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		expect string
	}{
		{"waitress", "waiter waitress waiting staff server front of house"},
		{"part-time chef", "chef cook kitchen"},
		{"bartender", "bartender bar staff bar attendant"},
		{"barista", "barista coffee"},
		{"head chef", "head chef"},
		{"ppc executive", "ppc executive"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := BuildSearchKeywords(tt.input); got != tt.expect {
			t.Fatalf("BuildSearchKeywords(%q) = %q, want %q", tt.input, got, tt.expect)
		}
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		expect string
	}{
		{"software engineer", "Software Developer"},
		{"waiter", "Waiter"},
		{"bar staff", "Bartender"},
		{"bartendr", "Bartender"},
		{"ppc executive", "PPC Executive"},
		{"marine biologist", "Marine Biologist"},
		{"building surveyor", "Building Surveyor"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.expect {
			t.Fatalf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expect)
		}
	}
}

func TestFamilies(t *testing.T) {
	t.Parallel()

	if markers := DefaultFamilies.SpecialistMarkers("google ads executive"); len(markers) == 0 {
		t.Fatal("expected paid search markers")
	}
	if markers := DefaultFamilies.SpecialistMarkers("waiter"); markers != nil {
		t.Fatalf("did not expect markers for waiter: %v", markers)
	}
	if markers := DefaultFamilies.SpecialistMarkers("semiconductor engineer"); markers != nil {
		t.Fatalf("sem must match on word boundaries: %v", markers)
	}

	tokens := DefaultFamilies.ExpandTokens("head chef")
	want := map[string]bool{"head": false, "chef": false, "cook": false, "kitchen": false}
	for _, tok := range tokens {
		if _, ok := want[tok]; ok {
			want[tok] = true
		}
	}
	for tok, found := range want {
		if !found {
			t.Fatalf("expected token %q in %v", tok, tokens)
		}
	}

	custom := Families{{Name: "nursing", Keys: []string{"nurse"}, Terms: []string{"nurse", "rgn"}, Broaden: true}}
	if got := custom.SearchKeywords("night nurse"); got != "nurse rgn" {
		t.Fatalf("unexpected custom keywords: %q", got)
	}
}
