package roles

import (
	"strings"

	"github.com/spigell/job-assistant/internal/utils"
)

// Family groups related titles. It is configuration data, not logic.
type Family struct {
	Name string `mapstructure:"name" json:"name"`
	// Keys are canonical phrases that place a role into the family.
	Keys []string `mapstructure:"keys" json:"keys"`
	// Terms widen both the provider search (when Broaden is set) and ranking overlap.
	Terms   []string `mapstructure:"terms" json:"terms"`
	Broaden bool     `mapstructure:"broaden" json:"broaden"`
	// Markers make the family a specialism: listings without any of them rank lower.
	Markers []string `mapstructure:"markers" json:"markers"`
}

type Families []Family

var paidSearchTerms = []string{"ppc", "paid", "search", "adwords", "google", "ads", "sem", "performance", "acquisition"}

// DefaultFamilies covers the hospitality titles that need broader searches and the paid-search specialism.
var DefaultFamilies = Families{
	{Name: "waiter", Keys: []string{"waiter"}, Terms: []string{"waiter", "waitress", "waiting staff", "server", "front of house"}, Broaden: true},
	{Name: "bartender", Keys: []string{"bartender"}, Terms: []string{"bartender", "bar staff", "bar attendant"}, Broaden: true},
	{Name: "barista", Keys: []string{"barista"}, Terms: []string{"barista", "coffee"}, Broaden: true},
	{Name: "chef", Keys: []string{"chef"}, Terms: []string{"chef", "cook", "kitchen"}, Broaden: true},
	{
		Name:    "paid search",
		Keys:    []string{"ppc", "google ads", "paid search", "adwords", "sem"},
		Terms:   paidSearchTerms,
		Markers: []string{"ppc", "google ads", "paid search", "adwords", "sem"},
	},
}

// Matching returns every family with a key contained in role on word boundaries.
func (fs Families) Matching(role string) Families {
	var out Families
	for _, f := range fs {
		for _, key := range f.Keys {
			if utils.ContainsPhrase(role, key) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// SearchKeywords builds a plain space-separated provider query for role.
// Broadening families expand to their terms when the canonical role equals one of their keys.
func (fs Families) SearchKeywords(role string) string {
	canon := Canonicalize(role)
	if canon == "" {
		return ""
	}

	for _, f := range fs {
		if !f.Broaden {
			continue
		}
		for _, key := range f.Keys {
			if canon == utils.CleanText(key) {
				return strings.Join(f.Terms, " ")
			}
		}
	}

	return canon
}

// ExpandTokens returns the words of role plus the terms of every matching family.
func (fs Families) ExpandTokens(role string) []string {
	words := utils.Words(role)
	for _, f := range fs.Matching(role) {
		for _, term := range f.Terms {
			words = append(words, utils.Words(term)...)
		}
	}
	return words
}

// SpecialistMarkers returns the markers a listing must mention to count as a direct match for role.
// Nil means role is not a specialism.
func (fs Families) SpecialistMarkers(role string) []string {
	var markers []string
	for _, f := range fs.Matching(role) {
		markers = append(markers, f.Markers...)
	}
	return markers
}

// BuildSearchKeywords is SearchKeywords over DefaultFamilies.
func BuildSearchKeywords(role string) string {
	return DefaultFamilies.SearchKeywords(role)
}
