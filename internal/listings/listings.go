// Package listings defines the contract between the assistant and job-listing providers.
package listings

import (
	"context"
	"fmt"
)

// Listing is a raw vacancy as returned by a provider.
type Listing struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	RedirectURL string `json:"redirect_url"`
	Description string `json:"description"`
}

// Query describes one provider search.
type Query struct {
	Keywords   string
	Location   string
	IncomeType string
	PerPage    int
}

// Provider searches an external listing source.
type Provider interface {
	Search(ctx context.Context, q Query) ([]Listing, error)
}

// ProviderError is returned when the provider could not answer, after retries.
type ProviderError struct {
	Provider   string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
