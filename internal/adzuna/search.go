package adzuna

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/job-assistant/internal/listings"
)

const searchPath = "/search/1"

// SearchParams is the query string of a search call.
// adzparam is a custom tag for reflect. Please see buildParams.
type SearchParams struct {
	AppID          string `adzparam:"app_id"`
	AppKey         string `adzparam:"app_key"`
	What           string `adzparam:"what"`
	Where          string `adzparam:"where"`
	ResultsPerPage int    `adzparam:"results_per_page"`
	ContentType    string `adzparam:"content-type"`
	FullTime       bool   `adzparam:"full_time"`
	PartTime       bool   `adzparam:"part_time"`
	Contract       bool   `adzparam:"contract"`
}

type displayName struct {
	DisplayName string `json:"display_name,omitempty"`
}

// Result is one item of the Adzuna results array.
type Result struct {
	ID          string      `json:"id,omitempty"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	RedirectURL string      `json:"redirect_url,omitempty"`
	Company     displayName `json:"company,omitempty"`
	Location    displayName `json:"location,omitempty"`
	Created     string      `json:"created,omitempty"`
}

// Search implements listings.Provider.
func (c *Client) Search(ctx context.Context, q listings.Query) ([]listings.Listing, error) {
	what := strings.TrimSpace(q.Keywords)
	where := strings.TrimSpace(q.Location)
	if what == "" || where == "" {
		return []listings.Listing{}, nil
	}

	params := c.searchParams(q)
	endpoint := fmt.Sprintf("%s/%s%s", strings.TrimRight(c.APIURL, "/"), c.country, searchPath)

	c.logger.Debug("adzuna search",
		zap.String("what", params.What),
		zap.String("where", params.Where),
		zap.String("income_type", q.IncomeType),
	)

	items, err := c.getResults(ctx, endpoint, buildParams(params))
	if err != nil {
		return nil, err
	}

	results, err := decodeResults(items)
	if err != nil {
		return nil, &listings.ProviderError{Provider: providerName, Err: err}
	}

	out := make([]listings.Listing, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		out = append(out, listings.Listing{
			Title:       strings.TrimSpace(r.Title),
			Company:     strings.TrimSpace(r.Company.DisplayName),
			Location:    strings.TrimSpace(r.Location.DisplayName),
			RedirectURL: strings.TrimSpace(r.RedirectURL),
			Description: strings.TrimSpace(r.Description),
		})
	}

	return out, nil
}

func (c *Client) searchParams(q listings.Query) *SearchParams {
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = c.perPage
	}

	params := &SearchParams{
		AppID:          c.appID,
		AppKey:         c.appKey,
		What:           strings.TrimSpace(q.Keywords),
		Where:          strings.TrimSpace(q.Location),
		ResultsPerPage: perPage,
		ContentType:    contentType,
	}

	// Income type maps onto Adzuna filters, never onto keywords.
	switch strings.ToLower(strings.TrimSpace(q.IncomeType)) {
	case "full-time":
		params.FullTime = true
	case "part-time":
		params.PartTime = true
	case "freelance":
		params.Contract = true
	}

	return params
}

func decodeResults(items []any) ([]*Result, error) {
	var results []*Result

	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           &results,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       displayNameHook,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(items); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}

	return results, nil
}

// displayNameHook accepts a bare string where Adzuna usually sends {"display_name": ...}.
func displayNameHook(from, to reflect.Type, data any) (any, error) {
	if to == reflect.TypeOf(displayName{}) && from.Kind() == reflect.String {
		return map[string]any{"display_name": data}, nil
	}

	return data, nil
}

func buildParams(params *SearchParams) url.Values {
	q := url.Values{}
	fields := reflect.VisibleFields(reflect.TypeOf(*params))
	value := reflect.ValueOf(params).Elem()

	for _, field := range fields {
		key := field.Tag.Get("adzparam")
		if key == "" {
			continue
		}

		v := value.FieldByIndex(field.Index)
		switch field.Type.Kind() {
		case reflect.Bool:
			// Filters are flags: present as 1 or absent.
			if v.Bool() {
				q.Set(key, "1")
			}
		case reflect.Int:
			if v.Int() != 0 {
				q.Set(key, strconv.FormatInt(v.Int(), 10))
			}
		default:
			if s := fmt.Sprintf("%v", v.Interface()); s != "" {
				q.Set(key, s)
			}
		}
	}

	return q
}
