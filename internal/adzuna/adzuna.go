// Package adzuna implements listings.Provider on top of the Adzuna jobs API.
package adzuna

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	apiURL         = "https://api.adzuna.com/v1/api/jobs"
	defaultCountry = "gb"
	userAgent      = "spigell/job-assistant"
	// The API accepts up to 50, the assistant only ever shows a handful.
	defaultPerPage    = 30
	defaultMaxRetries = 5
	defaultTimeout    = 15 * time.Second
	baseDelay         = time.Second
	providerName      = "adzuna"
)

type Options struct {
	AppID             string
	AppKey            string
	Country           string
	ResultsPerPage    int
	MaxRetries        int
	Timeout           time.Duration
	RequestsPerSecond float64
}

type Client struct {
	appID      string
	appKey     string
	country    string
	perPage    int
	maxRetries int
	limiter    *rate.Limiter
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(logger *zap.Logger, opts Options) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	country := strings.ToLower(strings.TrimSpace(opts.Country))
	if country == "" {
		country = defaultCountry
	}

	perPage := opts.ResultsPerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Client{
		appID:      opts.AppID,
		appKey:     opts.AppKey,
		country:    country,
		perPage:    perPage,
		maxRetries: maxRetries,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger.With(zap.String("provider", providerName)),
		APIURL:     apiURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UserAgent: userAgent,
	}
}
