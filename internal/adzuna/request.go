package adzuna

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-assistant/internal/listings"
	"github.com/spigell/job-assistant/internal/metrics"
	"github.com/spigell/job-assistant/internal/utils"
)

const (
	contentType     = "application/json"
	contentEncoding = "gzip"
	maxJitter       = 500 * time.Millisecond
)

var (
	wait   = utils.WaitFor
	jitter = func() time.Duration { return rand.N(maxJitter) }
)

type searchResponse struct {
	Results []any `json:"results"`
	Count   int   `json:"count"`
}

// getResults performs a GET and returns raw result items.
// Only 429 answers are retried: the delay doubles from one second, Retry-After wins when present.
func (c *Client) getResults(ctx context.Context, endpoint string, q url.Values) ([]any, error) {
	delay := baseDelay

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &listings.ProviderError{Provider: providerName, Err: err}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, &listings.ProviderError{Provider: providerName, Err: err}
		}
		req = c.setHeaders(req)
		req.URL.RawQuery = q.Encode()

		resp, err := c.request(req)
		if err != nil {
			metrics.ProviderRequestsTotal.WithLabelValues(providerName, "error").Inc()
			return nil, &listings.ProviderError{Provider: providerName, Retryable: true, Err: err}
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			metrics.ProviderRequestsTotal.WithLabelValues(providerName, "rate_limited").Inc()

			if attempt == c.maxRetries {
				break
			}

			pause := retryAfter(resp.Header.Get("Retry-After"), delay)
			c.logger.Debug("rate limited, backing off",
				zap.Duration("delay", pause),
				zap.Int("attempt", attempt),
				zap.Int("tries", c.maxRetries),
			)
			if err := wait(ctx, pause); err != nil {
				return nil, &listings.ProviderError{Provider: providerName, StatusCode: http.StatusTooManyRequests, Retryable: true, Err: err}
			}
			delay *= 2
			continue
		}

		response, err := c.parseResponse(resp)
		if err != nil {
			metrics.ProviderRequestsTotal.WithLabelValues(providerName, "error").Inc()
			return nil, err
		}

		metrics.ProviderRequestsTotal.WithLabelValues(providerName, "ok").Inc()
		c.logger.Debug("got response from Adzuna", zap.Int("count", response.Count), zap.Int("items", len(response.Results)))

		return response.Results, nil
	}

	return nil, &listings.ProviderError{
		Provider:   providerName,
		StatusCode: http.StatusTooManyRequests,
		Retryable:  true,
		Err:        fmt.Errorf("rate limited after %d attempts", c.maxRetries),
	}
}

func (c *Client) parseResponse(resp *http.Response) (*searchResponse, error) {
	var body io.ReadCloser
	var err error
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		body, err = gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, &listings.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Err: err}
		}
		defer resp.Body.Close()
		defer body.Close()
	default:
		body = resp.Body
		defer body.Close()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Adzuna puts the reason in a short JSON body; keep a bit of it for the logs.
		data, _ := io.ReadAll(io.LimitReader(body, 512))
		return nil, &listings.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Retryable:  resp.StatusCode >= http.StatusInternalServerError,
			Err:        fmt.Errorf("bad status: %s: %s", resp.Status, utils.TruncateForLog(strings.TrimSpace(string(data)), 200)),
		}
	}

	var response searchResponse
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, &listings.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	return &response, nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", redact(req.URL)))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

// retryAfter returns the server hint in seconds when it parses, else fallback plus jitter.
func retryAfter(header string, fallback time.Duration) time.Duration {
	if header = strings.TrimSpace(header); header != "" {
		if seconds, err := strconv.ParseFloat(header, 64); err == nil && seconds >= 0 {
			return time.Duration(seconds * float64(time.Second))
		}
	}

	return fallback + jitter()
}

func redact(u *url.URL) string {
	clone := *u
	q := clone.Query()
	if q.Has("app_key") {
		q.Set("app_key", "REDACTED")
	}
	clone.RawQuery = q.Encode()
	return clone.String()
}

