package provider

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RequestError is a failed provider call, classified so the executor can
// decide between backoff retry and immediate degradation.
type RequestError struct {
	Provider    string
	StatusCode  int
	Message     string
	RateLimited bool
	RetryAfter  time.Duration
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s request failed (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsRateLimit reports whether err is a rate-limit-classified request error.
func IsRateLimit(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.RateLimited
}

// SuggestedRetryAfter returns the provider-suggested retry delay, if any.
func SuggestedRetryAfter(err error) time.Duration {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.RetryAfter
	}
	return 0
}

var rateLimitBodyMarkers = []string{
	"rate limit",
	"rate_limit",
	"ratelimit",
	"too many requests",
	"resource_exhausted",
	"quota",
}

// retryDelayRe matches Gemini-style RetryInfo payloads ("retryDelay": "21s").
var retryDelayRe = regexp.MustCompile(`"retryDelay"\s*:\s*"(\d+(?:\.\d+)?)s"`)

// newRequestError classifies a non-2xx provider response.
func newRequestError(providerName string, resp *http.Response, body []byte) *RequestError {
	message := strings.TrimSpace(string(body))
	if len(message) > 500 {
		message = message[:500]
	}

	reqErr := &RequestError{
		Provider:   providerName,
		StatusCode: resp.StatusCode,
		Message:    message,
	}

	lowered := strings.ToLower(message)
	if resp.StatusCode == http.StatusTooManyRequests {
		reqErr.RateLimited = true
	} else {
		for _, marker := range rateLimitBodyMarkers {
			if strings.Contains(lowered, marker) {
				reqErr.RateLimited = true
				break
			}
		}
	}

	if reqErr.RateLimited {
		reqErr.RetryAfter = parseRetryDelay(resp, body)
	}
	return reqErr
}

// parseRetryDelay extracts a provider-suggested delay from the Retry-After
// header or a RetryInfo error body.
func parseRetryDelay(resp *http.Response, body []byte) time.Duration {
	if header := strings.TrimSpace(resp.Header.Get("Retry-After")); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	if m := retryDelayRe.FindSubmatch(body); len(m) > 1 {
		if seconds, err := strconv.ParseFloat(string(m[1]), 64); err == nil && seconds > 0 {
			return time.Duration(seconds * float64(time.Second))
		}
	}
	return 0
}
