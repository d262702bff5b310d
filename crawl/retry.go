package crawl

import (
	"context"
	"net/http"
	"time"

	"github.com/fwojciec/sitecrawl"
)

// FetchFunc is the signature for a fetch function.
type FetchFunc func(ctx context.Context, url string) (*sitecrawl.FetchResult, error)

// LogFunc is the signature for a logging function.
type LogFunc func(format string, args ...any)

// DefaultRetryDelays returns the delays between fetch attempts: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// FetchWithRetryDelays attempts to fetch a URL, waiting delays[i] before
// retry i+1. The logger, if provided, is called for each retry.
// Client errors other than 429 are permanent and returned without retrying.
// On failure the result of the last attempt is returned with its error.
func FetchWithRetryDelays(ctx context.Context, url string, fetch FetchFunc, logger LogFunc, delays []time.Duration) (*sitecrawl.FetchResult, error) {
	maxAttempts := len(delays) + 1

	var lastResult *sitecrawl.FetchResult
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := fetch(ctx, url)
		if err == nil {
			return result, nil
		}
		lastResult, lastErr = result, err

		if attempt >= maxAttempts-1 || permanent(result) {
			break
		}

		select {
		case <-ctx.Done():
			return lastResult, ctx.Err()
		default:
		}

		if logger != nil {
			logger("retry %s (attempt %d): %v", url, attempt+2, err)
		}

		select {
		case <-ctx.Done():
			return lastResult, ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}

	return lastResult, lastErr
}

func permanent(result *sitecrawl.FetchResult) bool {
	if result == nil {
		return false
	}
	code := result.StatusCode
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}
