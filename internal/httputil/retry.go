// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers for talking politely to
// rate-limited public services.
package httputil

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// RetryBaseDelay is the first backoff wait after a throttled response.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// MaxRetryAfter caps how long a server-provided Retry-After may hold us.
var MaxRetryAfter = time.Minute

const defaultMaxRetries = 4

// Retryable reports whether a status code means "slow down and try again".
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// DoWithRetry executes req and retries on HTTP 429 and 503 with
// exponential backoff starting at RetryBaseDelay. A Retry-After header in
// seconds replaces the computed delay, capped at MaxRetryAfter.
//
// When maxRetries is 0 the default (4) is used. The body of a throttled
// response is drained and closed before sleeping. A context cancelled
// during a wait returns ctx.Err(). After the last retry the throttled
// response is returned so the caller can report its status.
//
// Retries are logged through the logger attached to ctx, if any.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	log := zerolog.Ctx(ctx)

	delay := RetryBaseDelay
	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if !Retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		wait := delay
		if ra, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
			wait = min(ra, MaxRetryAfter)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		log.Warn().
			Int("status", resp.StatusCode).
			Str("host", req.URL.Host).
			Dur("wait", wait).
			Int("attempt", attempt+1).
			Int("max_retries", maxRetries).
			Msg("throttled, backing off")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
	}
}

func retryAfter(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
