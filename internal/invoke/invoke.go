// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package invoke wraps one external AI call with retry and exponential
// backoff. Two failure classes are fatal and never retried: quota
// exhaustion and oversized payloads. Everything else is treated as
// transient until the retry budget runs out.
package invoke

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrQuotaExceeded reports that the AI service rejected the call for
	// rate or quota reasons. Retrying immediately makes it worse.
	ErrQuotaExceeded = errors.New("AI service quota exceeded: wait a minute and retry later")

	// ErrPayloadTooLarge reports that the request was rejected for size.
	// Retrying never helps without shrinking the input.
	ErrPayloadTooLarge = errors.New("request payload too large: reduce the number of papers and retry")
)

const (
	DefaultAnalysisRetries    = 3
	DefaultAnalysisDelay      = 2 * time.Second
	DefaultTranslationRetries = 1
	DefaultTranslationDelay   = time.Second
)

// quotaMarkers and payloadMarkers are matched case-insensitively against
// the error text. Bare status codes go through statusPattern instead so
// that ports and addresses in network errors never match.
var (
	quotaMarkers = []string{
		"quota",
		"resource_exhausted",
		"resource exhausted",
		"rate limit",
		"rate_limit",
		"too many requests",
	}
	payloadMarkers = []string{
		"payload too large",
		"request entity too large",
		"request too large",
		"exceeds the maximum number of tokens",
	}

	// statusPattern matches a standalone 429 or 413. A preceding colon,
	// dot or word character rules out host:port and dotted addresses.
	statusPattern = regexp.MustCompile(`(?:^|[^\w:.])(429|413)\b`)
)

// Classify returns a fatal error wrapping both the matching sentinel and
// err when err carries a fatal fingerprint, or nil when err is transient.
// Quota markers are checked first.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrPayloadTooLarge) {
		return err
	}
	msg := strings.ToLower(err.Error())
	status := statusCodes(msg)
	if status["429"] || containsAny(msg, quotaMarkers) {
		return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
	}
	if status["413"] || containsAny(msg, payloadMarkers) {
		return fmt.Errorf("%w: %w", ErrPayloadTooLarge, err)
	}
	return nil
}

// IsFatal reports whether err belongs to one of the two fatal classes.
func IsFatal(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrPayloadTooLarge)
}

func statusCodes(msg string) map[string]bool {
	found := map[string]bool{}
	for _, m := range statusPattern.FindAllStringSubmatch(msg, -1) {
		found[m[1]] = true
	}
	return found
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// Policy controls the retry loop.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// Delay is the first backoff wait. Each retry doubles it.
	Delay time.Duration

	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry, if set, is called before each backoff wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// AnalysisPolicy is the policy for analysis and trend calls.
func AnalysisPolicy() Policy {
	return Policy{MaxRetries: DefaultAnalysisRetries, Delay: DefaultAnalysisDelay}
}

// TranslationPolicy is the policy for translation calls.
func TranslationPolicy() Policy {
	return Policy{MaxRetries: DefaultTranslationRetries, Delay: DefaultTranslationDelay}
}

// Do runs op until it succeeds, fails fatally, or the retry budget is
// spent. Retries are strictly sequential. When the budget is spent the
// last error is returned unmodified. A context cancelled during a wait
// ends the loop with ctx.Err().
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T

	sleep := p.Sleep
	if sleep == nil {
		sleep = timerSleep
	}
	retries := max(p.MaxRetries, 0)
	delay := p.Delay

	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if fatal := Classify(err); fatal != nil {
			return zero, fatal
		}
		if ctx.Err() != nil || retries == 0 {
			return zero, err
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
		retries--
		delay *= 2
	}
}

func timerSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
