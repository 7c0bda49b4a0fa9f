// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package invoke

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures backoff waits without sleeping.
type recorder struct {
	waits []time.Duration
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

// failN returns an op that fails the first n calls with errs[i] (or a
// generic transient error) and then succeeds.
func failN(n int, calls *int, errs ...error) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		*calls++
		if *calls <= n {
			if len(errs) >= *calls {
				return "", errs[*calls-1]
			}
			return "", fmt.Errorf("network glitch (call %d)", *calls)
		}
		return "ok", nil
	}
}

func TestDoRetriesWithDoublingDelay(t *testing.T) {
	for k := 0; k <= 3; k++ {
		t.Run(fmt.Sprintf("%d failures", k), func(t *testing.T) {
			rec := &recorder{}
			calls := 0
			got, err := Do(context.Background(), Policy{MaxRetries: 3, Delay: 100 * time.Millisecond, Sleep: rec.sleep}, failN(k, &calls))
			require.NoError(t, err)
			assert.Equal(t, "ok", got)
			assert.Equal(t, k+1, calls)
			require.Len(t, rec.waits, k)
			for i := 1; i < len(rec.waits); i++ {
				assert.Equal(t, 2*rec.waits[i-1], rec.waits[i])
			}
			if k > 0 {
				assert.Equal(t, 100*time.Millisecond, rec.waits[0])
			}
		})
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	rec := &recorder{}
	calls := 0
	last := errors.New("final transient failure")
	errs := []error{errors.New("first"), errors.New("second"), last}

	_, err := Do(context.Background(), Policy{MaxRetries: 2, Delay: time.Second, Sleep: rec.sleep}, failN(5, &calls, errs...))
	assert.Same(t, last, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.waits)
}

func TestDoFatalShortCircuit(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{name: "quota 429", err: errors.New("Error 429, Message: Resource has been exhausted, Status: RESOURCE_EXHAUSTED"), sentinel: ErrQuotaExceeded},
		{name: "quota text", err: errors.New("You exceeded your current quota"), sentinel: ErrQuotaExceeded},
		{name: "payload 413", err: errors.New("error, status code: 413, message: request entity too large"), sentinel: ErrPayloadTooLarge},
		{name: "token limit", err: errors.New("input exceeds the maximum number of tokens allowed"), sentinel: ErrPayloadTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			calls := 0
			_, err := Do(context.Background(), Policy{MaxRetries: 3, Delay: time.Second, Sleep: rec.sleep}, failN(1, &calls, tt.err))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.ErrorIs(t, err, tt.err)
			assert.True(t, IsFatal(err))
			assert.Equal(t, 1, calls)
			assert.Empty(t, rec.waits)
		})
	}
}

func TestDoFatalAfterTransient(t *testing.T) {
	rec := &recorder{}
	calls := 0
	errs := []error{errors.New("connection reset"), errors.New("429 Too Many Requests")}
	_, err := Do(context.Background(), Policy{MaxRetries: 3, Delay: time.Millisecond, Sleep: rec.sleep}, failN(5, &calls, errs...))
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, 2, calls)
	assert.Len(t, rec.waits, 1)
}

func TestDoOnRetry(t *testing.T) {
	var attempts []int
	calls := 0
	p := Policy{
		MaxRetries: 2,
		Delay:      time.Millisecond,
		Sleep:      (&recorder{}).sleep,
		OnRetry:    func(attempt int, _ time.Duration, _ error) { attempts = append(attempts, attempt) },
	}
	_, err := Do(context.Background(), p, failN(2, &calls))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDoContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	start := time.Now()
	_, err := Do(ctx, Policy{MaxRetries: 3, Delay: time.Minute}, failN(5, &calls))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestDoZeroBudget(t *testing.T) {
	rec := &recorder{}
	calls := 0
	_, err := Do(context.Background(), Policy{MaxRetries: 0, Sleep: rec.sleep}, failN(1, &calls))
	require.Error(t, err)
	assert.False(t, IsFatal(err))
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.waits)
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil))
	assert.Nil(t, Classify(errors.New("i/o timeout")))
	assert.ErrorIs(t, Classify(errors.New("Rate limit reached for requests")), ErrQuotaExceeded)
	assert.ErrorIs(t, Classify(errors.New("HTTP 413 Payload Too Large")), ErrPayloadTooLarge)
	assert.ErrorIs(t, Classify(errors.New("error, status code: 429, message: slow down")), ErrQuotaExceeded)
	assert.ErrorIs(t, Classify(errors.New("error, status code: 413, status: 413 Request Entity Too Large")), ErrPayloadTooLarge)

	already := fmt.Errorf("wrapped: %w", ErrPayloadTooLarge)
	assert.Same(t, already, Classify(already))
}

func TestClassifyIgnoresAddressesInNetworkErrors(t *testing.T) {
	for _, msg := range []string{
		"read tcp 192.168.1.7:54290->142.250.4.95:443: read: connection reset by peer",
		"dial tcp 10.0.0.2:42913: connect: connection refused",
		"write tcp 10.0.0.2:34130->1.2.3.4:443: write: broken pipe",
		"dial tcp 127.0.0.1:429: connect: connection refused",
		"dial tcp 127.0.0.1:413: i/o timeout",
	} {
		assert.Nil(t, Classify(errors.New(msg)), msg)
	}
}

func TestDoRetriesConnectionResetOnEphemeralPort(t *testing.T) {
	rec := &recorder{}
	calls := 0
	reset := errors.New("read tcp 192.168.1.7:54290->142.250.4.95:443: read: connection reset by peer")

	got, err := Do(context.Background(), Policy{MaxRetries: 3, Delay: time.Second, Sleep: rec.sleep}, failN(1, &calls, reset))
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, calls)
	assert.Len(t, rec.waits, 1)
}

func TestDefaultPolicies(t *testing.T) {
	assert.Equal(t, 3, AnalysisPolicy().MaxRetries)
	assert.Equal(t, 1, TranslationPolicy().MaxRetries)
}
