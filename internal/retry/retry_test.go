package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errFlaky   = errors.New("flaky")
	errLimited = errors.New("limited")
	errBroken  = errors.New("broken")
)

func classify(err error) Kind {
	switch {
	case errors.Is(err, errFlaky):
		return KindTransient
	case errors.Is(err, errLimited):
		return KindRateLimit
	default:
		return KindFatal
	}
}

func fastPolicy(retries uint64) Policy {
	return Policy{
		MaxRetries:     retries,
		BaseDelay:      time.Millisecond,
		MaxDelay:       2 * time.Millisecond,
		RateLimitDelay: time.Millisecond,
	}
}

func TestDoRetriesTransientUntilSuccess(t *testing.T) {
	calls := 0
	var hooked []Kind

	got, err := Do(context.Background(), fastPolicy(5), classify,
		func(ctx context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errFlaky
			}
			return "ok", nil
		},
		func(attempt int, kind Kind, err error) {
			hooked = append(hooked, kind)
		},
	)

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []Kind{KindTransient, KindTransient}, hooked)
}

func TestDoStopsOnFatal(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), classify,
		func(ctx context.Context) (int, error) {
			calls++
			return 0, errBroken
		},
		nil,
	)

	assert.ErrorIs(t, err, errBroken)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsRetries(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(2), classify,
		func(ctx context.Context) (int, error) {
			calls++
			return 0, errLimited
		},
		nil,
	)

	assert.ErrorIs(t, err, errLimited)
	assert.Equal(t, 3, calls)
}

func TestDoZeroRetriesIsSingleAttempt(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(0), classify,
		func(ctx context.Context) (int, error) {
			calls++
			return 0, errFlaky
		},
		nil,
	)

	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{MaxRetries: 10, BaseDelay: time.Hour, RateLimitDelay: time.Hour}

	_, err := Do(ctx, policy, classify,
		func(ctx context.Context) (int, error) {
			cancel()
			return 0, errFlaky
		},
		nil,
	)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "fatal", KindFatal.String())
	assert.Equal(t, "transient", KindTransient.String())
	assert.Equal(t, "rate_limit", KindRateLimit.String())
}
