// Package retry wraps a single attempt function with backoff. Whether an
// error is worth retrying is decided by a Classifier supplied by the caller,
// so transport-specific knowledge stays with the transport.
package retry

import (
	"context"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// how a failed attempt should be treated
type Kind int

const (
	KindFatal Kind = iota
	KindTransient
	KindRateLimit
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRateLimit:
		return "rate_limit"
	default:
		return "fatal"
	}
}

type Classifier func(err error) Kind

// called for every failure that is not fatal, including the last one
type Hook func(attempt int, kind Kind, err error)

type Policy struct {
	// retries after the first attempt; 0 means a single attempt
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// rate-limit failures wait at least this long
	RateLimitDelay time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     4,
		BaseDelay:      time.Second,
		MaxDelay:       30 * time.Second,
		RateLimitDelay: 5 * time.Second,
	}
}

// Do calls attempt until it succeeds, the classifier reports a fatal error,
// retries run out or ctx is done. The last attempt's error is returned.
func Do[T any](
	ctx context.Context,
	policy Policy,
	classify Classifier,
	attempt func(ctx context.Context) (T, error),
	hook Hook,
) (T, error) {
	backoff := policy.backoff()
	var lastKind Kind
	n := 0

	wrapped := func(ctx context.Context) (T, error) {
		n++
		v, err := attempt(ctx)
		if err == nil {
			return v, nil
		}

		lastKind = classify(err)
		if lastKind == KindFatal {
			return v, err
		}
		if hook != nil {
			hook(n, lastKind, err)
		}
		return v, goretry.RetryableError(err)
	}

	rateAware := goretry.BackoffFunc(func() (time.Duration, bool) {
		next, stop := backoff.Next()
		if !stop && lastKind == KindRateLimit && next < policy.RateLimitDelay {
			next = policy.RateLimitDelay
		}
		return next, stop
	})

	return goretry.DoValue(ctx, rateAware, wrapped)
}

func (p Policy) backoff() goretry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Millisecond
	}
	b := goretry.NewExponential(base)
	if p.MaxDelay > 0 {
		b = goretry.WithCappedDuration(p.MaxDelay, b)
	}
	b = goretry.WithJitterPercent(10, b)
	return goretry.WithMaxRetries(p.MaxRetries, b)
}
