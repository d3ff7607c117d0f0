package platform

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds exponential backoff for lock acquisition and transient
// I/O errors.
type RetryPolicy struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Deadline is the total time budget. Zero means a single attempt.
	Deadline time.Duration
	// Notify, when set, is called before each sleep.
	Notify func(err error, next time.Duration)
}

// DefaultRetryPolicy returns the policy used when nothing is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay: 50 * time.Millisecond,
		MaxDelay:  time.Second,
		Deadline:  10 * time.Second,
	}
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.BaseDelay > 0 {
		b.InitialInterval = p.BaseDelay
	}
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	b.Multiplier = 2
	b.RandomizationFactor = 0.2
	return b
}

// Retry runs op until it succeeds, fails with an error retryable rejects,
// the deadline passes, or ctx is done. The last error from op is returned.
func Retry(ctx context.Context, p RetryPolicy, retryable func(error) bool, op func() error) error {
	opts := []backoff.RetryOption{backoff.WithBackOff(p.backOff())}
	if p.Deadline > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(p.Deadline))
	} else {
		opts = append(opts, backoff.WithMaxTries(1))
	}
	if p.Notify != nil {
		opts = append(opts, backoff.WithNotify(p.Notify))
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op()
		if err != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, opts...)

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
