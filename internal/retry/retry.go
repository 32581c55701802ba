// Package retry holds the caller-side retry policy for API requests.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rpggio/trackboard/internal/client"
	"github.com/rpggio/trackboard/internal/domain/project"
)

// Class groups errors by how they may be retried.
type Class int

const (
	// Permanent errors are never retried: validation, not found, cancellation, unknown.
	Permanent Class = iota
	// Timeout errors may have reached the server.
	Timeout
	// Transient errors are server-side flakiness or unreachable servers.
	Transient
)

// Classify sorts err into a retry class.
func Classify(err error) Class {
	switch {
	case err == nil:
		return Permanent
	case errors.Is(err, project.ErrValidation), errors.Is(err, project.ErrNotFound):
		return Permanent
	case errors.Is(err, context.Canceled):
		return Permanent
	case errors.Is(err, client.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return Timeout
	case errors.Is(err, project.ErrTransient), errors.Is(err, client.ErrNetwork):
		return Transient
	default:
		return Permanent
	}
}

// Policy bounds retries per error class.
type Policy struct {
	MaxTimeoutRetries   int
	MaxTransientRetries int
	// NetworkIsTransient controls whether ErrNetwork failures are retried
	// under MaxTransientRetries. Writes leave it false since the request may
	// have been applied.
	NetworkIsTransient bool
	BaseDelay          time.Duration
	MaxDelay           time.Duration
}

// Read is the policy for idempotent fetches.
var Read = Policy{
	MaxTimeoutRetries:   1,
	MaxTransientRetries: 2,
	NetworkIsTransient:  true,
	BaseDelay:           time.Second,
	MaxDelay:            10 * time.Second,
}

// Write is the policy for create, update and delete. Without an idempotency
// key a timed out write may already be applied, so timeouts are not retried.
var Write = Policy{
	MaxTimeoutRetries:   0,
	MaxTransientRetries: 1,
	BaseDelay:           time.Second,
	MaxDelay:            10 * time.Second,
}

// NewBackOff returns the delay schedule: doubling from BaseDelay, capped at MaxDelay, no jitter.
func (p Policy) NewBackOff() *backoff.ExponentialBackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         p.MaxDelay,
	}
}

// Notify is called before each retry with the failure and the upcoming delay.
type Notify func(err error, delay time.Duration)

// Do runs op until it succeeds, fails permanently, or exhausts the policy.
// The last error is returned unchanged.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error), notify Notify) (T, error) {
	var timeouts, transients int

	operation := func() (T, error) {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		class := Classify(err)
		if class == Transient && errors.Is(err, client.ErrNetwork) && !p.NetworkIsTransient {
			class = Permanent
		}
		switch class {
		case Timeout:
			timeouts++
			if timeouts > p.MaxTimeoutRetries {
				return v, backoff.Permanent(err)
			}
		case Transient:
			transients++
			if transients > p.MaxTransientRetries {
				return v, backoff.Permanent(err)
			}
		default:
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(p.NewBackOff()),
		backoff.WithMaxElapsedTime(0),
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(backoff.Notify(notify)))
	}
	return backoff.Retry(ctx, operation, opts...)
}
