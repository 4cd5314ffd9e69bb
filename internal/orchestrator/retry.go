package orchestrator

import (
	"context"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/wagiedev/claudeflow-go/internal/config"
)

// Retry defaults.
const (
	DefaultInitialInterval = time.Second
	DefaultMultiplier      = 2.0
	DefaultMaxInterval     = 30 * time.Second
)

// DefaultRetryableCodes are the result codes retried when a policy lists none.
var DefaultRetryableCodes = []string{"error_during_execution"}

// RetryPolicy bounds re-execution of a task after transient failures.
//
// The n-th retry waits InitialInterval * Multiplier^(n-1), capped at
// MaxInterval and spread by RandomizationFactor. Zero fields take the
// package defaults; MaxAttempts below 1 means a single attempt.
type RetryPolicy struct {
	MaxAttempts         int
	InitialInterval     time.Duration
	Multiplier          float64
	MaxInterval         time.Duration
	RandomizationFactor float64
	RetryableCodes      []string
}

// PolicyFromConfig converts config file retry settings.
func PolicyFromConfig(r config.Retry) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:         r.MaxAttempts,
		InitialInterval:     r.InitialInterval,
		Multiplier:          r.Multiplier,
		MaxInterval:         r.MaxInterval,
		RandomizationFactor: r.RandomizationFactor,
		RetryableCodes:      slices.Clone(r.RetryableCodes),
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	if p.InitialInterval <= 0 {
		p.InitialInterval = DefaultInitialInterval
	}

	if p.Multiplier < 1 {
		p.Multiplier = DefaultMultiplier
	}

	if p.MaxInterval <= 0 {
		p.MaxInterval = DefaultMaxInterval
	}

	if p.RetryableCodes == nil {
		p.RetryableCodes = DefaultRetryableCodes
	}

	return p
}

// backOff returns the delay schedule. NextBackOff returns backoff.Stop once
// MaxAttempts-1 retries were handed out.
func (p RetryPolicy) backOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(p.InitialInterval),
		backoff.WithMultiplier(p.Multiplier),
		backoff.WithMaxInterval(p.MaxInterval),
		backoff.WithRandomizationFactor(p.RandomizationFactor),
		backoff.WithMaxElapsedTime(0),
	)

	return backoff.WithMaxRetries(exp, uint64(p.MaxAttempts-1))
}

// Retry executes spec, re-running it after transient failures as allowed by
// policy. Permanent failures return immediately.
func (o *Orchestrator) Retry(ctx context.Context, spec Spec, policy RetryPolicy) Outcome {
	return o.execute(ctx, newTaskID(), 0, spec, policy, nil)
}
