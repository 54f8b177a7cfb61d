package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// RetryPolicy bounds retries of a single generation call.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// InitialDelay is the wait before the second attempt; each further
	// attempt doubles it.
	InitialDelay time.Duration
	// AttemptTimeout caps the duration of one attempt.
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy matches the constants documented in DESIGN.md:
// 3 attempts, 500ms initial delay, exponential doubling, 60s per attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		AttemptTimeout: 60 * time.Second,
	}
}

// RetryingGenerator wraps a Generator with a bounded retry policy and a
// shared token-bucket rate limiter, so concurrent callers collectively
// respect the service's rate limit.
type RetryingGenerator struct {
	inner   Generator
	policy  RetryPolicy
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewRetryingGenerator wraps inner. requestsPerSecond <= 0 disables the
// rate limiter.
func NewRetryingGenerator(inner Generator, policy RetryPolicy, requestsPerSecond float64, logger *slog.Logger) *RetryingGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &RetryingGenerator{
		inner:   inner,
		policy:  policy,
		limiter: limiter,
		log:     logger,
	}
}

func (g *RetryingGenerator) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	delay := g.policy.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= g.policy.MaxAttempts; attempt++ {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		out, err := g.attempt(ctx, prompt, temperature)
		if err == nil {
			return out, nil
		}
		lastErr = err
		g.log.Warn("llm.generate.retry",
			"attempt", attempt,
			"max_attempts", g.policy.MaxAttempts,
			"rate_limited", errors.Is(err, ErrRateLimited),
			"error", err,
		)

		if attempt == g.policy.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return "", fmt.Errorf("generation failed after %d attempts: %w", g.policy.MaxAttempts, lastErr)
}

func (g *RetryingGenerator) attempt(ctx context.Context, prompt string, temperature float32) (string, error) {
	if g.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.policy.AttemptTimeout)
		defer cancel()
	}
	return g.inner.Generate(ctx, prompt, temperature)
}
