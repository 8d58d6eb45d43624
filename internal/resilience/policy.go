package resilience

import (
	"context"
	"errors"
	"time"
)

// Policy retries a call with exponential backoff behind a circuit breaker.
type Policy struct {
	Breaker     *Breaker
	BaseBackoff time.Duration
	MaxAttempts int
	Jitter      float64
	// Timeout bounds each attempt. Zero leaves the caller's deadline alone.
	Timeout time.Duration
}

// Do runs fn until it succeeds, attempts run out, the breaker opens or ctx
// ends. The last attempt error is returned; a refused call returns ErrOpenCircuit.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if p.Breaker != nil && !p.Breaker.Allow(ctx) {
			if lastErr != nil {
				return errors.Join(ErrOpenCircuit, lastErr)
			}
			return ErrOpenCircuit
		}
		err := p.once(ctx, fn)
		if p.Breaker != nil {
			p.Breaker.Report(ctx, err == nil)
		}
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == attempts {
			break
		}

		timer := time.NewTimer(Backoff(p.BaseBackoff, attempt, p.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(lastErr, ctx.Err())
		case <-timer.C:
		}
	}
	return lastErr
}

func (p Policy) once(ctx context.Context, fn func(context.Context) error) error {
	if p.Timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return fn(callCtx)
}
