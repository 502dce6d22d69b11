package llms

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/chatrag/chatrag/config"
	"github.com/chatrag/chatrag/pkg/models"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 4 * time.Second
	DefaultMultiplier  = 2
	DefaultMaxDelay    = 60 * time.Second
)

// RetryPolicy is exponential backoff over transient provider errors. Only errors
// matching models.ErrTransient are retried.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float32
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Multiplier:  DefaultMultiplier,
		MaxDelay:    DefaultMaxDelay,
	}
}

func RetryPolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   time.Duration(cfg.BaseDelayMS) * time.Millisecond,
		Multiplier:  cfg.Multiplier,
		MaxDelay:    time.Duration(cfg.MaxDelayMS) * time.Millisecond,
	}
}

// Delay is the wait before the given retry (1 based), capped at MaxDelay.
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry < 1 || p.BaseDelay <= 0 {
		return 0
	}
	mult := float64(p.Multiplier)
	if mult < 1 {
		mult = 1
	}
	d := time.Duration(float64(p.BaseDelay) * math.Pow(mult, float64(retry-1)))
	if p.MaxDelay > 0 && (d > p.MaxDelay || d < 0) {
		return p.MaxDelay
	}
	return d
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func buildRetryPolicy[T any](p RetryPolicy) retrypolicy.RetryPolicy[T] {
	builder := retrypolicy.Builder[T]().
		HandleIf(func(_ T, err error) bool {
			return errors.Is(err, models.ErrTransient)
		}).
		WithMaxRetries(p.attempts() - 1).
		ReturnLastFailure()

	switch {
	case p.BaseDelay <= 0:
	case p.Multiplier > 1 && p.MaxDelay > p.BaseDelay:
		builder = builder.WithBackoffFactor(p.BaseDelay, p.MaxDelay, p.Multiplier)
	default:
		builder = builder.WithDelay(p.BaseDelay)
	}

	return builder.Build()
}

// executeWithRetry runs fn under the policy. When every attempt failed transiently
// the last error is wrapped in a ProviderUnavailableError. Other errors are returned
// as they are, after the first attempt that produced them.
func executeWithRetry[T any](
	ctx context.Context,
	p RetryPolicy,
	provider string,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	attempts := 0
	result, err := failsafe.NewExecutor[T](buildRetryPolicy[T](p)).
		WithContext(ctx).
		Get(func() (T, error) {
			attempts++
			r, err := fn(ctx)
			if err != nil && errors.Is(err, models.ErrTransient) && attempts < p.attempts() {
				log.Warnf("%s attempt %d/%d failed, retrying in %s: %v",
					provider, attempts, p.attempts(), p.Delay(attempts), err)
			}
			return r, err
		})
	if err == nil {
		return result, nil
	}

	var zero T
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, ctxErr
	}
	if errors.Is(err, models.ErrTransient) {
		return zero, models.NewProviderUnavailableError(provider, attempts, err)
	}
	return zero, err
}
