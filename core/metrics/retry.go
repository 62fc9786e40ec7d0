package metrics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cloud-waste/internal/logging"
)

// RetryPolicy bounds retries of a failing gateway
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryPolicy returns 3 attempts with 200ms..5s backoff
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2,
	}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.InitialBackoff
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
		if p.MaxBackoff > 0 && d > p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return d
}

type retryGateway struct {
	next     Gateway
	policy   RetryPolicy
	logger   *zap.Logger
	observer Observer
}

// WithRetry retries failed calls with bounded exponential backoff. When
// attempts run out the call degrades to an unavailable result with a nil
// error. Cancellation of ctx is returned as an error and never retried.
func WithRetry(next Gateway, policy RetryPolicy, logger *zap.Logger, observer Observer) Gateway {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = 1
	}
	return &retryGateway{
		next:     next,
		policy:   policy,
		logger:   logging.OrDefault(logger),
		observer: observerOrNop(observer),
	}
}

func (g *retryGateway) Query(ctx context.Context, q Query) (Result, error) {
	var lastErr error
	for attempt := 1; attempt <= g.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			g.observer.GatewayCall(OutcomeCancelled)
			return Result{}, err
		}

		res, err := g.next.Query(ctx, q)
		if err == nil {
			res = res.Normalize()
			if res.Unavailable {
				g.observer.GatewayCall(OutcomeUnavailable)
			} else {
				g.observer.GatewayCall(OutcomeOK)
			}
			return res, nil
		}
		if ctx.Err() != nil {
			g.observer.GatewayCall(OutcomeCancelled)
			return Result{}, ctx.Err()
		}

		lastErr = err
		if attempt == g.policy.MaxAttempts {
			break
		}
		g.observer.GatewayCall(OutcomeRetried)
		wait := g.policy.backoff(attempt)
		g.logger.Debug("metrics query failed, retrying",
			zap.String("resource_id", q.ResourceID),
			zap.String("metric", q.MetricName),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			g.observer.GatewayCall(OutcomeCancelled)
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}

	g.observer.GatewayCall(OutcomeExhausted)
	g.logger.Warn("metrics query exhausted retries",
		zap.String("resource_id", q.ResourceID),
		zap.String("metric", q.MetricName),
		zap.Int("attempts", g.policy.MaxAttempts),
		zap.Error(lastErr))
	return Unavailable("retries exhausted: " + lastErr.Error()), nil
}
