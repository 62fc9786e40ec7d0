package metrics

import (
	"context"
	"errors"
	"time"
)

type timeoutGateway struct {
	next    Gateway
	timeout time.Duration
}

// WithCallTimeout bounds each provider call with a fixed timeout. It belongs
// below WithLimits so that time spent queued for quota is not charged to the
// call. A successful answer that arrives after the deadline is reported as
// context.DeadlineExceeded. A non-positive timeout returns next unchanged.
func WithCallTimeout(next Gateway, timeout time.Duration) Gateway {
	if timeout <= 0 {
		return next
	}
	return &timeoutGateway{next: next, timeout: timeout}
}

func (g *timeoutGateway) Query(ctx context.Context, q Query) (Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	res, err := g.next.Query(callCtx, q)
	if err == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return Result{}, callCtx.Err()
	}
	return res, err
}
