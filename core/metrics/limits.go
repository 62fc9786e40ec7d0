package metrics

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

type limitedGateway struct {
	next    Gateway
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// WithLimits caps in-flight calls at maxInFlight and the call rate at
// requestsPerSecond. Callers over the limit wait in queue until ctx ends;
// ctx should be the scan context, not a per-call one. A non-positive value
// disables the corresponding limit.
func WithLimits(next Gateway, maxInFlight int, requestsPerSecond float64) Gateway {
	g := &limitedGateway{next: next}
	if maxInFlight > 0 {
		g.sem = semaphore.NewWeighted(int64(maxInFlight))
	}
	if requestsPerSecond > 0 {
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return g
}

func (g *limitedGateway) Query(ctx context.Context, q Query) (Result, error) {
	if g.sem != nil {
		if err := g.sem.Acquire(ctx, 1); err != nil {
			return Result{}, err
		}
		defer g.sem.Release(1)
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			// Wait fails early when the token would arrive after the
			// deadline; keep queueing so the caller sees ctx ending.
			<-ctx.Done()
			return Result{}, ctx.Err()
		}
	}
	return g.next.Query(ctx, q)
}
