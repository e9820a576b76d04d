package notify

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited wraps a notifier with a token bucket so a flapping fleet
// cannot flood the transport. Sends wait for a token rather than drop;
// the caller's context bounds the wait.
type RateLimited struct {
	inner Notifier
	lim   *rate.Limiter
}

// NewRateLimited allows perMin alerts per minute with a burst of the
// same size. perMin <= 0 disables limiting.
func NewRateLimited(inner Notifier, perMin int) Notifier {
	if perMin <= 0 {
		return inner
	}
	return &RateLimited{
		inner: inner,
		lim:   rate.NewLimiter(rate.Limit(float64(perMin)/60), perMin),
	}
}

func (r *RateLimited) Send(ctx context.Context, title, text string) error {
	if err := r.lim.Wait(ctx); err != nil {
		return err
	}
	return r.inner.Send(ctx, title, text)
}
