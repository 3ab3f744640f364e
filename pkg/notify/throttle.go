package notify

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Throttled bounds the send rate of the wrapped sink. Send blocks until a
// token is available or ctx is done.
type Throttled struct {
	next    Sink
	limiter *rate.Limiter
}

func NewThrottled(next Sink, perSecond float64, burst int) *Throttled {
	if burst < 1 {
		burst = 1
	}

	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}

	return &Throttled{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (t *Throttled) Send(ctx context.Context, n Notification) error {
	err := t.limiter.Wait(ctx)
	if err != nil {
		return fmt.Errorf("notification throttled: %w", err)
	}

	return t.next.Send(ctx, n)
}
