package pipeline

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces the fixed inter-request delay toward the external
// authorities. The batch loop is sequential, so a single limiter with
// burst 1 reduces to "wait out the interval since the last live
// request". Cache hits bypass the pacer entirely.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer emitting one permit per interval. A zero or
// negative interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next request may be issued.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
