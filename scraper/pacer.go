package scraper

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// Pacer imposes the inter-request delay policy for sequential mode.
// In parallel mode no explicit delay applies — throttling comes from the
// bounded worker count — so a nil *Pacer is valid and waits for nothing.
type Pacer struct {
	limiter *rate.Limiter
	jitter  time.Duration
}

// NewPacer builds the sequential-mode pacer: at most one fetch per three
// seconds sustained, plus up to two seconds of jitter per wait so requests
// don't land on a fixed beat.
func NewPacer() *Pacer {
	return &Pacer{
		limiter: rate.NewLimiter(rate.Every(3*time.Second), 1),
		jitter:  2 * time.Second,
	}
}

// Wait blocks until the next fetch may start, honouring cancellation.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	if p.jitter <= 0 {
		return nil
	}
	t := time.NewTimer(time.Duration(rand.Int63n(int64(p.jitter))))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
