package network

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/ratelimit"
)

// Limiter paces outbound requests per host.
type Limiter struct {
	rate     int
	limiters *xsync.MapOf[string, ratelimit.Limiter]
}

// NewLimiter returns a limiter allowing perSecond requests to each host.
// It returns nil when perSecond is not positive; a nil Limiter never blocks.
func NewLimiter(perSecond int) *Limiter {
	if perSecond <= 0 {
		return nil
	}
	return &Limiter{
		rate:     perSecond,
		limiters: xsync.NewMapOf[string, ratelimit.Limiter](),
	}
}

// Take blocks until a request to host is allowed or ctx is done. A slot
// claimed after ctx is done is left unused.
func (l *Limiter) Take(ctx context.Context, host string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l == nil {
		return nil
	}

	limiter, _ := l.limiters.LoadOrCompute(host, func() ratelimit.Limiter {
		return ratelimit.New(l.rate)
	})

	ready := make(chan struct{})
	go func() {
		limiter.Take()
		close(ready)
	}()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
