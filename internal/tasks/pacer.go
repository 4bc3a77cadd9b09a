package tasks

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// pacer enforces a fixed pause between the end of one request and the start of the next.
//
// The limiter holds at most one token and is emptied whenever a request finishes, so the token is only back once
// delay has passed since that response arrived. Slow responses therefore never eat into the pause.
type pacer struct {
	mu      sync.Mutex
	delay   time.Duration
	limiter *rate.Limiter
}

func newPacer(delay time.Duration) *pacer {
	p := &pacer{delay: delay}
	if delay > 0 {
		p.limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return p
}

// wait blocks until delay has passed since the last finished request. The first request goes out immediately.
func (p *pacer) wait(ctx context.Context) error {
	p.mu.Lock()
	limiter := p.limiter
	p.mu.Unlock()

	if limiter == nil {
		return ctx.Err()
	}
	return limiter.Wait(ctx)
}

// done starts the pause at t, the moment a response (or failure) came back.
func (p *pacer) done(t time.Time) {
	if p.delay <= 0 {
		return
	}
	limiter := rate.NewLimiter(rate.Every(p.delay), 1)
	limiter.AllowN(t, 1)

	p.mu.Lock()
	p.limiter = limiter
	p.mu.Unlock()
}
