// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package throttle spaces outbound requests to each upstream service.
// One token-bucket limiter with burst 1 is kept per service name, so two
// requests to the same service are at least one interval apart no matter
// how many goroutines issue them, while different services do not wait on
// each other.
package throttle

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle hands out per-service limiters. The zero interval disables waiting.
// Safe for concurrent use.
type Throttle struct {
	interval time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New returns a Throttle enforcing interval between requests to one service.
func New(interval time.Duration) *Throttle {
	return &Throttle{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Interval returns the configured minimum spacing.
func (t *Throttle) Interval() time.Duration {
	if t == nil {
		return 0
	}
	return t.interval
}

// Wait blocks until a request to service may be sent or ctx is done.
// A nil Throttle never blocks.
func (t *Throttle) Wait(ctx context.Context, service string) error {
	if t == nil || t.interval <= 0 {
		return ctx.Err()
	}
	return t.limiter(service).Wait(ctx)
}

// Limiter returns a wait function bound to service, for callers that take a
// plain func(context.Context) error.
func (t *Throttle) Limiter(service string) func(context.Context) error {
	return func(ctx context.Context) error {
		return t.Wait(ctx, service)
	}
}

func (t *Throttle) limiter(service string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters[service]
	if !ok {
		l = rate.NewLimiter(rate.Every(t.interval), 1)
		t.limiters[service] = l
	}
	return l
}
