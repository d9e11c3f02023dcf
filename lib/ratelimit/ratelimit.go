// Package ratelimit implements the shared token bucket used at both the
// global ingress edge (per client IP) and the per-tenant gateway edge
// (per api/key pair). The two differ only in key and parameters.
package ratelimit

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Decision is the outcome of one bucket check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
	Degraded   bool
}

// Store holds bucket state per key and performs the read-modify-write as one
// atomic operation, so two concurrent checks against the same key can never
// both spend the last token. Missing state initializes to a full bucket.
type Store interface {
	Take(ctx context.Context, key string, capacity int, refillRate float64, cost float64, now time.Time) (tokens float64, allowed bool, err error)
}

// Limiter wraps a Store with header math and fail-open degradation. When the
// store is unreachable requests are admitted, the transition is logged once,
// and the limiter recovers on the next successful store call.
type Limiter struct {
	store    Store
	degraded atomic.Bool
}

func New(store Store) *Limiter {
	return &Limiter{store: store}
}

func (l *Limiter) Allow(ctx context.Context, key string, capacity int, refillRate float64, cost float64) Decision {
	now := time.Now()

	tokens, allowed, err := l.store.Take(ctx, key, capacity, refillRate, cost, now)
	if err != nil {
		if l.degraded.CompareAndSwap(false, true) {
			log.Warnw("rate limit store unreachable, failing open", "error", err)
		}
		return Decision{
			Allowed:   true,
			Limit:     capacity,
			Remaining: capacity,
			Reset:     now,
			Degraded:  true,
		}
	}
	if l.degraded.CompareAndSwap(true, false) {
		log.Infow("rate limit store reachable again, resuming enforcement")
	}

	d := Decision{
		Allowed:   allowed,
		Limit:     capacity,
		Remaining: int(math.Floor(tokens)),
		Reset:     now.Add(timeToFull(tokens, capacity, refillRate)),
	}
	if !allowed {
		d.RetryAfter = time.Duration(math.Ceil((cost-tokens)/refillRate)) * time.Second
	}
	return d
}

// Degraded reports whether the limiter is currently failing open.
func (l *Limiter) Degraded() bool {
	return l.degraded.Load()
}

func timeToFull(tokens float64, capacity int, refillRate float64) time.Duration {
	missing := float64(capacity) - tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(missing/refillRate)) * time.Second
}
