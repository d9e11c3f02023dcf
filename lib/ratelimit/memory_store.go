package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// MemoryStore keeps bucket state in-process behind a mutex. It carries the
// same contract as RedisStore and suits single-process deployments and tests;
// counts are not shared across replicas.
type MemoryStore struct {
	mu           sync.Mutex
	entries      map[string]*memoryBucket
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type memoryBucket struct {
	tokens     float64
	lastRefill time.Time
	lastSeen   time.Time
}

type MemoryOption func(*MemoryStore)

func WithIdleTTL(d time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.cleanupEvery = d }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries:      make(map[string]*memoryBucket),
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Take(_ context.Context, key string, capacity int, refillRate float64, cost float64, now time.Time) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		ent = &memoryBucket{tokens: float64(capacity), lastRefill: now}
		s.entries[key] = ent
	}

	elapsed := math.Max(0, now.Sub(ent.lastRefill).Seconds())
	tokens := math.Min(float64(capacity), ent.tokens+elapsed*refillRate)
	ent.lastSeen = now

	// denials leave stored state untouched, so a failed check never
	// refills or debits the bucket
	if tokens >= cost {
		ent.tokens = tokens - cost
		ent.lastRefill = now
		return ent.tokens, true, nil
	}
	return tokens, false, nil
}

func (s *MemoryStore) Cleanup() {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor drops idle buckets periodically until the context is done.
func (s *MemoryStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}
