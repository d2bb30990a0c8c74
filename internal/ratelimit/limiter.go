// Package ratelimit guards the challenge verification endpoint against
// brute-force submission: a per-client-address token bucket with idle-key
// cleanup, plus an optional stats sink for multi-instance visibility.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Store hands out one token-bucket limiter per client key and cleans up
// buckets idle past the TTL.
type Store struct {
	mu           sync.Mutex
	entries      map[string]*storeEntry
	limit        rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	retryAfter   time.Duration
}

type storeEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithIdleTTL sets how long an unused key's bucket is retained.
func WithIdleTTL(d time.Duration) Option {
	return func(s *Store) { s.idleTTL = d }
}

// WithCleanupEvery sets the janitor interval.
func WithCleanupEvery(d time.Duration) Option {
	return func(s *Store) { s.cleanupEvery = d }
}

// WithRetryAfter sets the Retry-After hint returned on denial.
func WithRetryAfter(d time.Duration) Option {
	return func(s *Store) { s.retryAfter = d }
}

// NewStore creates a store allowing ratePerMinute sustained submissions
// with the given burst per client key.
func NewStore(ratePerMinute int, burst int, opts ...Option) *Store {
	if ratePerMinute <= 0 {
		ratePerMinute = 10
	}
	if burst <= 0 {
		burst = 1
	}
	s := &Store{
		entries:      make(map[string]*storeEntry),
		limit:        rate.Limit(float64(ratePerMinute) / 60.0),
		burst:        burst,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		retryAfter:   time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check consumes one token for key and reports whether the submission is
// within limits.
func (s *Store) Check(key string) Decision {
	if s.get(key).Allow() {
		return Decision{Allowed: true}
	}
	return Decision{Allowed: false, RetryAfter: s.retryAfter}
}

func (s *Store) get(key string) *rate.Limiter {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.limit, s.burst)
	s.entries[key] = &storeEntry{lim: lim, lastSeen: now}
	return lim
}

// Cleanup drops buckets not seen within the idle TTL.
func (s *Store) Cleanup() {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// Len returns the number of tracked keys. For tests and introspection.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartJanitor runs periodic cleanup until ctx is done.
func (s *Store) StartJanitor(ctx context.Context) {
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
