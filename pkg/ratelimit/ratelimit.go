// Package ratelimit provides a keyed token-bucket limiter and an echo
// middleware that throttles requests per client IP.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter gives each key its own token bucket. Buckets that haven't
// been touched for idleTTL are dropped by Sweep.
type KeyedLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a limiter allowing perMinute requests per minute per key with
// the given burst. A background goroutine sweeps idle keys until Stop is
// called.
func New(perMinute, burst int) *KeyedLimiter {
	kl := newKeyedLimiter(perMinute, burst)
	go kl.sweepLoop()
	return kl
}

func newKeyedLimiter(perMinute, burst int) *KeyedLimiter {
	if burst < 1 {
		burst = 1
	}
	return &KeyedLimiter{
		entries: make(map[string]*entry),
		limit:   rate.Limit(float64(perMinute) / time.Minute.Seconds()),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
		done:    make(chan struct{}),
	}
}

// Allow reports whether a request for key may proceed right now.
func (kl *KeyedLimiter) Allow(key string) bool {
	kl.mu.Lock()
	e, ok := kl.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(kl.limit, kl.burst)}
		kl.entries[key] = e
	}
	e.lastSeen = kl.now()
	kl.mu.Unlock()

	return e.limiter.Allow()
}

// Len returns the number of tracked keys.
func (kl *KeyedLimiter) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.entries)
}

// Sweep removes keys idle for longer than the TTL.
func (kl *KeyedLimiter) Sweep() {
	cutoff := kl.now().Add(-kl.idleTTL)
	kl.mu.Lock()
	defer kl.mu.Unlock()
	for k, e := range kl.entries {
		if e.lastSeen.Before(cutoff) {
			delete(kl.entries, k)
		}
	}
}

// Stop ends the sweep goroutine. It is safe to call more than once.
func (kl *KeyedLimiter) Stop() {
	kl.stopOnce.Do(func() {
		close(kl.done)
	})
}

func (kl *KeyedLimiter) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			kl.Sweep()
		case <-kl.done:
			return
		}
	}
}
