// smartscrape/services/pipeline/ratelimit.go
package pipeline

import (
	"sync"
	"time"
)

// pruneThreshold is the map size above which stale entries are dropped.
const pruneThreshold = 1024

// Limiter enforces a per-key cooldown. Every call stamps the key, so a
// client hammering the same query keeps pushing its own window forward
// and stays rejected until it backs off for a full cooldown.
type Limiter struct {
	mu       sync.Mutex
	last     map[string]time.Time
	cooldown time.Duration

	now func() time.Time
}

// NewLimiter builds a limiter with the given cooldown between calls that
// share a key.
func NewLimiter(cooldown time.Duration) *Limiter {
	return &Limiter{
		last:     make(map[string]time.Time),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Allow checks and stamps key in one step. It reports whether the call
// may proceed and, when it may not, how long until a quiet client would
// be admitted again.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	prev, seen := l.last[key]
	l.last[key] = now

	if len(l.last) > pruneThreshold {
		l.prune(now)
	}

	if seen {
		if elapsed := now.Sub(prev); elapsed < l.cooldown {
			return false, l.cooldown - elapsed
		}
	}
	return true, 0
}

// Len reports how many keys the limiter is tracking.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.last)
}

// prune drops entries whose window already elapsed; they can no longer
// reject anything. Caller holds the lock.
func (l *Limiter) prune(now time.Time) {
	for key, ts := range l.last {
		if now.Sub(ts) >= l.cooldown {
			delete(l.last, key)
		}
	}
}
