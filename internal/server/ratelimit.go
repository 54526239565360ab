package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a user's bucket survives without traffic.
const limiterIdleTTL = 10 * time.Minute

type userBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// userLimiter keeps one token bucket per user. A non-positive rate disables
// limiting.
type userLimiter struct {
	mu                sync.Mutex
	buckets           map[string]*userBucket
	requestsPerSecond float64
	burst             int
	idleTTL           time.Duration
	lastSweep         time.Time
	now               func() time.Time
}

func newUserLimiter(requestsPerSecond float64, burst int) *userLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &userLimiter{
		buckets:           make(map[string]*userBucket),
		requestsPerSecond: requestsPerSecond,
		burst:             burst,
		idleTTL:           limiterIdleTTL,
		lastSweep:         time.Now(),
		now:               time.Now,
	}
}

func (l *userLimiter) Allow(userID string) bool {
	if l.requestsPerSecond <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}

	b, ok := l.buckets[userID]
	if !ok {
		b = &userBucket{limiter: rate.NewLimiter(rate.Limit(l.requestsPerSecond), l.burst)}
		l.buckets[userID] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// sweep drops buckets idle for longer than idleTTL. Callers hold mu.
func (l *userLimiter) sweep(now time.Time) {
	for id, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.buckets, id)
		}
	}
	l.lastSweep = now
}

func (l *userLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
