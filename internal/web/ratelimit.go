package web

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdle is how long an unused client bucket is kept.
const limiterIdle = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter keeps one token bucket per key and drops buckets that
// have been idle for a while.
type KeyedRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	limit    rate.Limit
	burst    int

	done     chan struct{}
	stopOnce sync.Once
}

// NewKeyedRateLimiter allows rps requests per second per key with the given
// burst.
func NewKeyedRateLimiter(rps float64, burst int) *KeyedRateLimiter {
	krl := &KeyedRateLimiter{
		limiters: make(map[string]*clientLimiter),
		limit:    rate.Limit(rps),
		burst:    burst,
		done:     make(chan struct{}),
	}
	go krl.cleanup(time.Minute)
	return krl
}

// Allow reports whether a request for key may proceed now.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	krl.mu.Lock()
	cl, ok := krl.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(krl.limit, krl.burst)}
		krl.limiters[key] = cl
	}
	cl.lastSeen = time.Now()
	krl.mu.Unlock()
	return cl.limiter.Allow()
}

// Stop shuts down the cleanup goroutine.
func (krl *KeyedRateLimiter) Stop() {
	krl.stopOnce.Do(func() {
		close(krl.done)
	})
}

func (krl *KeyedRateLimiter) cleanup(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-krl.done:
			return
		case now := <-t.C:
			krl.evict(now)
		}
	}
}

func (krl *KeyedRateLimiter) evict(now time.Time) {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	for k, cl := range krl.limiters {
		if now.Sub(cl.lastSeen) > limiterIdle {
			delete(krl.limiters, k)
		}
	}
}

func (krl *KeyedRateLimiter) size() int {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	return len(krl.limiters)
}
