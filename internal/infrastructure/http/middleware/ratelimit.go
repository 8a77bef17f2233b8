package middleware

import (
	"sync"
	"time"

	"github.com/alchemorsel/recipediff/internal/infrastructure/config"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiters keeps one token bucket per client IP. Buckets idle for
// longer than the cleanup interval are dropped on the next sweep.
type ipLimiters struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newIPLimiters(cfg config.RateLimitConfig) *ipLimiters {
	perMin := cfg.RequestsPerMin
	if perMin <= 0 {
		perMin = 10
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = perMin
	}
	idle := cfg.CleanupInterval
	if idle <= 0 {
		idle = time.Minute
	}

	return &ipLimiters{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMin)),
		burst:    burst,
		idle:     idle,
		now:      time.Now,
	}
}

func (l *ipLimiters) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) >= l.idle {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *ipLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}
