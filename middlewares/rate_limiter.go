package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeremiapane/fnb-kiosk/utils"
)

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	rate  rate.Limit
	burst int
	ttl   time.Duration

	mu  sync.Mutex
	ips map[string]*visitor
	now func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rate:  rate.Limit(rps),
		burst: burst,
		ttl:   10 * time.Minute,
		ips:   make(map[string]*visitor),
		now:   time.Now,
	}
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.ips[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.ips[ip] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

// Prune forgets clients idle for longer than the ttl.
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.ttl)
	removed := 0
	for ip, v := range rl.ips {
		if v.lastSeen.Before(cutoff) {
			delete(rl.ips, ip)
			removed++
		}
	}
	return removed
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			utils.AbortWithError(c, http.StatusTooManyRequests, "Too many requests, please slow down")
			return
		}
		c.Next()
	}
}
