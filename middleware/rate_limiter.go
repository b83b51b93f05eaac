package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// rateLimiterStore holds per-class, per-client rate limiters.
type rateLimiterStore struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

var limiterStore = &rateLimiterStore{
	limiters: make(map[string]*rate.Limiter),
}

// getLimiter returns the limiter for a (class, ip) pair, creating one
// if it doesn't exist.
func (s *rateLimiterStore) getLimiter(class, ip string, limit rate.Limit, burst int) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := class + ":" + ip
	limiter, exists := s.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(limit, burst)
		s.limiters[key] = limiter
	}
	return limiter
}

// RateLimit limits requests per client for one route class. count is the
// number of requests allowed per window.
func RateLimit(class string, count int, window time.Duration) gin.HandlerFunc {
	limit := rate.Every(window / time.Duration(count))
	return func(c *gin.Context) {
		logger := zap.L()
		ip := clientIP(c)
		limiter := limiterStore.getLimiter(class, ip, limit, count)
		if !limiter.Allow() {
			logger.Warn("Rate limit exceeded",
				zap.String("class", class),
				zap.String("ip", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Try again later."})
			return
		}
		c.Next()
	}
}
