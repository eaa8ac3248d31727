package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiter is a per-client-IP token bucket. Analysis uploads are
// expensive for the inference backend, so the default limits are low.
type RateLimiter struct {
	clients map[string]*clientBucket
	mutex   sync.Mutex
	cleanup *time.Ticker
	stopCh  chan struct{}
	logger  *zap.Logger
	rps     int
	burst   int
}

type clientBucket struct {
	tokens     float64
	lastUpdate time.Time
}

func NewRateLimiter(rps, burst int, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientBucket),
		stopCh:  make(chan struct{}),
		logger:  logger,
		rps:     rps,
		burst:   burst,
	}

	rl.cleanup = time.NewTicker(5 * time.Minute)
	go rl.cleanupIdleClients()

	return rl
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if !rl.allow(clientIP) {
			rl.logger.Warn("Rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.String("path", c.Request.URL.Path))

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": 60,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) allow(clientIP string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	bucket, exists := rl.clients[clientIP]
	if !exists {
		bucket = &clientBucket{tokens: float64(rl.burst), lastUpdate: now}
		rl.clients[clientIP] = bucket
	}

	elapsed := now.Sub(bucket.lastUpdate).Seconds()
	bucket.tokens += elapsed * float64(rl.rps)
	if bucket.tokens > float64(rl.burst) {
		bucket.tokens = float64(rl.burst)
	}
	bucket.lastUpdate = now

	if bucket.tokens < 1 {
		return false
	}
	bucket.tokens--
	return true
}

func (rl *RateLimiter) cleanupIdleClients() {
	for {
		select {
		case <-rl.cleanup.C:
			rl.mutex.Lock()
			cutoff := time.Now().Add(-10 * time.Minute)
			for ip, bucket := range rl.clients {
				if bucket.lastUpdate.Before(cutoff) {
					delete(rl.clients, ip)
				}
			}
			rl.mutex.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) Shutdown() {
	rl.cleanup.Stop()
	close(rl.stopCh)
}
