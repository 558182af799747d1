package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// prune the seen map once it grows past this many owners.
const pruneThreshold = 1024

// OwnerThrottle spaces out order placement per owner: each X-Owner-ID may
// hit the surface once per window. Settlement itself is never throttled —
// the scheduler does not go through this middleware.
type OwnerThrottle struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
	now    func() time.Time
}

func NewOwnerThrottle(window time.Duration) *OwnerThrottle {
	return &OwnerThrottle{
		seen:   make(map[string]time.Time),
		window: window,
		now:    time.Now,
	}
}

func (t *OwnerThrottle) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := c.GetHeader("X-Owner-ID")
		if ownerID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "X-Owner-ID header required"})
			c.Abort()
			return
		}

		now := t.now()
		t.mu.Lock()
		last, exists := t.seen[ownerID]
		if exists && now.Sub(last) < t.window {
			retryIn := t.window - now.Sub(last)
			t.mu.Unlock()
			c.Header("Retry-After", strconv.Itoa(int(retryIn.Seconds())+1))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		t.seen[ownerID] = now
		if len(t.seen) > pruneThreshold {
			t.pruneLocked(now)
		}
		t.mu.Unlock()
		c.Next()
	}
}

func (t *OwnerThrottle) pruneLocked(now time.Time) {
	for owner, last := range t.seen {
		if now.Sub(last) >= t.window {
			delete(t.seen, owner)
		}
	}
}
