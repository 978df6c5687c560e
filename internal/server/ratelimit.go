package server

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/conneroisu/wxjsx/internal/logging"
)

const (
	bucketIdleTimeout = 10 * time.Minute
	cleanupInterval   = 5 * time.Minute
)

// RateLimiter implements token bucket rate limiting per client.
type RateLimiter struct {
	buckets     map[string]*TokenBucket
	bucketMutex sync.Mutex
	perMinute   int
	burst       int
	logger      logging.Logger
	now         func() time.Time
	stopCleaner chan struct{}
	stopOnce    sync.Once
}

// TokenBucket represents a token bucket for rate limiting
type TokenBucket struct {
	tokens     float64
	lastRefill time.Time
	lastAccess time.Time
}

// RateLimitResult represents the result of a rate limit check
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// NewRateLimiter allows perMinute requests per client with bursts of up to
// burst requests. Stop releases the cleanup goroutine.
func NewRateLimiter(perMinute, burst int, logger logging.Logger) *RateLimiter {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	if burst < 1 {
		burst = 1
	}

	rl := &RateLimiter{
		buckets:     make(map[string]*TokenBucket),
		perMinute:   perMinute,
		burst:       burst,
		logger:      logger.WithComponent("ratelimit"),
		now:         time.Now,
		stopCleaner: make(chan struct{}),
	}
	go rl.cleanupExpiredBuckets()

	return rl
}

// Check consumes a token for key, usually the client IP.
func (rl *RateLimiter) Check(key string) RateLimitResult {
	rl.bucketMutex.Lock()
	defer rl.bucketMutex.Unlock()

	now := rl.now()
	bucket, ok := rl.buckets[key]
	if !ok {
		bucket = &TokenBucket{tokens: float64(rl.burst), lastRefill: now}
		rl.buckets[key] = bucket
	}
	bucket.lastAccess = now

	// Refill proportionally to the elapsed time.
	elapsed := now.Sub(bucket.lastRefill)
	bucket.tokens += float64(elapsed) * float64(rl.perMinute) / float64(time.Minute)
	if bucket.tokens > float64(rl.burst) {
		bucket.tokens = float64(rl.burst)
	}
	bucket.lastRefill = now

	if bucket.tokens >= 1 {
		bucket.tokens--
		return RateLimitResult{Allowed: true, Remaining: int(bucket.tokens)}
	}

	missing := 1 - bucket.tokens
	retry := time.Duration(missing * float64(time.Minute) / float64(rl.perMinute))
	return RateLimitResult{Allowed: false, RetryAfter: retry}
}

func (rl *RateLimiter) cleanupExpiredBuckets() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.performCleanup()
		case <-rl.stopCleaner:
			return
		}
	}
}

func (rl *RateLimiter) performCleanup() {
	rl.bucketMutex.Lock()
	defer rl.bucketMutex.Unlock()

	now := rl.now()
	for key, bucket := range rl.buckets {
		if now.Sub(bucket.lastAccess) > bucketIdleTimeout {
			delete(rl.buckets, key)
		}
	}
}

// Stop stops the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleaner) })
}

// RateLimitMiddleware rejects requests over the limit with 429.
func RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)
			result := limiter.Check(clientIP)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.perMinute))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

			if !result.Allowed {
				seconds := int(result.RetryAfter.Seconds() + 0.999)
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				limiter.logger.Warn(r.Context(), nil, "rate limit exceeded",
					"client_ip", clientIP,
					"path", r.URL.Path,
				)
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP uses the connection address only; forwarding headers are
// client controlled.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
