package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// idleBucketTTL is how long a client may stay silent before its bucket is dropped.
const idleBucketTTL = time.Hour

// RateLimiter hands out rate tokens per window to each client key. Tokens
// refill continuously, so a client that waits half a window gets half its
// budget back.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    int
	window  time.Duration
	now     func() time.Time

	sweep    *time.Ticker
	stop     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter creates a limiter allowing rate requests per window and
// starts a goroutine that forgets idle clients. Call Stop to release it.
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		window:  window,
		now:     time.Now,
		sweep:   time.NewTicker(5 * time.Minute),
		stop:    make(chan struct{}),
	}
	go rl.sweepIdle()
	return rl
}

func (rl *RateLimiter) sweepIdle() {
	for {
		select {
		case <-rl.sweep.C:
			rl.mu.Lock()
			cutoff := rl.now().Add(-idleBucketTTL)
			for key, b := range rl.buckets {
				if b.seen.Before(cutoff) {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stop:
			return
		}
	}
}

// Stop stops the sweeper goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		rl.sweep.Stop()
		close(rl.stop)
	})
}

// Allow takes one token for key. It reports whether the request may proceed,
// the whole tokens left, and how long until the next token when refused.
func (rl *RateLimiter) Allow(key string) (bool, int, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	capacity := float64(rl.rate)

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: capacity, seen: now}
		rl.buckets[key] = b
	}

	if elapsed := now.Sub(b.seen); elapsed > 0 {
		b.tokens = math.Min(capacity, b.tokens+capacity*elapsed.Seconds()/rl.window.Seconds())
	}
	b.seen = now

	if b.tokens < 1 {
		perToken := time.Duration(float64(rl.window) / capacity)
		wait := time.Duration((1 - b.tokens) * float64(perToken))
		return false, 0, wait
	}

	b.tokens--
	return true, int(b.tokens), 0
}

// GetClientKey extracts a client identifier from the request: the first
// X-Forwarded-For hop, then X-Real-IP, then the remote host.
func GetClientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimitMiddleware rejects requests over the limit with 429 and a
// Retry-After header.
func RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	limit := strconv.Itoa(limiter.rate)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining, wait := limiter.Allow(GetClientKey(r))

			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error": "rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
