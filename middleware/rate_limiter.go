package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"workhub-manager/server/logging"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// visitorTTL is how long an idle client's bucket is kept.
const visitorTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorSet holds one token bucket per client and drops buckets idle for
// longer than ttl. Sweeps run at most once per ttl, on access.
type visitorSet struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
	visitors  map[string]*visitor
}

func newVisitorSet(r rate.Limit, b int, ttl time.Duration) *visitorSet {
	return &visitorSet{
		limit:     r,
		burst:     b,
		ttl:       ttl,
		now:       time.Now,
		lastSweep: time.Now(),
		visitors:  make(map[string]*visitor),
	}
}

func (s *visitorSet) get(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.ttl {
		for key, v := range s.visitors {
			if now.Sub(v.lastSeen) >= s.ttl {
				delete(s.visitors, key)
			}
		}
		s.lastSweep = now
	}

	v, exists := s.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (s *visitorSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// RateLimiter keeps one token bucket per client IP.
func RateLimiter(r rate.Limit, b int) func(http.Handler) http.Handler {
	return limitVisitors(newVisitorSet(r, b, visitorTTL))
}

func limitVisitors(visitors *visitorSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ip := ClientIP(req)
			if !visitors.get(ip).Allow() {
				logging.Logger.Warnf("Event ID: RATE_LIMITED, Description: Too many requests from %s to %s", ip, req.URL.Path)
				writeError(w, http.StatusTooManyRequests, "Too many requests, try again later")
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

// DistributedRateLimiter shares a sliding window per client across instances
// through Redis. It fails open when Redis is unreachable.
type DistributedRateLimiter struct {
	redis *redis.Client
}

type RateLimit struct {
	Rate    int
	Window  time.Duration
	KeyFunc func(*http.Request) string
}

func NewDistributedRateLimiter(redisClient *redis.Client) *DistributedRateLimiter {
	return &DistributedRateLimiter{redis: redisClient}
}

func (rl *DistributedRateLimiter) CreateMiddleware(name string, limit *RateLimit) func(http.Handler) http.Handler {
	if limit.KeyFunc == nil {
		limit.KeyFunc = ClientIP
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("rate_limit:%s:%s", name, limit.KeyFunc(r))

			allowed, err := rl.checkLimit(r.Context(), key, limit)
			if err != nil {
				logging.Logger.Warnf("Event ID: RATE_LIMIT_BACKEND_ERROR, Description: %v", err)
				w.Header().Set("X-RateLimit-Error", "true")
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
				w.Header().Set("X-RateLimit-Window", limit.Window.String())
				writeError(w, http.StatusTooManyRequests, "Too many requests, try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *DistributedRateLimiter) checkLimit(ctx context.Context, key string, limit *RateLimit) (bool, error) {
	now := time.Now().UnixNano()
	windowStart := now - limit.Window.Nanoseconds()

	pipe := rl.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.Expire(ctx, key, limit.Window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to execute rate limit pipeline: %w", err)
	}

	return countCmd.Val() < int64(limit.Rate), nil
}

// ClientIP is the request's remote host without the port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
