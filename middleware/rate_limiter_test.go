package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/user/login", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_Allow(t *testing.T) {
	h := RateLimiter(rate.Limit(1), 1)(okHandler)

	if w := serve(h, "127.0.0.1:12345"); w.Code != http.StatusOK {
		t.Errorf("Expected first request to succeed, got status %d", w.Code)
	}
	if w := serve(h, "127.0.0.1:12345"); w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected second request to be rate limited, got status %d", w.Code)
	}
}

func TestRateLimiter_DifferentIPs(t *testing.T) {
	h := RateLimiter(rate.Limit(1), 1)(okHandler)

	w1 := serve(h, "127.0.0.1:12345")
	w2 := serve(h, "192.168.1.1:12345")

	if w1.Code != http.StatusOK || w2.Code != http.StatusOK {
		t.Errorf("Expected both IPs to pass, got %d and %d", w1.Code, w2.Code)
	}
}

func TestRateLimiter_EvictsIdleVisitors(t *testing.T) {
	now := time.Now()
	visitors := newVisitorSet(rate.Limit(1), 1, time.Minute)
	visitors.now = func() time.Time { return now }
	h := limitVisitors(visitors)(okHandler)

	serve(h, "127.0.0.1:1")
	serve(h, "10.0.0.1:1")
	if visitors.size() != 2 {
		t.Fatalf("Expected 2 visitors, got %d", visitors.size())
	}

	now = now.Add(2 * time.Minute)
	if w := serve(h, "127.0.0.1:1"); w.Code != http.StatusOK {
		t.Errorf("Expected refreshed bucket to allow request, got status %d", w.Code)
	}
	if visitors.size() != 1 {
		t.Errorf("Expected idle visitor to be evicted, got %d visitors", visitors.size())
	}
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return client, mr
}

func TestDistributedRateLimiter_AllowRequests(t *testing.T) {
	client, _ := setupTestRedis(t)
	limiter := NewDistributedRateLimiter(client)
	h := limiter.CreateMiddleware("auth", &RateLimit{Rate: 2, Window: time.Minute})(okHandler)

	for i := 0; i < 2; i++ {
		if w := serve(h, "127.0.0.1:12345"); w.Code != http.StatusOK {
			t.Errorf("Expected request %d to succeed, got status %d", i+1, w.Code)
		}
	}

	w := serve(h, "127.0.0.1:12345")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected third request to be rate limited, got status %d", w.Code)
	}
	if w.Header().Get("X-RateLimit-Limit") != "2" {
		t.Errorf("Expected X-RateLimit-Limit header, got %q", w.Header().Get("X-RateLimit-Limit"))
	}

	if w := serve(h, "10.0.0.1:1"); w.Code != http.StatusOK {
		t.Errorf("Expected other client to pass, got status %d", w.Code)
	}
}

func TestDistributedRateLimiter_RedisDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	limiter := NewDistributedRateLimiter(client)
	h := limiter.CreateMiddleware("auth", &RateLimit{Rate: 1, Window: time.Minute})(okHandler)

	w := serve(h, "127.0.0.1:12345")
	if w.Code != http.StatusOK {
		t.Errorf("Expected request to succeed when Redis is down, got status %d", w.Code)
	}
	if w.Header().Get("X-RateLimit-Error") != "true" {
		t.Error("Expected X-RateLimit-Error header when Redis is down")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.100:54321"
	if ip := ClientIP(req); ip != "192.168.1.100" {
		t.Errorf("Expected host without port, got %q", ip)
	}

	req.RemoteAddr = "pipe"
	if ip := ClientIP(req); ip != "pipe" {
		t.Errorf("Expected raw address fallback, got %q", ip)
	}
}
