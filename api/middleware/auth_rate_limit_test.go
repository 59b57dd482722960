package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tradewind-labs/tradedesk-backend/pkg/logger"
)

type stubRateCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newStubRateCounter() *stubRateCounter {
	return &stubRateCounter{counts: map[string]int64{}}
}

func (s *stubRateCounter) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	return s.counts[key], nil
}

func (s *stubRateCounter) RateLimitKey(scope string) string {
	return "td:rl:" + scope
}

func rateLimitedHandler(counter *stubRateCounter, policy AuthRateLimitPolicy) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "middleware-test"})
	return AuthRateLimit(counter, logg, policy)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func loginRequest(email, ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"`+email+`","password":"hunter22"}`))
	req.RemoteAddr = ip + ":51234"
	return req
}

func TestAuthRateLimitAllowsUnderLimit(t *testing.T) {
	counter := newStubRateCounter()
	handler := rateLimitedHandler(counter, NewAuthRateLimitPolicy("login", time.Minute, 5, 3))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("trader@example.com", "10.0.0.1"))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("attempt %d: expected 204, got %d", i+1, rec.Code)
		}
	}
}

func TestAuthRateLimitBlocksEmailOverLimit(t *testing.T) {
	counter := newStubRateCounter()
	handler := rateLimitedHandler(counter, NewAuthRateLimitPolicy("login", time.Minute, 100, 3))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("trader@example.com", "10.0.0.1"))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("warmup attempt %d failed: %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("trader@example.com", "10.0.0.2"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}

	// A different email from the same window is still fine.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("other@example.com", "10.0.0.3"))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("different email should pass, got %d", rec.Code)
	}
}

func TestAuthRateLimitBlocksIPOverLimit(t *testing.T) {
	counter := newStubRateCounter()
	handler := rateLimitedHandler(counter, NewAuthRateLimitPolicy("login", time.Minute, 2, 0))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("a"+string(rune('a'+i))+"@example.com", "10.0.0.9"))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("warmup attempt %d failed: %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("fresh@example.com", "10.0.0.9"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestAuthRateLimitFailsOpenOnRedisError(t *testing.T) {
	counter := newStubRateCounter()
	counter.err = errors.New("redis down")
	handler := rateLimitedHandler(counter, NewAuthRateLimitPolicy("login", time.Minute, 1, 1))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("trader@example.com", "10.0.0.1"))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected fail-open 204, got %d", rec.Code)
	}
}

func TestAuthRateLimitPreservesBody(t *testing.T) {
	counter := newStubRateCounter()
	logg := logger.New(logger.Options{ServiceName: "middleware-test"})

	var seenBody string
	handler := AuthRateLimit(counter, logg, NewAuthRateLimitPolicy("login", time.Minute, 5, 5))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			seenBody = string(body)
			w.WriteHeader(http.StatusNoContent)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("trader@example.com", "10.0.0.1"))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if !strings.Contains(seenBody, `"trader@example.com"`) {
		t.Fatalf("handler saw truncated body: %q", seenBody)
	}
}

func TestAuthRateLimitHonorsForwardedFor(t *testing.T) {
	counter := newStubRateCounter()
	handler := rateLimitedHandler(counter, NewAuthRateLimitPolicy("login", time.Minute, 1, 0))

	first := loginRequest("trader@example.com", "127.0.0.1")
	first.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request should pass, got %d", rec.Code)
	}

	second := loginRequest("other@example.com", "127.0.0.1")
	second.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("forwarded IP should be limited, got %d", rec.Code)
	}
}
