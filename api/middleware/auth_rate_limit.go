package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tradewind-labs/tradedesk-backend/api/responses"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
	"github.com/tradewind-labs/tradedesk-backend/pkg/logger"
)

// rateCounter is the slice of the Redis client the limiter needs.
type rateCounter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// AuthRateLimitPolicy throttles credential endpoints by client IP and, when
// the body carries one, by the submitted email. Counters live in fixed Redis
// windows; Redis outages fail open so auth never hinges on the cache.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

// NewAuthRateLimitPolicy builds a named policy. Non-positive limits disable
// the corresponding dimension.
func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	return AuthRateLimitPolicy{
		name:       strings.TrimSpace(strings.ToLower(name)),
		window:     window,
		ipLimit:    ipLimit,
		emailLimit: emailLimit,
	}
}

// AuthRateLimit enforces the policy before the handler runs. The request body
// is restored after the email sniff so decoders downstream see it intact.
func AuthRateLimit(counter rateCounter, logg *logger.Logger, policy AuthRateLimitPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if policy.window <= 0 || (policy.ipLimit <= 0 && policy.emailLimit <= 0) {
				next.ServeHTTP(w, r)
				return
			}

			if policy.ipLimit > 0 {
				ip := clientIP(r)
				if ip != "" {
					scope := fmt.Sprintf("ip:%s:%s", policy.name, ip)
					if limited := overLimit(ctx, counter, logg, scope, policy.window, policy.ipLimit); limited {
						writeRateLimited(ctx, w, logg)
						return
					}
				}
			}

			if policy.emailLimit > 0 {
				email, restored := sniffEmail(r)
				r = restored
				if email != "" {
					scope := fmt.Sprintf("email:%s:%s", policy.name, hashEmail(email))
					if limited := overLimit(ctx, counter, logg, scope, policy.window, policy.emailLimit); limited {
						writeRateLimited(ctx, w, logg)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func overLimit(ctx context.Context, counter rateCounter, logg *logger.Logger, scope string, window time.Duration, limit int) bool {
	count, err := counter.IncrWithTTL(ctx, counter.RateLimitKey(scope), window)
	if err != nil {
		logg.Error(ctx, "rate limit counter unavailable", err)
		return false
	}
	return count > int64(limit)
}

func writeRateLimited(ctx context.Context, w http.ResponseWriter, logg *logger.Logger) {
	responses.WriteError(ctx, logg, w,
		pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

// sniffEmail peeks at the JSON body for an email field without consuming it.
func sniffEmail(r *http.Request) (string, *http.Request) {
	if r.Body == nil {
		return "", r
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return "", r
	}

	var probe struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return "", r
	}
	return strings.ToLower(strings.TrimSpace(probe.Email)), r
}

func hashEmail(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}

// clientIP resolves the originating address, trusting proxy headers first.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
