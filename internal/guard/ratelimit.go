package guard

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/hwsystem/hwsystem/internal/platform/httpx"
	"github.com/hwsystem/hwsystem/internal/ratelimit"
)

// RateLimitGuard is the entry stage of the pipeline, checking the request
// against the endpoint class budget before any authentication work happens.
type RateLimitGuard struct {
	limiter ratelimit.Limiter
	logger  *slog.Logger
}

// NewRateLimitGuard constructs a RateLimitGuard.
func NewRateLimitGuard(limiter ratelimit.Limiter, logger *slog.Logger) *RateLimitGuard {
	return &RateLimitGuard{limiter: limiter, logger: logger}
}

// Limit builds the guard for one policy. Counters key on the authenticated
// user for ByUser policies, falling back to the client IP when the request
// reaches the limiter unauthenticated. Limiter backend failures reject as
// unavailable rather than letting sensitive endpoints run unmetered.
func (g *RateLimitGuard) Limit(policy ratelimit.Policy) Guard {
	return func(r *http.Request) (context.Context, *Rejection) {
		key := policy.Name + ":" + clientKey(r, policy.ByUser)

		result, err := g.limiter.Check(r.Context(), key, policy.Window, policy.Max)
		if err != nil {
			g.logger.Error("rate limit check failed", slog.String("key", key), slog.Any("error", err))
			return nil, unavailable()
		}
		if !result.Allowed {
			retryAfter := int64(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			header := http.Header{}
			header.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			header.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			header.Set("X-RateLimit-Remaining", "0")
			header.Set("X-RateLimit-Reset", strconv.FormatInt(retryAfter, 10))
			return nil, &Rejection{
				Status:  http.StatusTooManyRequests,
				Code:    httpx.CodeRateLimited,
				Message: "too many requests, try again later",
				Header:  header,
			}
		}
		return nil, nil
	}
}

// clientKey picks the counter identity: the authenticated user when
// available and wanted, otherwise the client IP. RemoteAddr is already
// rewritten by the RealIP middleware upstream.
func clientKey(r *http.Request, byUser bool) string {
	if byUser {
		if principal, ok := PrincipalFromContext(r.Context()); ok {
			return "user:" + strconv.FormatInt(principal.ID, 10)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
