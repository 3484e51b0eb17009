package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/myshop/api/internal/platform/auth"
	"github.com/myshop/api/internal/platform/httpx"
	"github.com/myshop/api/internal/platform/requestctx"
)

// KeyFunc derives the throttling key for a request.
type KeyFunc func(r *http.Request) string

// ClientKey keys requests by authenticated user, falling back to remote IP.
func ClientKey(r *http.Request) string {
	if identity, ok := auth.IdentityFromContext(r.Context()); ok && identity.UID != "" {
		return "uid:" + identity.UID
	}
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return "ip:" + first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}

// Middleware throttles requests per client using the limiter. The route scope
// keeps independent quotas for separately limited endpoints.
func Middleware(limiter *Limiter, scope string, keyFn KeyFunc) func(http.Handler) http.Handler {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if keyFn == nil {
		keyFn = ClientKey
	}
	scope = strings.TrimSpace(scope)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if scope != "" {
				key = scope + ":" + key
			}

			result, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger := requestctx.Logger(r.Context())
				logger.Warn("ratelimit.store_error")
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

			if !result.Allowed {
				retrySeconds := int(result.RetryIn.Seconds())
				if retrySeconds < 1 {
					retrySeconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retrySeconds))
				httpx.WriteError(r.Context(), w, httpx.NewError(
					"rate_limited",
					fmt.Sprintf("request quota exceeded, retry in %ds", retrySeconds),
					http.StatusTooManyRequests,
				))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
