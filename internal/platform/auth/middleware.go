package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/myshop/api/internal/platform/httpx"
)

// TokenVerifier validates bearer tokens issued by the identity provider.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*Identity, error)
}

// TokenVerifierFunc adapts ordinary functions to TokenVerifier.
type TokenVerifierFunc func(context.Context, string) (*Identity, error)

// VerifyToken implements TokenVerifier.
func (f TokenVerifierFunc) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	return f(ctx, token)
}

// Middleware verifies the Authorization header and stores the resulting
// identity in the request context. Requests without a token pass through
// unauthenticated; RequireUser and RequireAdmin enforce presence downstream.
func Middleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok || verifier == nil {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "invalid or expired credentials", http.StatusUnauthorized))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireUser rejects requests that carry no authenticated identity.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests whose identity lacks the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
			return
		}
		if !identity.IsAdmin() {
			httpx.WriteError(r.Context(), w, httpx.NewError("permission_denied", "admin access required", http.StatusForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
