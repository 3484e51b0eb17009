package auth

import (
	"context"
	"strings"
)

// Role values carried by verified identities.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Identity represents an authenticated caller.
type Identity struct {
	UID   string
	Email string
	Roles []string
}

// HasRole reports whether the identity carries the given role.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	role = strings.ToLower(strings.TrimSpace(role))
	for _, candidate := range i.Roles {
		if strings.ToLower(strings.TrimSpace(candidate)) == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the identity may access the admin surface.
func (i *Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin)
}

type contextKey struct{ name string }

var identityKey = &contextKey{name: "auth.identity"}

// WithIdentity stores the identity in the context.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	if identity == nil {
		return ctx
	}
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext extracts the identity stored by the auth middleware.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	identity, ok := ctx.Value(identityKey).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
