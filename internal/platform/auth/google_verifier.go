package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

type idTokenValidator interface {
	Validate(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// GoogleIDTokenVerifier validates Google-signed ID tokens and maps their
// claims onto an Identity. Roles come from the "roles" claim; a truthy
// "admin" claim also grants the admin role.
type GoogleIDTokenVerifier struct {
	validator idTokenValidator
	audience  string
}

// GoogleVerifierOption customises the verifier construction.
type GoogleVerifierOption func(*googleVerifierConfig)

type googleVerifierConfig struct {
	clientOptions []option.ClientOption
	validator     idTokenValidator
}

// WithVerifierClientOptions forwards client options to the token validator.
func WithVerifierClientOptions(opts ...option.ClientOption) GoogleVerifierOption {
	return func(cfg *googleVerifierConfig) {
		cfg.clientOptions = append(cfg.clientOptions, opts...)
	}
}

func withValidator(v idTokenValidator) GoogleVerifierOption {
	return func(cfg *googleVerifierConfig) {
		cfg.validator = v
	}
}

// NewGoogleIDTokenVerifier constructs a verifier for the given audience.
func NewGoogleIDTokenVerifier(ctx context.Context, audience string, opts ...GoogleVerifierOption) (*GoogleIDTokenVerifier, error) {
	audience = strings.TrimSpace(audience)
	if audience == "" {
		return nil, errors.New("auth: token audience is required")
	}

	var cfg googleVerifierConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	validator := cfg.validator
	if validator == nil {
		v, err := idtoken.NewValidator(ctx, cfg.clientOptions...)
		if err != nil {
			return nil, fmt.Errorf("auth: create token validator: %w", err)
		}
		validator = v
	}

	return &GoogleIDTokenVerifier{
		validator: validator,
		audience:  audience,
	}, nil
}

var _ TokenVerifier = (*GoogleIDTokenVerifier)(nil)

// VerifyToken validates the bearer token and builds the caller identity.
func (v *GoogleIDTokenVerifier) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("auth: token is required")
	}

	payload, err := v.validator.Validate(ctx, token, v.audience)
	if err != nil {
		return nil, fmt.Errorf("auth: validate token: %w", err)
	}
	if strings.TrimSpace(payload.Subject) == "" {
		return nil, errors.New("auth: token has no subject")
	}

	identity := &Identity{
		UID:   payload.Subject,
		Roles: []string{RoleCustomer},
	}
	if email, ok := payload.Claims["email"].(string); ok {
		identity.Email = strings.TrimSpace(email)
	}
	identity.Roles = append(identity.Roles, claimedRoles(payload.Claims)...)
	return identity, nil
}

func claimedRoles(claims map[string]any) []string {
	var roles []string
	if raw, ok := claims["roles"].([]any); ok {
		for _, entry := range raw {
			if role, ok := entry.(string); ok && strings.TrimSpace(role) != "" {
				roles = append(roles, strings.TrimSpace(role))
			}
		}
	}
	if admin, ok := claims["admin"].(bool); ok && admin {
		roles = append(roles, RoleAdmin)
	}
	return roles
}
