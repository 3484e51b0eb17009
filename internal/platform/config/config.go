package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile             = ".env"
	defaultPort                = "8080"
	defaultReadTimeout         = 15 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 120 * time.Second
	defaultCheckoutPerMinute   = 10
	defaultDefaultPerMinute    = 120
	defaultIdempotencyHeader   = "Idempotency-Key"
	defaultIdempotencyTTL      = 24 * time.Hour
	defaultShopName            = "MY SHOP"
	defaultShopAddress         = "Street 55, I10/1 Islamabad, Pakistan"
	defaultShopPhone           = "Phone: +92 300 0000000"
	defaultShopEmail           = "Email: support@myshop.com"
	secretRefPrefix            = "secret://"
)

// Config captures runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Firestore   FirestoreConfig
	Storage     StorageConfig
	PSP         PSPConfig
	PubSub      PubSubConfig
	Redis       RedisConfig
	RateLimits  RateLimitConfig
	Idempotency IdempotencyConfig
	Auth        AuthConfig
	Shop        ShopConfig
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	Audience string
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// StorageConfig names the bucket holding rendered invoices.
type StorageConfig struct {
	InvoicesBucket string
}

// PSPConfig collects payment provider credentials.
type PSPConfig struct {
	StripeAPIKey string
}

// PubSubConfig configures the order event topic.
type PubSubConfig struct {
	ProjectID string
	TopicID   string
}

// RedisConfig points the rate-limit counter store at a shared Redis.
// When Addr is empty the in-memory store is used instead.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig controls request throttling.
type RateLimitConfig struct {
	DefaultPerMinute  int
	CheckoutPerMinute int
}

// IdempotencyConfig controls the idempotency middleware.
type IdempotencyConfig struct {
	Header string
	TTL    time.Duration
}

// ShopConfig holds the identity block printed on every invoice page.
type ShopConfig struct {
	Name    string
	Address string
	Phone   string
	Email   string
}

// SecretResolver resolves secret:// references to their values.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError reports required configuration fields that are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap injects an explicit key/value map taking precedence over system env.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

// WithoutSystemEnv disables reading os.Getenv, relying only on maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

// WithSecretResolver sets the resolver used for secret:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) { o.secret = resolver }
}

// Load reads configuration from .env, the process environment, and any
// injected overrides, resolving secret:// references along the way.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{envFile: defaultEnvFile, useSystemEnv: true}
	for _, opt := range opts {
		opt(&options)
	}

	values, err := environmentValues(options)
	if err != nil {
		return Config{}, err
	}

	get := func(key string) string { return strings.TrimSpace(values[key]) }

	getSecret := func(key string) (string, error) {
		raw := get(key)
		if !strings.HasPrefix(raw, secretRefPrefix) {
			return raw, nil
		}
		if options.secret == nil {
			return "", fmt.Errorf("config: %s references a secret but no resolver is configured", key)
		}
		resolved, err := options.secret.ResolveSecret(ctx, raw)
		if err != nil {
			return "", fmt.Errorf("config: resolve %s: %w", key, err)
		}
		return strings.TrimSpace(resolved), nil
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         defaulted(get("PORT"), defaultPort),
			ReadTimeout:  durationOr(get("SERVER_READ_TIMEOUT"), defaultReadTimeout),
			WriteTimeout: durationOr(get("SERVER_WRITE_TIMEOUT"), defaultWriteTimeout),
			IdleTimeout:  durationOr(get("SERVER_IDLE_TIMEOUT"), defaultIdleTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:    get("FIRESTORE_PROJECT_ID"),
			EmulatorHost: get("FIRESTORE_EMULATOR_HOST"),
		},
		Storage: StorageConfig{
			InvoicesBucket: get("STORAGE_INVOICES_BUCKET"),
		},
		PubSub: PubSubConfig{
			ProjectID: defaulted(get("PUBSUB_PROJECT_ID"), get("FIRESTORE_PROJECT_ID")),
			TopicID:   get("PUBSUB_ORDER_EVENTS_TOPIC"),
		},
		Redis: RedisConfig{
			Addr:     get("REDIS_ADDR"),
			Password: get("REDIS_PASSWORD"),
			DB:       intOr(get("REDIS_DB"), 0),
		},
		RateLimits: RateLimitConfig{
			DefaultPerMinute:  intOr(get("RATE_LIMIT_DEFAULT_PER_MINUTE"), defaultDefaultPerMinute),
			CheckoutPerMinute: intOr(get("RATE_LIMIT_CHECKOUT_PER_MINUTE"), defaultCheckoutPerMinute),
		},
		Idempotency: IdempotencyConfig{
			Header: defaulted(get("IDEMPOTENCY_HEADER"), defaultIdempotencyHeader),
			TTL:    durationOr(get("IDEMPOTENCY_TTL"), defaultIdempotencyTTL),
		},
		Auth: AuthConfig{
			Audience: get("AUTH_TOKEN_AUDIENCE"),
		},
		Shop: ShopConfig{
			Name:    defaulted(get("SHOP_NAME"), defaultShopName),
			Address: defaulted(get("SHOP_ADDRESS"), defaultShopAddress),
			Phone:   defaulted(get("SHOP_PHONE"), defaultShopPhone),
			Email:   defaulted(get("SHOP_EMAIL"), defaultShopEmail),
		},
	}

	stripeKey, err := getSecret("STRIPE_API_KEY")
	if err != nil {
		return Config{}, err
	}
	cfg.PSP.StripeAPIKey = stripeKey

	var missing []string
	if cfg.Firestore.ProjectID == "" {
		missing = append(missing, "FIRESTORE_PROJECT_ID")
	}
	if cfg.Storage.InvoicesBucket == "" {
		missing = append(missing, "STORAGE_INVOICES_BUCKET")
	}
	if len(missing) > 0 {
		return Config{}, &ValidationError{fields: missing}
	}

	return cfg, nil
}

func environmentValues(options loaderOptions) (map[string]string, error) {
	values := make(map[string]string)

	dotEnv, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}
	for k, v := range dotEnv {
		values[k] = v
	}

	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
				continue
			}
			values[strings.TrimSpace(parts[0])] = parts[1]
		}
	}

	for k, v := range options.envMap {
		values[k] = v
	}

	return values, nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: open env file %s: %w", path, err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)
		if key != "" {
			values[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read env file %s: %w", path, err)
	}
	return values, nil
}

func defaulted(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func durationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func intOr(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
