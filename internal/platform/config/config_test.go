package config

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{
			"FIRESTORE_PROJECT_ID":    "demo-project",
			"STORAGE_INVOICES_BUCKET": "demo-invoices",
		}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.RateLimits.CheckoutPerMinute != 10 {
		t.Fatalf("expected default checkout rate limit 10, got %d", cfg.RateLimits.CheckoutPerMinute)
	}
	if cfg.Idempotency.Header != "Idempotency-Key" {
		t.Fatalf("unexpected idempotency header %q", cfg.Idempotency.Header)
	}
	if cfg.Idempotency.TTL != 24*time.Hour {
		t.Fatalf("unexpected idempotency ttl %s", cfg.Idempotency.TTL)
	}
	if cfg.PubSub.ProjectID != "demo-project" {
		t.Fatalf("expected pubsub project to inherit firestore project, got %s", cfg.PubSub.ProjectID)
	}
	if cfg.Shop.Name != "MY SHOP" {
		t.Fatalf("unexpected shop name %q", cfg.Shop.Name)
	}
}

func TestLoadReportsMissingFields(t *testing.T) {
	_, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := validation.Fields()
	if len(fields) != 2 {
		t.Fatalf("expected two missing fields, got %v", fields)
	}
}

func TestLoadResolvesSecretReferences(t *testing.T) {
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if ref != "secret://projects/demo/secrets/stripe/versions/latest" {
			return "", errors.New("unexpected ref")
		}
		return "sk_test_resolved", nil
	})

	cfg, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithSecretResolver(resolver),
		WithEnvMap(map[string]string{
			"FIRESTORE_PROJECT_ID":    "demo-project",
			"STORAGE_INVOICES_BUCKET": "demo-invoices",
			"STRIPE_API_KEY":          "secret://projects/demo/secrets/stripe/versions/latest",
		}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.PSP.StripeAPIKey != "sk_test_resolved" {
		t.Fatalf("expected resolved secret, got %q", cfg.PSP.StripeAPIKey)
	}
}

func TestLoadFailsOnSecretWithoutResolver(t *testing.T) {
	_, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{
			"FIRESTORE_PROJECT_ID":    "demo-project",
			"STORAGE_INVOICES_BUCKET": "demo-invoices",
			"STRIPE_API_KEY":          "secret://projects/demo/secrets/stripe/versions/latest",
		}),
	)
	if err == nil {
		t.Fatal("expected error when secret reference has no resolver")
	}
}

func TestLoadOverridePrecedence(t *testing.T) {
	cfg, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{
			"FIRESTORE_PROJECT_ID":           "demo-project",
			"STORAGE_INVOICES_BUCKET":        "demo-invoices",
			"PORT":                           "9090",
			"RATE_LIMIT_CHECKOUT_PER_MINUTE": "3",
			"REDIS_ADDR":                     "localhost:6379",
			"REDIS_DB":                       "2",
		}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected explicit port 9090, got %s", cfg.Server.Port)
	}
	if cfg.RateLimits.CheckoutPerMinute != 3 {
		t.Fatalf("expected checkout limit 3, got %d", cfg.RateLimits.CheckoutPerMinute)
	}
	if cfg.Redis.DB != 2 {
		t.Fatalf("expected redis db 2, got %d", cfg.Redis.DB)
	}
}
