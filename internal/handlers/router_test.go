package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/myshop/api/internal/repositories"
)

func TestRouterDefaultsRespondNotImplemented(t *testing.T) {
	router := NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotImplemented)
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nothing-here", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if !strings.Contains(rec.Body.String(), "route_not_found") {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestRouterMountsRegisteredRoutes(t *testing.T) {
	router := NewRouter(
		WithProductRoutes(func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
				writeJSONResponse(w, http.StatusOK, map[string]any{"products": []any{}})
			})
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouterAppliesGroupMiddlewares(t *testing.T) {
	var sawMiddleware bool
	router := NewRouter(
		WithCartMiddlewares(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				sawMiddleware = true
				next.ServeHTTP(w, r)
			})
		}),
		WithCartRoutes(func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !sawMiddleware {
		t.Fatal("cart middleware was not applied")
	}
}

func TestHealthzReportsOK(t *testing.T) {
	router := NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestReadyzReportsUnhealthyDependencies(t *testing.T) {
	health := NewHealthHandlers(repositories.NewDependencyHealthRepository(
		repositories.DependencyCheck{
			Name:  "firestore",
			Check: func(context.Context) error { return errors.New("connection refused") },
		},
		repositories.DependencyCheck{
			Name:  "storage",
			Check: func(context.Context) error { return nil },
		},
	))
	router := NewRouter(WithHealthHandlers(health))

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if !strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestReadyzHealthy(t *testing.T) {
	health := NewHealthHandlers(repositories.NewDependencyHealthRepository(
		repositories.DependencyCheck{
			Name:  "firestore",
			Check: func(context.Context) error { return nil },
		},
	))
	router := NewRouter(WithHealthHandlers(health))

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"firestore":"ok"`) {
		t.Fatalf("body = %q", rec.Body.String())
	}
}
