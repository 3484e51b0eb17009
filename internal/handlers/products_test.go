package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/myshop/api/internal/domain"
	"github.com/myshop/api/internal/services"
)

func newProductRouter(t *testing.T, catalog services.CatalogService) http.Handler {
	t.Helper()
	if catalog == nil {
		catalog = &stubCatalogService{}
	}
	h, err := NewProductHandlers(catalog)
	if err != nil {
		t.Fatalf("NewProductHandlers: %v", err)
	}
	r := chi.NewRouter()
	r.Route("/products", h.Routes())
	return r
}

func TestListProductsForcesActiveOnly(t *testing.T) {
	var got services.ProductListFilter
	router := newProductRouter(t, &stubCatalogService{
		listFn: func(ctx context.Context, filter services.ProductListFilter) ([]domain.Product, error) {
			got = filter
			return []domain.Product{
				{ID: "prod-1", Title: "Ceramic Mug", Price: 1000, Stock: 4, IsActive: true},
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/products?category=kitchen&limit=20", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !got.ActiveOnly {
		t.Fatal("public listing must request active products only")
	}
	if got.Category != "kitchen" || got.Limit != 20 {
		t.Fatalf("filter = %+v", got)
	}

	var resp struct {
		Products []productPayload `json:"products"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Products) != 1 || resp.Products[0].Display != "Rs 10.00" {
		t.Fatalf("products = %+v", resp.Products)
	}
}

func TestListProductsRejectsBadLimit(t *testing.T) {
	router := newProductRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/products?limit=-3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGetProductNotFound(t *testing.T) {
	router := newProductRouter(t, &stubCatalogService{
		getFn: func(ctx context.Context, productID string) (domain.Product, error) {
			return domain.Product{}, services.ErrProductNotFound
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/products/prod-missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGetProductReturnsPayload(t *testing.T) {
	router := newProductRouter(t, &stubCatalogService{
		getFn: func(ctx context.Context, productID string) (domain.Product, error) {
			return domain.Product{
				ID:        productID,
				Title:     "Ceramic Mug",
				Price:     1850,
				Stock:     7,
				IsActive:  true,
				CreatedAt: fixedNow,
				UpdatedAt: fixedNow,
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/products/prod-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var payload productPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.ID != "prod-1" || payload.Display != "Rs 18.50" || payload.Stock != 7 {
		t.Fatalf("payload = %+v", payload)
	}
}
