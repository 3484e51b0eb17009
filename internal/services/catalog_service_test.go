package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domain "github.com/myshop/api/internal/domain"
)

func newCatalogService(t *testing.T, deps ProductCatalogServiceDeps) *ProductCatalogService {
	t.Helper()
	service, err := NewProductCatalogService(deps)
	if err != nil {
		t.Fatalf("NewProductCatalogService: %v", err)
	}
	return service
}

func TestCreateProductAssignsIDAndProjection(t *testing.T) {
	now := time.Date(2024, 6, 5, 10, 0, 0, 0, time.UTC)

	var inserted domain.Product
	products := &stubProductRepository{
		insertFunc: func(ctx context.Context, p domain.Product) error {
			inserted = p
			return nil
		},
	}
	service := newCatalogService(t, ProductCatalogServiceDeps{
		Products:    products,
		Clock:       func() time.Time { return now },
		IDGenerator: func() string { return "prod_TEST1" },
	})

	created, err := service.CreateProduct(context.Background(), UpsertProductCommand{
		Product: domain.Product{Title: "  Fountain Pen ", Price: 2500, Stock: 3},
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if created.ID != "prod_TEST1" || inserted.ID != "prod_TEST1" {
		t.Errorf("id = %q / inserted %q", created.ID, inserted.ID)
	}
	if created.Title != "Fountain Pen" {
		t.Errorf("title = %q, want trimmed", created.Title)
	}
	if !created.IsActive {
		t.Error("product with stock must be active")
	}
	if !created.CreatedAt.Equal(now) || !created.UpdatedAt.Equal(now) {
		t.Errorf("timestamps = %v/%v, want %v", created.CreatedAt, created.UpdatedAt, now)
	}
}

func TestCreateProductZeroStockInactive(t *testing.T) {
	service := newCatalogService(t, ProductCatalogServiceDeps{Products: &stubProductRepository{}})

	created, err := service.CreateProduct(context.Background(), UpsertProductCommand{
		Product: domain.Product{Title: "Sold Out", Price: 100, Stock: 0},
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if created.IsActive {
		t.Error("product without stock must start inactive")
	}
}

func TestCreateProductRejectsBadInput(t *testing.T) {
	service := newCatalogService(t, ProductCatalogServiceDeps{Products: &stubProductRepository{}})
	ctx := context.Background()

	cases := []domain.Product{
		{Title: "", Price: 100, Stock: 1},
		{Title: "X", Price: -1, Stock: 1},
		{Title: "X", Price: 100, Stock: -1},
	}
	for i, p := range cases {
		if _, err := service.CreateProduct(ctx, UpsertProductCommand{Product: p}); !errors.Is(err, ErrProductInvalidInput) {
			t.Errorf("case %d: err = %v, want ErrProductInvalidInput", i, err)
		}
	}
}

func TestUpdateProductKeepsCreatedAt(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 6, 5, 10, 0, 0, 0, time.UTC)

	products := &stubProductRepository{
		findFunc: func(ctx context.Context, id string) (domain.Product, error) {
			return domain.Product{ID: id, Title: "Old", Price: 100, Stock: 1, IsActive: true, CreatedAt: created}, nil
		},
	}
	service := newCatalogService(t, ProductCatalogServiceDeps{
		Products: products,
		Clock:    func() time.Time { return now },
	})

	updated, err := service.UpdateProduct(context.Background(), UpsertProductCommand{
		Product: domain.Product{ID: "prod-1", Title: "New", Price: 200, Stock: 2, IsActive: true},
	})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if !updated.CreatedAt.Equal(created) {
		t.Errorf("createdAt = %v, want preserved %v", updated.CreatedAt, created)
	}
	if !updated.UpdatedAt.Equal(now) {
		t.Errorf("updatedAt = %v, want %v", updated.UpdatedAt, now)
	}
}

func TestUpdateProductNotFound(t *testing.T) {
	service := newCatalogService(t, ProductCatalogServiceDeps{Products: &stubProductRepository{}})

	_, err := service.UpdateProduct(context.Background(), UpsertProductCommand{
		Product: domain.Product{ID: "prod-missing", Title: "X", Price: 1, Stock: 1},
	})
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("err = %v, want ErrProductNotFound", err)
	}
}

// TestDepleteStockConcurrentNeverNegative hammers depletion through a
// compare-and-swap repository and asserts stock floors at zero.
func TestDepleteStockConcurrentNeverNegative(t *testing.T) {
	var mu sync.Mutex
	stock := 10

	products := &stubProductRepository{
		depleteFunc: func(ctx context.Context, id string, qty int) (int, error) {
			mu.Lock()
			defer mu.Unlock()
			depleted := qty
			if stock < depleted {
				depleted = stock
			}
			stock -= depleted
			return stock, nil
		},
	}
	service := newCatalogService(t, ProductCatalogServiceDeps{Products: products})

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			remaining, err := service.DepleteStock(context.Background(), DepleteStockCommand{ProductID: "prod-1", Quantity: 3})
			if err != nil {
				t.Errorf("DepleteStock: %v", err)
				return
			}
			if remaining < 0 {
				t.Errorf("remaining stock went negative: %d", remaining)
			}
		}()
	}
	wg.Wait()

	if stock != 0 {
		t.Errorf("final stock = %d, want 0", stock)
	}
}

// Ordering five units against a stock of two floors at zero without error.
func TestDepleteStockOversellFloorsAtZero(t *testing.T) {
	products := &stubProductRepository{
		depleteFunc: func(ctx context.Context, id string, qty int) (int, error) {
			stock := 2
			depleted := qty
			if stock < depleted {
				depleted = stock
			}
			return stock - depleted, nil
		},
	}
	service := newCatalogService(t, ProductCatalogServiceDeps{Products: products})

	remaining, err := service.DepleteStock(context.Background(), DepleteStockCommand{ProductID: "prod-1", Quantity: 5})
	if err != nil {
		t.Fatalf("DepleteStock: %v", err)
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}
}
