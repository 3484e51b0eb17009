package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/myshop/api/internal/repositories"
)

const productIDPrefix = "prod_"

// ProductCatalogService manages the product catalogue backed by a repository.
type ProductCatalogService struct {
	products repositories.ProductRepository
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)
	idGen    func() string
}

// ProductCatalogServiceDeps enumerates the catalog service dependencies.
type ProductCatalogServiceDeps struct {
	Products    repositories.ProductRepository
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

// NewProductCatalogService constructs a ProductCatalogService.
func NewProductCatalogService(deps ProductCatalogServiceDeps) (*ProductCatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return productIDPrefix + ulid.Make().String() }
	}
	return &ProductCatalogService{
		products: deps.Products,
		clock:    func() time.Time { return clock().UTC() },
		logger:   logger,
		idGen:    idGen,
	}, nil
}

// CreateProduct validates and stores a new product. The active flag is a
// projection of stock availability at creation time.
func (s *ProductCatalogService) CreateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error) {
	product, err := s.normalizeProduct(cmd.Product)
	if err != nil {
		return Product{}, err
	}

	now := s.clock()
	product.ID = s.idGen()
	product.IsActive = product.Stock > 0
	product.CreatedAt = now
	product.UpdatedAt = now

	if err := s.products.Insert(ctx, product); err != nil {
		return Product{}, fmt.Errorf("catalog: create product: %w", err)
	}

	s.logger(ctx, "catalog.product_created", map[string]any{"productId": product.ID, "actorId": cmd.ActorID})
	return product, nil
}

// UpdateProduct validates and overwrites an existing product. A product whose
// stock ran out stays inactive regardless of the requested flag.
func (s *ProductCatalogService) UpdateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error) {
	if strings.TrimSpace(cmd.Product.ID) == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}
	product, err := s.normalizeProduct(cmd.Product)
	if err != nil {
		return Product{}, err
	}

	current, err := s.products.FindByID(ctx, product.ID)
	if err != nil {
		return Product{}, s.translate(err)
	}

	product.IsActive = cmd.Product.IsActive && product.Stock > 0
	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = s.clock()

	if err := s.products.Update(ctx, product); err != nil {
		return Product{}, s.translate(err)
	}

	s.logger(ctx, "catalog.product_updated", map[string]any{"productId": product.ID, "actorId": cmd.ActorID})
	return product, nil
}

// GetProduct loads one product by ID.
func (s *ProductCatalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	if strings.TrimSpace(productID) == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return Product{}, s.translate(err)
	}
	return product, nil
}

// ListProducts queries the catalogue.
func (s *ProductCatalogService) ListProducts(ctx context.Context, filter ProductListFilter) ([]Product, error) {
	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}
	return products, nil
}

// DepleteStock subtracts stock from a product, flooring at zero, and returns
// the remaining quantity.
func (s *ProductCatalogService) DepleteStock(ctx context.Context, cmd DepleteStockCommand) (int, error) {
	if strings.TrimSpace(cmd.ProductID) == "" {
		return 0, fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}
	if cmd.Quantity <= 0 {
		return 0, fmt.Errorf("%w: quantity must be positive", ErrProductInvalidInput)
	}

	remaining, err := s.products.DepleteStock(ctx, cmd.ProductID, cmd.Quantity)
	if err != nil {
		return 0, s.translate(err)
	}

	s.logger(ctx, "catalog.stock_depleted", map[string]any{
		"productId": cmd.ProductID,
		"quantity":  cmd.Quantity,
		"remaining": remaining,
		"actorId":   cmd.ActorID,
	})
	return remaining, nil
}

// DeleteProduct removes a product from the catalogue.
func (s *ProductCatalogService) DeleteProduct(ctx context.Context, productID string) error {
	if strings.TrimSpace(productID) == "" {
		return fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}
	if err := s.products.Delete(ctx, productID); err != nil {
		return s.translate(err)
	}
	return nil
}

func (s *ProductCatalogService) normalizeProduct(product Product) (Product, error) {
	product.Title = strings.TrimSpace(product.Title)
	product.Description = strings.TrimSpace(product.Description)
	product.ImageURL = strings.TrimSpace(product.ImageURL)
	product.Category = strings.TrimSpace(product.Category)
	product.Brand = strings.TrimSpace(product.Brand)

	if product.Title == "" {
		return Product{}, fmt.Errorf("%w: title is required", ErrProductInvalidInput)
	}
	if product.Price < 0 {
		return Product{}, fmt.Errorf("%w: price cannot be negative", ErrProductInvalidInput)
	}
	if product.Stock < 0 {
		return Product{}, fmt.Errorf("%w: stock cannot be negative", ErrProductInvalidInput)
	}
	return product, nil
}

func (s *ProductCatalogService) translate(err error) error {
	if repositories.IsNotFound(err) {
		return fmt.Errorf("%w: %v", ErrProductNotFound, err)
	}
	return fmt.Errorf("catalog: %w", err)
}

var _ CatalogService = (*ProductCatalogService)(nil)
