package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/myshop/api/internal/domain"
	pfirestore "github.com/myshop/api/internal/platform/firestore"
	"github.com/myshop/api/internal/repositories"
)

// ProductRepository persists catalogue products within Firestore.
type ProductRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		provider: provider,
		base:     pfirestore.NewBaseRepository[productDocument](provider, productCollection, nil, nil),
	}, nil
}

// Insert creates a product document, failing on duplicate IDs.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	_, err := r.base.Create(ctx, product.ID, productToDocument(product))
	return err
}

// Update overwrites an existing product document.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) error {
	_, err := r.base.Set(ctx, product.ID, productToDocument(product))
	return err
}

// FindByID loads a single product.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return productFromDocument(doc.ID, doc.Data), nil
}

// FindByIDs loads the given products, erroring when any ID is missing.
func (r *ProductRepository) FindByIDs(ctx context.Context, productIDs []string) ([]domain.Product, error) {
	products := make([]domain.Product, 0, len(productIDs))
	for _, id := range productIDs {
		product, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, nil
}

// List queries the catalogue with optional filters, ordered by title.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		if filter.ActiveOnly {
			query = query.Where("isActive", "==", true)
		}
		if category := strings.TrimSpace(filter.Category); category != "" {
			query = query.Where("category", "==", category)
		}
		if brand := strings.TrimSpace(filter.Brand); brand != "" {
			query = query.Where("brand", "==", brand)
		}
		query = query.OrderBy("title", firestore.Asc)
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		return query
	})
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, productFromDocument(doc.ID, doc.Data))
	}
	return products, nil
}

// DepleteStock subtracts quantity from the product stock in a transaction,
// flooring at zero and recomputing the isActive projection. It returns the
// remaining stock.
func (r *ProductRepository) DepleteStock(ctx context.Context, productID string, quantity int) (int, error) {
	if strings.TrimSpace(productID) == "" {
		return 0, errors.New("product repository: product id is required")
	}
	if quantity <= 0 {
		return 0, errors.New("product repository: quantity must be positive")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return 0, err
	}

	remaining := 0
	err = pfirestore.RunTransaction(ctx, client, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := client.Collection(productCollection).Doc(productID)
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return err
		}

		depleted := quantity
		if doc.Stock < depleted {
			depleted = doc.Stock
		}
		doc.Stock -= depleted
		doc.IsActive = doc.Stock > 0
		doc.UpdatedAt = time.Now().UTC()
		remaining = doc.Stock

		return tx.Set(ref, doc)
	})
	if err != nil {
		return 0, pfirestore.WrapError("product stock depletion", err)
	}
	return remaining, nil
}

// Delete removes a product from the catalogue.
func (r *ProductRepository) Delete(ctx context.Context, productID string) error {
	return r.base.Delete(ctx, productID)
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)
