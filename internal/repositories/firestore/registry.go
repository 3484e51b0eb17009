package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/myshop/api/internal/platform/firestore"
	"github.com/myshop/api/internal/repositories"
)

// Registry wires the Firestore-backed repositories behind the repositories.Registry contract.
type Registry struct {
	products *ProductRepository
	coupons  *CouponRepository
	carts    *CartRepository
	orders   *OrderRepository
	checkout *CheckoutRepository
	health   repositories.HealthRepository
}

// NewRegistry constructs all Firestore repositories over a shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, err
	}
	coupons, err := NewCouponRepository(provider)
	if err != nil {
		return nil, err
	}
	carts, err := NewCartRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	checkout, err := NewCheckoutRepository(provider)
	if err != nil {
		return nil, err
	}

	health := repositories.NewDependencyHealthRepository(repositories.DependencyCheck{
		Name: "firestore",
		Check: func(ctx context.Context) error {
			_, err := provider.Client(ctx)
			return err
		},
	})

	return &Registry{
		products: products,
		coupons:  coupons,
		carts:    carts,
		orders:   orders,
		checkout: checkout,
		health:   health,
	}, nil
}

// Products returns the product repository.
func (r *Registry) Products() repositories.ProductRepository { return r.products }

// Coupons returns the coupon repository.
func (r *Registry) Coupons() repositories.CouponRepository { return r.coupons }

// Carts returns the cart repository.
func (r *Registry) Carts() repositories.CartRepository { return r.carts }

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// Checkout returns the checkout commit repository.
func (r *Registry) Checkout() repositories.CheckoutRepository { return r.checkout }

// Health returns the readiness probe repository.
func (r *Registry) Health() repositories.HealthRepository { return r.health }

var _ repositories.Registry = (*Registry)(nil)
