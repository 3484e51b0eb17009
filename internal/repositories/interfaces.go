package repositories

import (
	"context"
	"time"

	domain "github.com/myshop/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// Registry exposes typed repository accessors for dependency injection.
type Registry interface {
	Products() ProductRepository
	Coupons() CouponRepository
	Carts() CartRepository
	Orders() OrderRepository
	Checkout() CheckoutRepository
	Health() HealthRepository
}

// ProductListFilter narrows product listings.
type ProductListFilter struct {
	Category   string
	Brand      string
	ActiveOnly bool
	Limit      int
}

// ProductRepository persists catalogue products.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	FindByIDs(ctx context.Context, productIDs []string) ([]domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) ([]domain.Product, error)
	DepleteStock(ctx context.Context, productID string, quantity int) (int, error)
	Delete(ctx context.Context, productID string) error
}

// CouponRedemption reports the outcome of a redemption attempt.
type CouponRedemption struct {
	Applied         bool
	DiscountPercent int
}

// CouponRepository persists discount coupons keyed by normalised code.
type CouponRepository interface {
	Upsert(ctx context.Context, coupon domain.Coupon) error
	FindByCode(ctx context.Context, code string) (domain.Coupon, error)
	List(ctx context.Context) ([]domain.Coupon, error)
	TryRedeem(ctx context.Context, code string, now time.Time) (CouponRedemption, error)
	Delete(ctx context.Context, code string) error
}

// CartRepository persists one cart per user.
type CartRepository interface {
	Get(ctx context.Context, userID string) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// OrderListFilter narrows admin order listings.
type OrderListFilter struct {
	Status domain.OrderStatus
	UserID string
	Limit  int
}

// OrderStatusUpdate captures a status transition to persist. The repository
// re-checks domain.CanTransition against the status it reads inside its
// transaction and rejects the update as a conflict when the transition is no
// longer legal, unless Force is set.
type OrderStatusUpdate struct {
	Status   domain.OrderStatus
	Tracking domain.TrackingEvent
	At       time.Time
	Force    bool
}

// OrderRepository persists committed orders. Insertion happens exclusively
// through CheckoutRepository.Commit.
type OrderRepository interface {
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, update OrderStatusUpdate) (domain.Order, error)
}

// StockAdjustment reports the depletion applied to one product during commit.
type StockAdjustment struct {
	ProductID string
	Requested int
	Depleted  int
}

// CheckoutCommitRequest carries the fully priced order into the atomic commit.
type CheckoutCommitRequest struct {
	Order      domain.Order
	CouponCode string
	Now        time.Time
}

// CheckoutCommitResult reports the outcome of an atomic order commit.
type CheckoutCommitResult struct {
	Order            domain.Order
	Replayed         bool
	CouponApplied    bool
	StockAdjustments []StockAdjustment
}

// CheckoutRepository executes the atomic order commit: order insertion, stock
// depletion, coupon redemption, and cart clearing succeed or fail together.
type CheckoutRepository interface {
	Commit(ctx context.Context, req CheckoutCommitRequest) (CheckoutCommitResult, error)
}

// HealthStatus reports the outcome of a readiness probe.
type HealthStatus struct {
	Healthy bool
	Details map[string]string
	At      time.Time
}

// HealthRepository probes backing dependencies for readiness checks.
type HealthRepository interface {
	Check(ctx context.Context) HealthStatus
}
