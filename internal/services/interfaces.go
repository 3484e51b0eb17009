package services

import (
	"context"
	"time"

	domain "github.com/myshop/api/internal/domain"
	"github.com/myshop/api/internal/payments"
	"github.com/myshop/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Money          = domain.Money
	Product        = domain.Product
	Coupon         = domain.Coupon
	Cart           = domain.Cart
	CartLine       = domain.CartLine
	Order          = domain.Order
	OrderLine      = domain.OrderLine
	OrderStatus    = domain.OrderStatus
	CouponSnapshot = domain.CouponSnapshot
	TrackingEvent  = domain.TrackingEvent
)

type (
	ProductListFilter = repositories.ProductListFilter
	OrderListFilter   = repositories.OrderListFilter
	StockAdjustment   = repositories.StockAdjustment
)

// CatalogService manages the product catalogue for public and admin surfaces.
type CatalogService interface {
	CreateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error)
	UpdateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	ListProducts(ctx context.Context, filter ProductListFilter) ([]Product, error)
	DepleteStock(ctx context.Context, cmd DepleteStockCommand) (int, error)
	DeleteProduct(ctx context.Context, productID string) error
}

// CartService manages the per-user cart feeding checkout.
type CartService interface {
	GetCart(ctx context.Context, userID string) (CartView, error)
	AddLine(ctx context.Context, cmd AddCartLineCommand) (CartView, error)
	RemoveLine(ctx context.Context, cmd RemoveCartLineCommand) (CartView, error)
	ApplyCoupon(ctx context.Context, cmd ApplyCouponCommand) (CartView, error)
	RemoveCoupon(ctx context.Context, userID string) (CartView, error)
	Clear(ctx context.Context, userID string) error
}

// CouponService exposes coupon lifecycle and redemption operations.
type CouponService interface {
	CreateCoupon(ctx context.Context, cmd UpsertCouponCommand) (Coupon, error)
	ListCoupons(ctx context.Context) ([]Coupon, error)
	ValidateCoupon(ctx context.Context, code string) (Coupon, error)
	RedeemCoupon(ctx context.Context, code string) (repositories.CouponRedemption, error)
	DeleteCoupon(ctx context.Context, code string) error
}

// CheckoutService coordinates PSP session creation and the atomic order commit.
type CheckoutService interface {
	CreateSession(ctx context.Context, cmd CreateCheckoutSessionCommand) (payments.CheckoutSession, error)
	CommitOrder(ctx context.Context, cmd CommitOrderCommand) (CommitOrderResult, error)
}

// OrderService encapsulates order reads and lifecycle transitions.
type OrderService interface {
	GetOrder(ctx context.Context, cmd OrderAccessCommand) (Order, error)
	ListOrders(ctx context.Context, userID string, limit int) ([]Order, error)
	ListAllOrders(ctx context.Context, filter OrderListFilter) ([]Order, error)
	Advance(ctx context.Context, cmd AdvanceOrderCommand) (Order, error)
}

// InvoiceService renders order invoices and persists copies to object storage.
type InvoiceService interface {
	Render(ctx context.Context, cmd RenderInvoiceCommand) (InvoiceDocument, error)
}

// OrderEventPublisher accepts order lifecycle notifications for downstream processing.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error)
}

// Order event types published on the order lifecycle topic.
const (
	OrderEventCreated         = "order.created"
	OrderEventStatusChanged   = "order.status.changed"
	OrderEventInvoiceRendered = "order.invoice.rendered"
)

// OrderEventMessage is the payload published for order lifecycle events.
type OrderEventMessage struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"orderId"`
	UserID     string    `json:"userId"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Command and DTO definitions ------------------------------------------------

type UpsertProductCommand struct {
	Product Product
	ActorID string
}

type DepleteStockCommand struct {
	ProductID string
	Quantity  int
	ActorID   string
}

type AddCartLineCommand struct {
	UserID    string
	Email     string
	ProductID string
	Quantity  int
}

type RemoveCartLineCommand struct {
	UserID    string
	ProductID string
}

type ApplyCouponCommand struct {
	UserID string
	Code   string
}

type UpsertCouponCommand struct {
	Coupon  Coupon
	ActorID string
}

type CreateCheckoutSessionCommand struct {
	UserID     string
	Email      string
	SuccessURL string
	CancelURL  string
}

type CommitOrderCommand struct {
	UserID           string
	Email            string
	PaymentSessionID string
	PaymentMethod    string
}

// CommitOrderResult reports the committed order along with commit-time facts.
type CommitOrderResult struct {
	Order            Order
	Replayed         bool
	CouponApplied    bool
	StockAdjustments []StockAdjustment
}

type OrderAccessCommand struct {
	OrderID     string
	RequesterID string
	Admin       bool
}

type AdvanceOrderCommand struct {
	OrderID string
	Target  OrderStatus
	Note    string
	ActorID string
	Force   bool
}

type RenderInvoiceCommand struct {
	OrderID     string
	RequesterID string
	Admin       bool
}

// InvoiceDocument carries the rendered invoice back to the transport layer.
type InvoiceDocument struct {
	OrderID     string
	FileName    string
	ContentType string
	Data        []byte
}

// CartLineView pairs a cart line with the live product it references.
type CartLineView struct {
	Product   Product
	Quantity  int
	LineTotal Money
}

// CartView is the enriched cart presented to clients: live products, live
// prices and the current pricing quote.
type CartView struct {
	UserID        string
	Email         string
	Lines         []CartLineView
	CouponCode    string
	CouponApplied bool
	Subtotal      Money
	Discount      Money
	Total         Money
	UpdatedAt     time.Time
}
