package domain

import (
	"strings"
	"time"
)

// Product is a catalog entry. Stock is the source of truth for availability;
// IsActive is a cached projection (stock > 0) recomputed on every mutation,
// though an admin may independently switch a product off.
type Product struct {
	ID          string
	Title       string
	Description string
	ImageURL    string
	Category    string
	Brand       string
	Price       Money
	Stock       int
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Coupon is a percentage discount code. Redeemable iff active, unexpired and
// under its usage cap at the moment of check; UsedCount never exceeds MaxUses.
type Coupon struct {
	Code            string
	DiscountPercent int
	ExpiresAt       time.Time
	MaxUses         int
	UsedCount       int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Redeemable reports whether the coupon may still be applied at the given instant.
func (c Coupon) Redeemable(now time.Time) bool {
	return c.IsActive && now.Before(c.ExpiresAt) && c.UsedCount < c.MaxUses
}

// NormalizeCouponCode applies the canonical form used for storage and lookup.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CartLine references a live product; quantities are always >= 1.
type CartLine struct {
	ProductID string
	Quantity  int
}

// Cart is the per-user working set feeding checkout. It is ephemeral: the
// commit that creates an order clears it, along with any attached coupon code.
type Cart struct {
	UserID     string
	Email      string
	Lines      []CartLine
	CouponCode string
	UpdatedAt  time.Time
}

// OrderStatus enumerates the order lifecycle states.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// ValidOrderStatus reports whether s is one of the known lifecycle states.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// orderTransitions is the order lifecycle: Pending may ship or cancel,
// Shipped may deliver or cancel, Delivered and Cancelled are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered: nil,
	OrderStatusCancelled: nil,
}

// CanTransition reports whether the lifecycle allows moving from one status
// to another.
func CanTransition(from, to OrderStatus) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// OrderLine snapshots the product fields at commit time so later catalog edits
// cannot retroactively alter historical orders.
type OrderLine struct {
	ProductID   string
	Title       string
	Description string
	ImageURL    string
	UnitPrice   Money
	Quantity    int
}

// Total returns the displayed line total: quantity times the snapshotted unit price.
func (l OrderLine) Total() Money {
	return l.UnitPrice.Mul(l.Quantity)
}

// CouponSnapshot records the coupon applied to an order at commit time.
type CouponSnapshot struct {
	Code            string
	DiscountPercent int
}

// TrackingEvent is one entry of an order's append-only tracking history.
type TrackingEvent struct {
	Status OrderStatus
	At     time.Time
	Note   string
}

// Order is immutable after creation except for Status and TrackingHistory,
// which only the state machine mutates. TotalAmount is fixed at commit time
// and never recomputed from live product prices.
type Order struct {
	ID               string
	UserID           string
	Email            string
	Lines            []OrderLine
	Subtotal         Money
	TotalAmount      Money
	Coupon           *CouponSnapshot
	PaymentMethod    string
	PaymentSessionID string
	Status           OrderStatus
	TrackingHistory  []TrackingEvent
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LineSubtotal sums the displayed per-line totals. When a coupon was applied
// this legitimately exceeds TotalAmount by the discount amount.
func (o Order) LineSubtotal() Money {
	var sum Money
	for _, l := range o.Lines {
		sum += l.Total()
	}
	return sum
}
