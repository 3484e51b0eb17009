package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/myshop/api/internal/domain"
	"github.com/myshop/api/internal/payments"
	"github.com/myshop/api/internal/repositories"
)

const orderIDPrefix = "ord_"

// StorefrontCheckoutService coordinates PSP checkout sessions and the atomic
// order commit. Payment settles before the commit runs; the commit itself is
// delegated to the checkout repository so that stock depletion, coupon
// redemption, order creation and cart clearing succeed or fail together.
type StorefrontCheckoutService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
	coupons  repositories.CouponRepository
	checkout repositories.CheckoutRepository
	provider payments.Provider
	events   OrderEventPublisher
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)
	idGen    func() string
	currency string
}

// StorefrontCheckoutServiceDeps enumerates the checkout service dependencies.
type StorefrontCheckoutServiceDeps struct {
	Carts       repositories.CartRepository
	Products    repositories.ProductRepository
	Coupons     repositories.CouponRepository
	Checkout    repositories.CheckoutRepository
	Provider    payments.Provider
	Events      OrderEventPublisher
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
	Currency    string
}

// NewStorefrontCheckoutService constructs a StorefrontCheckoutService.
func NewStorefrontCheckoutService(deps StorefrontCheckoutServiceDeps) (*StorefrontCheckoutService, error) {
	if deps.Carts == nil {
		return nil, errors.New("checkout service: cart repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("checkout service: product repository is required")
	}
	if deps.Coupons == nil {
		return nil, errors.New("checkout service: coupon repository is required")
	}
	if deps.Checkout == nil {
		return nil, errors.New("checkout service: checkout repository is required")
	}
	if deps.Provider == nil {
		return nil, errors.New("checkout service: payment provider is required")
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
		idGen = func() string { return orderIDPrefix + ulid.Make().String() }
	}
	currency := strings.ToLower(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "pkr"
	}
	return &StorefrontCheckoutService{
		carts:    deps.Carts,
		products: deps.Products,
		coupons:  deps.Coupons,
		checkout: deps.Checkout,
		provider: deps.Provider,
		events:   deps.Events,
		clock:    func() time.Time { return clock().UTC() },
		logger:   logger,
		idGen:    idGen,
		currency: currency,
	}, nil
}

// CreateSession prices the current cart and opens a PSP checkout session for it.
func (s *StorefrontCheckoutService) CreateSession(ctx context.Context, cmd CreateCheckoutSessionCommand) (payments.CheckoutSession, error) {
	if strings.TrimSpace(cmd.UserID) == "" {
		return payments.CheckoutSession{}, fmt.Errorf("%w: user id is required", ErrCheckoutInvalidInput)
	}

	cart, quote, _, err := s.pricedCart(ctx, cmd.UserID)
	if err != nil {
		return payments.CheckoutSession{}, err
	}

	email := strings.TrimSpace(cmd.Email)
	if email == "" {
		email = cart.Email
	}

	items := make([]payments.CheckoutLineItem, 0, len(quote.Lines))
	for _, line := range quote.Lines {
		items = append(items, payments.CheckoutLineItem{
			Name:        line.Title,
			Description: line.Description,
			SKU:         line.ProductID,
			Quantity:    int64(line.Quantity),
			Amount:      int64(line.UnitPrice),
			Currency:    s.currency,
		})
	}

	session, err := s.provider.CreateCheckoutSession(ctx, payments.CheckoutSessionRequest{
		Amount:        int64(quote.Total),
		Currency:      s.currency,
		CustomerEmail: email,
		SuccessURL:    cmd.SuccessURL,
		CancelURL:     cmd.CancelURL,
		Metadata:      map[string]string{"userId": cmd.UserID},
		Items:         items,
	})
	if err != nil {
		return payments.CheckoutSession{}, fmt.Errorf("checkout: create session: %w", err)
	}

	s.logger(ctx, "checkout.session_created", map[string]any{
		"userId":    cmd.UserID,
		"sessionId": session.ID,
		"amount":    int64(quote.Total),
	})
	return session, nil
}

// CommitOrder turns the user's cart into an order once the payment session
// has settled. The commit is idempotent per payment session: a replayed
// request returns the already committed order unchanged.
func (s *StorefrontCheckoutService) CommitOrder(ctx context.Context, cmd CommitOrderCommand) (CommitOrderResult, error) {
	if strings.TrimSpace(cmd.UserID) == "" {
		return CommitOrderResult{}, fmt.Errorf("%w: user id is required", ErrCheckoutInvalidInput)
	}
	sessionID := strings.TrimSpace(cmd.PaymentSessionID)
	if sessionID == "" {
		return CommitOrderResult{}, fmt.Errorf("%w: payment session id is required", ErrCheckoutInvalidInput)
	}

	// Payment settles first. No side effects happen before this clears.
	session, err := s.provider.LookupSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payments.ErrSessionNotFound) {
			return CommitOrderResult{}, fmt.Errorf("%w: session %s not found", ErrCheckoutPaymentRequired, sessionID)
		}
		return CommitOrderResult{}, fmt.Errorf("checkout: verify payment: %w", err)
	}
	if session.Status != payments.StatusSucceeded {
		return CommitOrderResult{}, fmt.Errorf("%w: session %s is %s", ErrCheckoutPaymentRequired, sessionID, session.Status)
	}

	cart, quote, coupon, err := s.pricedCart(ctx, cmd.UserID)
	if err != nil {
		return CommitOrderResult{}, err
	}

	now := s.clock()
	email := strings.TrimSpace(cmd.Email)
	if email == "" {
		email = cart.Email
	}
	if email == "" {
		email = session.Email
	}
	method := strings.TrimSpace(cmd.PaymentMethod)
	if method == "" {
		method = "card"
	}

	order := domain.Order{
		ID:               s.idGen(),
		UserID:           cmd.UserID,
		Email:            email,
		Lines:            quote.Lines,
		Subtotal:         quote.Subtotal,
		TotalAmount:      quote.Total,
		PaymentMethod:    method,
		PaymentSessionID: sessionID,
		Status:           domain.OrderStatusPending,
		TrackingHistory: []domain.TrackingEvent{
			{Status: domain.OrderStatusPending, At: now, Note: "Order placed"},
		},
	}
	if coupon != nil {
		order.Coupon = &domain.CouponSnapshot{Code: coupon.Code, DiscountPercent: coupon.DiscountPercent}
	}

	committed, err := s.checkout.Commit(ctx, repositories.CheckoutCommitRequest{
		Order:      order,
		CouponCode: cart.CouponCode,
		Now:        now,
	})
	if err != nil {
		return CommitOrderResult{}, s.translateCommitError(ctx, err, order)
	}

	if committed.Replayed {
		s.logger(ctx, "checkout.commit_replayed", map[string]any{
			"userId":    cmd.UserID,
			"orderId":   committed.Order.ID,
			"sessionId": sessionID,
		})
		return commitResult(committed), nil
	}

	s.logger(ctx, "checkout.order_committed", map[string]any{
		"userId":        cmd.UserID,
		"orderId":       committed.Order.ID,
		"sessionId":     sessionID,
		"total":         int64(committed.Order.TotalAmount),
		"couponApplied": committed.CouponApplied,
	})
	if cart.CouponCode != "" && !committed.CouponApplied {
		s.logger(ctx, "checkout.coupon_degraded", map[string]any{
			"orderId": committed.Order.ID,
			"code":    cart.CouponCode,
		})
	}
	s.publish(ctx, OrderEventMessage{
		Type:       OrderEventCreated,
		OrderID:    committed.Order.ID,
		UserID:     committed.Order.UserID,
		Status:     string(committed.Order.Status),
		OccurredAt: now,
	})

	return commitResult(committed), nil
}

// pricedCart loads the cart, resolves live products dropping unavailable
// lines, and prices the remainder using the attached coupon when it is still
// redeemable. The returned coupon is nil when no discount applies up front.
func (s *StorefrontCheckoutService) pricedCart(ctx context.Context, userID string) (domain.Cart, PriceQuote, *domain.Coupon, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Cart{}, PriceQuote{}, nil, ErrCheckoutEmptyCart
		}
		return domain.Cart{}, PriceQuote{}, nil, fmt.Errorf("checkout: load cart: %w", err)
	}
	if len(cart.Lines) == 0 {
		return domain.Cart{}, PriceQuote{}, nil, ErrCheckoutEmptyCart
	}

	priced := make([]PricedLine, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		product, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			if repositories.IsNotFound(err) {
				s.logger(ctx, "checkout.line_dropped", map[string]any{"userId": userID, "productId": line.ProductID, "reason": "missing"})
				continue
			}
			return domain.Cart{}, PriceQuote{}, nil, fmt.Errorf("checkout: load product: %w", err)
		}
		if !product.IsActive {
			s.logger(ctx, "checkout.line_dropped", map[string]any{"userId": userID, "productId": line.ProductID, "reason": "inactive"})
			continue
		}
		priced = append(priced, PricedLine{Product: product, Quantity: line.Quantity})
	}
	if len(priced) == 0 {
		return domain.Cart{}, PriceQuote{}, nil, ErrCheckoutEmptyCart
	}

	var coupon *domain.Coupon
	percent := 0
	if cart.CouponCode != "" {
		found, err := s.coupons.FindByCode(ctx, cart.CouponCode)
		switch {
		case err == nil && found.Redeemable(s.clock()):
			coupon = &found
			percent = found.DiscountPercent
		case err != nil && !repositories.IsNotFound(err):
			return domain.Cart{}, PriceQuote{}, nil, fmt.Errorf("checkout: load coupon: %w", err)
		default:
			// Fail open: price without the discount instead of blocking
			// checkout on a coupon that is no longer redeemable.
			s.logger(ctx, "checkout.coupon_skipped", map[string]any{"userId": userID, "code": cart.CouponCode})
		}
	}

	quote, err := Price(priced, percent)
	if err != nil {
		return domain.Cart{}, PriceQuote{}, nil, err
	}
	return cart, quote, coupon, nil
}

// translateCommitError classifies commit failures. An outcome the caller
// cannot know (deadline or cancellation while the transaction may have
// applied) surfaces as ErrCheckoutReconcile with full entity context logged.
func (s *StorefrontCheckoutService) translateCommitError(ctx context.Context, err error, order domain.Order) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), repositories.IsUnavailable(err):
		s.logger(ctx, "checkout.reconcile_required", map[string]any{
			"orderId":   order.ID,
			"userId":    order.UserID,
			"sessionId": order.PaymentSessionID,
			"total":     int64(order.TotalAmount),
			"error":     err.Error(),
		})
		return fmt.Errorf("%w: order %s: %v", ErrCheckoutReconcile, order.ID, err)
	case repositories.IsConflict(err):
		return fmt.Errorf("%w: %v", ErrCheckoutConflict, err)
	}
	return fmt.Errorf("checkout: commit: %w", err)
}

func (s *StorefrontCheckoutService) publish(ctx context.Context, message OrderEventMessage) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, message); err != nil {
		s.logger(ctx, "checkout.event_publish_failed", map[string]any{
			"eventType": message.Type,
			"orderId":   message.OrderID,
			"error":     err.Error(),
		})
	}
}

func commitResult(committed repositories.CheckoutCommitResult) CommitOrderResult {
	return CommitOrderResult{
		Order:            committed.Order,
		Replayed:         committed.Replayed,
		CouponApplied:    committed.CouponApplied,
		StockAdjustments: committed.StockAdjustments,
	}
}

var _ CheckoutService = (*StorefrontCheckoutService)(nil)
