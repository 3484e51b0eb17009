package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/myshop/api/internal/domain"
	"github.com/myshop/api/internal/repositories"
)

// UserCartService manages the single cart each user owns. Cart lines store
// only product references; views are enriched with live catalogue data, and
// lines whose product vanished or went inactive are pruned on read.
type UserCartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
	coupons  repositories.CouponRepository
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// UserCartServiceDeps enumerates the cart service dependencies.
type UserCartServiceDeps struct {
	Carts    repositories.CartRepository
	Products repositories.ProductRepository
	Coupons  repositories.CouponRepository
	Clock    func() time.Time
	Logger   func(context.Context, string, map[string]any)
}

// NewUserCartService constructs a UserCartService.
func NewUserCartService(deps UserCartServiceDeps) (*UserCartService, error) {
	if deps.Carts == nil {
		return nil, errors.New("cart service: cart repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("cart service: product repository is required")
	}
	if deps.Coupons == nil {
		return nil, errors.New("cart service: coupon repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &UserCartService{
		carts:    deps.Carts,
		products: deps.Products,
		coupons:  deps.Coupons,
		clock:    func() time.Time { return clock().UTC() },
		logger:   logger,
	}, nil
}

// GetCart loads the user's cart enriched with live product data. A user
// without a stored cart gets an empty one.
func (s *UserCartService) GetCart(ctx context.Context, userID string) (CartView, error) {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return CartView{}, err
	}
	return s.buildView(ctx, cart)
}

// AddLine adds quantity of a product to the cart, creating the line when absent.
func (s *UserCartService) AddLine(ctx context.Context, cmd AddCartLineCommand) (CartView, error) {
	if strings.TrimSpace(cmd.UserID) == "" {
		return CartView{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	if strings.TrimSpace(cmd.ProductID) == "" {
		return CartView{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	if cmd.Quantity <= 0 {
		return CartView{}, fmt.Errorf("%w: quantity must be positive", ErrCartInvalidInput)
	}

	product, err := s.products.FindByID(ctx, cmd.ProductID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return CartView{}, fmt.Errorf("%w: product %s", ErrCartProductUnavailable, cmd.ProductID)
		}
		return CartView{}, fmt.Errorf("cart: load product: %w", err)
	}
	if !product.IsActive {
		return CartView{}, fmt.Errorf("%w: product %s is inactive", ErrCartProductUnavailable, cmd.ProductID)
	}

	cart, err := s.loadCart(ctx, cmd.UserID)
	if err != nil {
		return CartView{}, err
	}
	if email := strings.TrimSpace(cmd.Email); email != "" {
		cart.Email = email
	}

	found := false
	for i := range cart.Lines {
		if cart.Lines[i].ProductID == cmd.ProductID {
			cart.Lines[i].Quantity += cmd.Quantity
			found = true
			break
		}
	}
	if !found {
		cart.Lines = append(cart.Lines, domain.CartLine{ProductID: cmd.ProductID, Quantity: cmd.Quantity})
	}

	return s.saveAndView(ctx, cart)
}

// RemoveLine drops the product's line from the cart entirely.
func (s *UserCartService) RemoveLine(ctx context.Context, cmd RemoveCartLineCommand) (CartView, error) {
	if strings.TrimSpace(cmd.UserID) == "" {
		return CartView{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	if strings.TrimSpace(cmd.ProductID) == "" {
		return CartView{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}

	cart, err := s.loadCart(ctx, cmd.UserID)
	if err != nil {
		return CartView{}, err
	}

	lines := cart.Lines[:0]
	for _, line := range cart.Lines {
		if line.ProductID != cmd.ProductID {
			lines = append(lines, line)
		}
	}
	cart.Lines = lines

	return s.saveAndView(ctx, cart)
}

// ApplyCoupon attaches a coupon code to the cart after checking that the
// coupon is redeemable right now. The final arbitration happens again at
// commit time.
func (s *UserCartService) ApplyCoupon(ctx context.Context, cmd ApplyCouponCommand) (CartView, error) {
	if strings.TrimSpace(cmd.UserID) == "" {
		return CartView{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	code := domain.NormalizeCouponCode(cmd.Code)
	if code == "" {
		return CartView{}, fmt.Errorf("%w: coupon code is required", ErrCartInvalidInput)
	}

	coupon, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		if repositories.IsNotFound(err) {
			return CartView{}, fmt.Errorf("%w: %s", ErrCouponNotFound, code)
		}
		return CartView{}, fmt.Errorf("cart: load coupon: %w", err)
	}
	if !coupon.Redeemable(s.clock()) {
		return CartView{}, fmt.Errorf("%w: %s", ErrCouponNotRedeemable, code)
	}

	cart, err := s.loadCart(ctx, cmd.UserID)
	if err != nil {
		return CartView{}, err
	}
	cart.CouponCode = code

	return s.saveAndView(ctx, cart)
}

// RemoveCoupon detaches any coupon code from the cart.
func (s *UserCartService) RemoveCoupon(ctx context.Context, userID string) (CartView, error) {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return CartView{}, err
	}
	cart.CouponCode = ""
	return s.saveAndView(ctx, cart)
}

// Clear deletes the user's cart.
func (s *UserCartService) Clear(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	if err := s.carts.Clear(ctx, userID); err != nil && !repositories.IsNotFound(err) {
		return fmt.Errorf("cart: clear: %w", err)
	}
	return nil
}

func (s *UserCartService) loadCart(ctx context.Context, userID string) (domain.Cart, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Cart{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Cart{UserID: userID}, nil
		}
		return domain.Cart{}, fmt.Errorf("cart: load: %w", err)
	}
	return cart, nil
}

func (s *UserCartService) saveAndView(ctx context.Context, cart domain.Cart) (CartView, error) {
	cart.UpdatedAt = s.clock()
	saved, err := s.carts.Save(ctx, cart)
	if err != nil {
		return CartView{}, fmt.Errorf("cart: save: %w", err)
	}
	return s.buildView(ctx, saved)
}

// buildView enriches cart lines with live products and prices the result.
// Lines referencing missing or inactive products are dropped from the view.
func (s *UserCartService) buildView(ctx context.Context, cart domain.Cart) (CartView, error) {
	view := CartView{
		UserID:     cart.UserID,
		Email:      cart.Email,
		CouponCode: cart.CouponCode,
		UpdatedAt:  cart.UpdatedAt,
	}

	priced := make([]PricedLine, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		product, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			if repositories.IsNotFound(err) {
				s.logger(ctx, "cart.line_dropped", map[string]any{"userId": cart.UserID, "productId": line.ProductID, "reason": "missing"})
				continue
			}
			return CartView{}, fmt.Errorf("cart: load product: %w", err)
		}
		if !product.IsActive {
			s.logger(ctx, "cart.line_dropped", map[string]any{"userId": cart.UserID, "productId": line.ProductID, "reason": "inactive"})
			continue
		}
		priced = append(priced, PricedLine{Product: product, Quantity: line.Quantity})
		view.Lines = append(view.Lines, CartLineView{
			Product:   product,
			Quantity:  line.Quantity,
			LineTotal: product.Price.Mul(line.Quantity),
		})
	}

	if len(priced) == 0 {
		return view, nil
	}

	percent := 0
	if cart.CouponCode != "" {
		coupon, err := s.coupons.FindByCode(ctx, cart.CouponCode)
		switch {
		case err == nil && coupon.Redeemable(s.clock()):
			percent = coupon.DiscountPercent
			view.CouponApplied = true
		case err != nil && !repositories.IsNotFound(err):
			return CartView{}, fmt.Errorf("cart: load coupon: %w", err)
		}
	}

	quote, err := Price(priced, percent)
	if err != nil {
		return CartView{}, err
	}
	view.Subtotal = quote.Subtotal
	view.Discount = quote.Discount
	view.Total = quote.Total
	return view, nil
}

var _ CartService = (*UserCartService)(nil)
