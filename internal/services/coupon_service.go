package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/myshop/api/internal/domain"
	"github.com/myshop/api/internal/repositories"
)

// defaultCouponMaxUses applies when a coupon is created without an
// explicit redemption cap.
const defaultCouponMaxUses = 100

// DiscountCouponService manages percentage discount coupons.
type DiscountCouponService struct {
	coupons repositories.CouponRepository
	clock   func() time.Time
	logger  func(context.Context, string, map[string]any)
}

// DiscountCouponServiceDeps enumerates the coupon service dependencies.
type DiscountCouponServiceDeps struct {
	Coupons repositories.CouponRepository
	Clock   func() time.Time
	Logger  func(context.Context, string, map[string]any)
}

// NewDiscountCouponService constructs a DiscountCouponService.
func NewDiscountCouponService(deps DiscountCouponServiceDeps) (*DiscountCouponService, error) {
	if deps.Coupons == nil {
		return nil, errors.New("coupon service: coupon repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &DiscountCouponService{
		coupons: deps.Coupons,
		clock:   func() time.Time { return clock().UTC() },
		logger:  logger,
	}, nil
}

// CreateCoupon validates and stores a coupon under its normalised code.
func (s *DiscountCouponService) CreateCoupon(ctx context.Context, cmd UpsertCouponCommand) (Coupon, error) {
	coupon := cmd.Coupon
	coupon.Code = domain.NormalizeCouponCode(coupon.Code)

	now := s.clock()
	if coupon.Code == "" {
		return Coupon{}, fmt.Errorf("%w: code is required", ErrCouponInvalidInput)
	}
	if coupon.DiscountPercent < 1 || coupon.DiscountPercent > 90 {
		return Coupon{}, fmt.Errorf("%w: discount percent must be between 1 and 90", ErrCouponInvalidInput)
	}
	if coupon.MaxUses == 0 {
		coupon.MaxUses = defaultCouponMaxUses
	}
	if coupon.MaxUses < 1 {
		return Coupon{}, fmt.Errorf("%w: max uses must be at least 1", ErrCouponInvalidInput)
	}
	if !coupon.ExpiresAt.After(now) {
		return Coupon{}, fmt.Errorf("%w: expiry must be in the future", ErrCouponInvalidInput)
	}

	coupon.UsedCount = 0
	coupon.IsActive = true
	coupon.CreatedAt = now
	coupon.UpdatedAt = now

	if err := s.coupons.Upsert(ctx, coupon); err != nil {
		return Coupon{}, fmt.Errorf("coupon: create: %w", err)
	}

	s.logger(ctx, "coupon.created", map[string]any{"code": coupon.Code, "actorId": cmd.ActorID})
	return coupon, nil
}

// ListCoupons returns all coupons.
func (s *DiscountCouponService) ListCoupons(ctx context.Context) ([]Coupon, error) {
	coupons, err := s.coupons.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("coupon: list: %w", err)
	}
	return coupons, nil
}

// ValidateCoupon loads the coupon and verifies it is redeemable right now
// without consuming a use.
func (s *DiscountCouponService) ValidateCoupon(ctx context.Context, code string) (Coupon, error) {
	normalized := domain.NormalizeCouponCode(code)
	if normalized == "" {
		return Coupon{}, fmt.Errorf("%w: code is required", ErrCouponInvalidInput)
	}

	coupon, err := s.coupons.FindByCode(ctx, normalized)
	if err != nil {
		if repositories.IsNotFound(err) {
			return Coupon{}, fmt.Errorf("%w: %s", ErrCouponNotFound, normalized)
		}
		return Coupon{}, fmt.Errorf("coupon: validate: %w", err)
	}
	if !coupon.Redeemable(s.clock()) {
		return Coupon{}, fmt.Errorf("%w: %s", ErrCouponNotRedeemable, normalized)
	}
	return coupon, nil
}

// RedeemCoupon consumes one use of the coupon if it is still redeemable.
// A coupon that cannot be redeemed reports Applied false without error.
func (s *DiscountCouponService) RedeemCoupon(ctx context.Context, code string) (repositories.CouponRedemption, error) {
	normalized := domain.NormalizeCouponCode(code)
	if normalized == "" {
		return repositories.CouponRedemption{}, fmt.Errorf("%w: code is required", ErrCouponInvalidInput)
	}

	redemption, err := s.coupons.TryRedeem(ctx, normalized, s.clock())
	if err != nil {
		return repositories.CouponRedemption{}, fmt.Errorf("coupon: redeem: %w", err)
	}
	if redemption.Applied {
		s.logger(ctx, "coupon.redeemed", map[string]any{"code": normalized})
	}
	return redemption, nil
}

// DeleteCoupon removes a coupon.
func (s *DiscountCouponService) DeleteCoupon(ctx context.Context, code string) error {
	normalized := domain.NormalizeCouponCode(code)
	if normalized == "" {
		return fmt.Errorf("%w: code is required", ErrCouponInvalidInput)
	}
	if err := s.coupons.Delete(ctx, normalized); err != nil {
		if repositories.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrCouponNotFound, normalized)
		}
		return fmt.Errorf("coupon: delete: %w", err)
	}
	return nil
}

var _ CouponService = (*DiscountCouponService)(nil)
