package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domain "github.com/myshop/api/internal/domain"
	"github.com/myshop/api/internal/repositories"
)

func newCouponService(t *testing.T, deps DiscountCouponServiceDeps) *DiscountCouponService {
	t.Helper()
	service, err := NewDiscountCouponService(deps)
	if err != nil {
		t.Fatalf("NewDiscountCouponService: %v", err)
	}
	return service
}

func TestCreateCouponNormalizesAndValidates(t *testing.T) {
	now := time.Date(2024, 6, 4, 12, 0, 0, 0, time.UTC)

	var stored domain.Coupon
	coupons := &stubCouponRepository{
		upsertFunc: func(ctx context.Context, c domain.Coupon) error {
			stored = c
			return nil
		},
	}
	service := newCouponService(t, DiscountCouponServiceDeps{
		Coupons: coupons,
		Clock:   func() time.Time { return now },
	})

	created, err := service.CreateCoupon(context.Background(), UpsertCouponCommand{
		Coupon: domain.Coupon{
			Code:            "  save10 ",
			DiscountPercent: 10,
			MaxUses:         5,
			ExpiresAt:       now.Add(48 * time.Hour),
		},
	})
	if err != nil {
		t.Fatalf("CreateCoupon: %v", err)
	}
	if created.Code != "SAVE10" || stored.Code != "SAVE10" {
		t.Errorf("code = %q / stored %q, want SAVE10", created.Code, stored.Code)
	}
	if !created.IsActive || created.UsedCount != 0 {
		t.Errorf("created = %+v", created)
	}
}

func TestCreateCouponRejectsBadInput(t *testing.T) {
	now := time.Date(2024, 6, 4, 12, 0, 0, 0, time.UTC)
	service := newCouponService(t, DiscountCouponServiceDeps{
		Coupons: &stubCouponRepository{},
		Clock:   func() time.Time { return now },
	})
	ctx := context.Background()

	cases := []domain.Coupon{
		{Code: "", DiscountPercent: 10, MaxUses: 5, ExpiresAt: now.Add(time.Hour)},
		{Code: "X", DiscountPercent: 0, MaxUses: 5, ExpiresAt: now.Add(time.Hour)},
		{Code: "X", DiscountPercent: 91, MaxUses: 5, ExpiresAt: now.Add(time.Hour)},
		{Code: "X", DiscountPercent: 95, MaxUses: 5, ExpiresAt: now.Add(time.Hour)},
		{Code: "X", DiscountPercent: 100, MaxUses: 5, ExpiresAt: now.Add(time.Hour)},
		{Code: "X", DiscountPercent: 10, MaxUses: -1, ExpiresAt: now.Add(time.Hour)},
		{Code: "X", DiscountPercent: 10, MaxUses: 5, ExpiresAt: now.Add(-time.Hour)},
	}
	for i, c := range cases {
		if _, err := service.CreateCoupon(ctx, UpsertCouponCommand{Coupon: c}); !errors.Is(err, ErrCouponInvalidInput) {
			t.Errorf("case %d: err = %v, want ErrCouponInvalidInput", i, err)
		}
	}
}

func TestCreateCouponAcceptsTopOfRange(t *testing.T) {
	now := time.Date(2024, 6, 4, 12, 0, 0, 0, time.UTC)
	service := newCouponService(t, DiscountCouponServiceDeps{
		Coupons: &stubCouponRepository{},
		Clock:   func() time.Time { return now },
	})

	coupon, err := service.CreateCoupon(context.Background(), UpsertCouponCommand{Coupon: domain.Coupon{
		Code:            "MEGA90",
		DiscountPercent: 90,
		MaxUses:         5,
		ExpiresAt:       now.Add(time.Hour),
	}})
	if err != nil {
		t.Fatalf("CreateCoupon: %v", err)
	}
	if coupon.DiscountPercent != 90 {
		t.Errorf("discount percent = %d, want 90", coupon.DiscountPercent)
	}
}

func TestCreateCouponDefaultsMaxUses(t *testing.T) {
	now := time.Date(2024, 6, 4, 12, 0, 0, 0, time.UTC)
	service := newCouponService(t, DiscountCouponServiceDeps{
		Coupons: &stubCouponRepository{},
		Clock:   func() time.Time { return now },
	})

	coupon, err := service.CreateCoupon(context.Background(), UpsertCouponCommand{Coupon: domain.Coupon{
		Code:            "SAVE10",
		DiscountPercent: 10,
		ExpiresAt:       now.Add(time.Hour),
	}})
	if err != nil {
		t.Fatalf("CreateCoupon: %v", err)
	}
	if coupon.MaxUses != 100 {
		t.Errorf("max uses = %d, want 100", coupon.MaxUses)
	}
}

func TestValidateCoupon(t *testing.T) {
	now := time.Date(2024, 6, 4, 12, 0, 0, 0, time.UTC)
	coupons := &stubCouponRepository{
		findFunc: func(ctx context.Context, code string) (domain.Coupon, error) {
			if code != "SAVE10" {
				return domain.Coupon{}, &repositoryErrorStub{notFound: true}
			}
			return domain.Coupon{Code: code, DiscountPercent: 10, ExpiresAt: now.Add(time.Hour), MaxUses: 5, UsedCount: 5, IsActive: true}, nil
		},
	}
	service := newCouponService(t, DiscountCouponServiceDeps{
		Coupons: coupons,
		Clock:   func() time.Time { return now },
	})
	ctx := context.Background()

	if _, err := service.ValidateCoupon(ctx, "SAVE10"); !errors.Is(err, ErrCouponNotRedeemable) {
		t.Errorf("exhausted err = %v, want ErrCouponNotRedeemable", err)
	}
	if _, err := service.ValidateCoupon(ctx, "NOPE"); !errors.Is(err, ErrCouponNotFound) {
		t.Errorf("missing err = %v, want ErrCouponNotFound", err)
	}
}

// TestRedeemCouponConcurrentNeverExceedsMaxUses drives many concurrent
// redemptions through a compare-and-swap repository and asserts the usage cap
// holds: exactly MaxUses redemptions succeed, the rest fail softly.
func TestRedeemCouponConcurrentNeverExceedsMaxUses(t *testing.T) {
	now := time.Date(2024, 6, 4, 12, 0, 0, 0, time.UTC)

	var mu sync.Mutex
	coupon := domain.Coupon{
		Code:            "SAVE10",
		DiscountPercent: 10,
		ExpiresAt:       now.Add(time.Hour),
		MaxUses:         7,
		UsedCount:       0,
		IsActive:        true,
	}
	coupons := &stubCouponRepository{
		redeemFunc: func(ctx context.Context, code string, at time.Time) (repositories.CouponRedemption, error) {
			mu.Lock()
			defer mu.Unlock()
			if !coupon.Redeemable(at) {
				return repositories.CouponRedemption{}, nil
			}
			coupon.UsedCount++
			return repositories.CouponRedemption{Applied: true, DiscountPercent: coupon.DiscountPercent}, nil
		},
	}
	service := newCouponService(t, DiscountCouponServiceDeps{
		Coupons: coupons,
		Clock:   func() time.Time { return now },
	})

	const attempts = 50
	results := make(chan bool, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			redemption, err := service.RedeemCoupon(context.Background(), "SAVE10")
			if err != nil {
				t.Errorf("RedeemCoupon: %v", err)
				results <- false
				return
			}
			results <- redemption.Applied
		}()
	}
	wg.Wait()
	close(results)

	applied := 0
	for ok := range results {
		if ok {
			applied++
		}
	}
	if applied != 7 {
		t.Errorf("applied = %d, want exactly 7", applied)
	}
	if coupon.UsedCount > coupon.MaxUses {
		t.Errorf("used count %d exceeded max uses %d", coupon.UsedCount, coupon.MaxUses)
	}
}
