package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/myshop/api/internal/domain"
)

func newCartService(t *testing.T, deps UserCartServiceDeps) *UserCartService {
	t.Helper()
	service, err := NewUserCartService(deps)
	if err != nil {
		t.Fatalf("NewUserCartService: %v", err)
	}
	return service
}

func activeProduct(id string, price domain.Money) func(ctx context.Context, pid string) (domain.Product, error) {
	return func(ctx context.Context, pid string) (domain.Product, error) {
		if pid != id {
			return domain.Product{}, &repositoryErrorStub{notFound: true}
		}
		return domain.Product{ID: id, Title: "Product " + id, Price: price, Stock: 10, IsActive: true}, nil
	}
}

func TestAddLineCreatesAndIncrements(t *testing.T) {
	now := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

	stored := domain.Cart{UserID: "user-1"}
	carts := &stubCartRepository{
		getFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			return stored, nil
		},
		saveFunc: func(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
			stored = cart
			return cart, nil
		},
	}

	service := newCartService(t, UserCartServiceDeps{
		Carts:    carts,
		Products: &stubProductRepository{findFunc: activeProduct("prod-1", 500)},
		Coupons:  &stubCouponRepository{},
		Clock:    func() time.Time { return now },
	})
	ctx := context.Background()

	view, err := service.AddLine(ctx, AddCartLineCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 2})
	if err != nil {
		t.Fatalf("AddLine: %v", err)
	}
	if len(view.Lines) != 1 || view.Lines[0].Quantity != 2 {
		t.Fatalf("view = %+v", view.Lines)
	}

	view, err = service.AddLine(ctx, AddCartLineCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 1})
	if err != nil {
		t.Fatalf("AddLine increment: %v", err)
	}
	if view.Lines[0].Quantity != 3 {
		t.Errorf("quantity = %d, want 3", view.Lines[0].Quantity)
	}
	if view.Subtotal != 1500 || view.Total != 1500 {
		t.Errorf("subtotal/total = %d/%d, want 1500/1500", view.Subtotal, view.Total)
	}
}

func TestAddLineRejectsInactiveProduct(t *testing.T) {
	carts := &stubCartRepository{}
	products := &stubProductRepository{
		findFunc: func(ctx context.Context, id string) (domain.Product, error) {
			return domain.Product{ID: id, IsActive: false}, nil
		},
	}

	service := newCartService(t, UserCartServiceDeps{
		Carts:    carts,
		Products: products,
		Coupons:  &stubCouponRepository{},
	})

	_, err := service.AddLine(context.Background(), AddCartLineCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 1})
	if !errors.Is(err, ErrCartProductUnavailable) {
		t.Fatalf("err = %v, want ErrCartProductUnavailable", err)
	}
}

func TestRemoveLineDropsProduct(t *testing.T) {
	stored := domain.Cart{
		UserID: "user-1",
		Lines: []domain.CartLine{
			{ProductID: "prod-1", Quantity: 2},
			{ProductID: "prod-2", Quantity: 1},
		},
	}
	carts := &stubCartRepository{
		getFunc: func(ctx context.Context, userID string) (domain.Cart, error) { return stored, nil },
		saveFunc: func(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
			stored = cart
			return cart, nil
		},
	}
	products := &stubProductRepository{
		findFunc: func(ctx context.Context, id string) (domain.Product, error) {
			return domain.Product{ID: id, Title: id, Price: 100, Stock: 5, IsActive: true}, nil
		},
	}

	service := newCartService(t, UserCartServiceDeps{
		Carts:    carts,
		Products: products,
		Coupons:  &stubCouponRepository{},
	})

	view, err := service.RemoveLine(context.Background(), RemoveCartLineCommand{UserID: "user-1", ProductID: "prod-1"})
	if err != nil {
		t.Fatalf("RemoveLine: %v", err)
	}
	if len(view.Lines) != 1 || view.Lines[0].Product.ID != "prod-2" {
		t.Errorf("lines = %+v, want only prod-2", view.Lines)
	}
}

func TestGetCartPrunesDeadLines(t *testing.T) {
	logs := &eventRecorder{}
	carts := &stubCartRepository{
		getFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			return domain.Cart{
				UserID: userID,
				Lines: []domain.CartLine{
					{ProductID: "alive", Quantity: 1},
					{ProductID: "deleted", Quantity: 1},
					{ProductID: "inactive", Quantity: 1},
				},
			}, nil
		},
	}
	products := &stubProductRepository{
		findFunc: func(ctx context.Context, id string) (domain.Product, error) {
			switch id {
			case "alive":
				return domain.Product{ID: id, Title: "Alive", Price: 700, Stock: 1, IsActive: true}, nil
			case "inactive":
				return domain.Product{ID: id, Title: "Inactive", Price: 700, IsActive: false}, nil
			}
			return domain.Product{}, &repositoryErrorStub{notFound: true}
		},
	}

	service := newCartService(t, UserCartServiceDeps{
		Carts:    carts,
		Products: products,
		Coupons:  &stubCouponRepository{},
		Logger:   logs.log,
	})

	view, err := service.GetCart(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(view.Lines) != 1 || view.Lines[0].Product.ID != "alive" {
		t.Errorf("lines = %+v, want only alive", view.Lines)
	}
	if view.Subtotal != 700 {
		t.Errorf("subtotal = %d, want 700", view.Subtotal)
	}
	if !logs.has("cart.line_dropped") {
		t.Error("expected cart.line_dropped log event")
	}
}

func TestGetCartMissingReturnsEmpty(t *testing.T) {
	service := newCartService(t, UserCartServiceDeps{
		Carts:    &stubCartRepository{},
		Products: &stubProductRepository{},
		Coupons:  &stubCouponRepository{},
	})

	view, err := service.GetCart(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(view.Lines) != 0 || view.Total != 0 {
		t.Errorf("view = %+v, want empty", view)
	}
}

func TestApplyCouponValidatesRedeemability(t *testing.T) {
	now := time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

	stored := domain.Cart{UserID: "user-1", Lines: []domain.CartLine{{ProductID: "prod-1", Quantity: 1}}}
	carts := &stubCartRepository{
		getFunc: func(ctx context.Context, userID string) (domain.Cart, error) { return stored, nil },
		saveFunc: func(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
			stored = cart
			return cart, nil
		},
	}
	coupons := &stubCouponRepository{
		findFunc: func(ctx context.Context, code string) (domain.Coupon, error) {
			switch code {
			case "SAVE10":
				return domain.Coupon{Code: code, DiscountPercent: 10, ExpiresAt: now.Add(time.Hour), MaxUses: 5, IsActive: true}, nil
			case "EXPIRED":
				return domain.Coupon{Code: code, DiscountPercent: 10, ExpiresAt: now.Add(-time.Hour), MaxUses: 5, IsActive: true}, nil
			}
			return domain.Coupon{}, &repositoryErrorStub{notFound: true}
		},
	}

	service := newCartService(t, UserCartServiceDeps{
		Carts:    carts,
		Products: &stubProductRepository{findFunc: activeProduct("prod-1", 1000)},
		Coupons:  coupons,
		Clock:    func() time.Time { return now },
	})
	ctx := context.Background()

	view, err := service.ApplyCoupon(ctx, ApplyCouponCommand{UserID: "user-1", Code: " save10 "})
	if err != nil {
		t.Fatalf("ApplyCoupon: %v", err)
	}
	if view.CouponCode != "SAVE10" || !view.CouponApplied {
		t.Errorf("coupon = %q applied=%v", view.CouponCode, view.CouponApplied)
	}
	if view.Discount != 100 || view.Total != 900 {
		t.Errorf("discount/total = %d/%d, want 100/900", view.Discount, view.Total)
	}

	if _, err := service.ApplyCoupon(ctx, ApplyCouponCommand{UserID: "user-1", Code: "EXPIRED"}); !errors.Is(err, ErrCouponNotRedeemable) {
		t.Errorf("expired err = %v, want ErrCouponNotRedeemable", err)
	}
	if _, err := service.ApplyCoupon(ctx, ApplyCouponCommand{UserID: "user-1", Code: "MISSING"}); !errors.Is(err, ErrCouponNotFound) {
		t.Errorf("missing err = %v, want ErrCouponNotFound", err)
	}
}
