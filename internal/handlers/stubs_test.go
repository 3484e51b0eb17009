package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	domain "github.com/myshop/api/internal/domain"
	"github.com/myshop/api/internal/payments"
	"github.com/myshop/api/internal/platform/auth"
	"github.com/myshop/api/internal/repositories"
	"github.com/myshop/api/internal/services"
)

var fixedNow = time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC)

type stubCatalogService struct {
	createFn  func(ctx context.Context, cmd services.UpsertProductCommand) (domain.Product, error)
	updateFn  func(ctx context.Context, cmd services.UpsertProductCommand) (domain.Product, error)
	getFn     func(ctx context.Context, productID string) (domain.Product, error)
	listFn    func(ctx context.Context, filter services.ProductListFilter) ([]domain.Product, error)
	depleteFn func(ctx context.Context, cmd services.DepleteStockCommand) (int, error)
	deleteFn  func(ctx context.Context, productID string) error
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, cmd services.UpsertProductCommand) (domain.Product, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return cmd.Product, nil
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, cmd services.UpsertProductCommand) (domain.Product, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return cmd.Product, nil
}

func (s *stubCatalogService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if s.getFn != nil {
		return s.getFn(ctx, productID)
	}
	return domain.Product{}, services.ErrProductNotFound
}

func (s *stubCatalogService) ListProducts(ctx context.Context, filter services.ProductListFilter) ([]domain.Product, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return nil, nil
}

func (s *stubCatalogService) DepleteStock(ctx context.Context, cmd services.DepleteStockCommand) (int, error) {
	if s.depleteFn != nil {
		return s.depleteFn(ctx, cmd)
	}
	return 0, nil
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, productID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, productID)
	}
	return nil
}

type stubCartService struct {
	getFn          func(ctx context.Context, userID string) (services.CartView, error)
	addFn          func(ctx context.Context, cmd services.AddCartLineCommand) (services.CartView, error)
	removeFn       func(ctx context.Context, cmd services.RemoveCartLineCommand) (services.CartView, error)
	applyCouponFn  func(ctx context.Context, cmd services.ApplyCouponCommand) (services.CartView, error)
	removeCouponFn func(ctx context.Context, userID string) (services.CartView, error)
	clearFn        func(ctx context.Context, userID string) error
}

func (s *stubCartService) GetCart(ctx context.Context, userID string) (services.CartView, error) {
	if s.getFn != nil {
		return s.getFn(ctx, userID)
	}
	return services.CartView{UserID: userID}, nil
}

func (s *stubCartService) AddLine(ctx context.Context, cmd services.AddCartLineCommand) (services.CartView, error) {
	if s.addFn != nil {
		return s.addFn(ctx, cmd)
	}
	return services.CartView{UserID: cmd.UserID}, nil
}

func (s *stubCartService) RemoveLine(ctx context.Context, cmd services.RemoveCartLineCommand) (services.CartView, error) {
	if s.removeFn != nil {
		return s.removeFn(ctx, cmd)
	}
	return services.CartView{UserID: cmd.UserID}, nil
}

func (s *stubCartService) ApplyCoupon(ctx context.Context, cmd services.ApplyCouponCommand) (services.CartView, error) {
	if s.applyCouponFn != nil {
		return s.applyCouponFn(ctx, cmd)
	}
	return services.CartView{UserID: cmd.UserID}, nil
}

func (s *stubCartService) RemoveCoupon(ctx context.Context, userID string) (services.CartView, error) {
	if s.removeCouponFn != nil {
		return s.removeCouponFn(ctx, userID)
	}
	return services.CartView{UserID: userID}, nil
}

func (s *stubCartService) Clear(ctx context.Context, userID string) error {
	if s.clearFn != nil {
		return s.clearFn(ctx, userID)
	}
	return nil
}

type stubCheckoutService struct {
	sessionFn func(ctx context.Context, cmd services.CreateCheckoutSessionCommand) (payments.CheckoutSession, error)
	commitFn  func(ctx context.Context, cmd services.CommitOrderCommand) (services.CommitOrderResult, error)
}

func (s *stubCheckoutService) CreateSession(ctx context.Context, cmd services.CreateCheckoutSessionCommand) (payments.CheckoutSession, error) {
	if s.sessionFn != nil {
		return s.sessionFn(ctx, cmd)
	}
	return payments.CheckoutSession{ID: "cs_test", Provider: "stripe", RedirectURL: "https://pay.example/cs_test"}, nil
}

func (s *stubCheckoutService) CommitOrder(ctx context.Context, cmd services.CommitOrderCommand) (services.CommitOrderResult, error) {
	if s.commitFn != nil {
		return s.commitFn(ctx, cmd)
	}
	return services.CommitOrderResult{}, services.ErrCheckoutPaymentRequired
}

type stubOrderService struct {
	getFn     func(ctx context.Context, cmd services.OrderAccessCommand) (domain.Order, error)
	listFn    func(ctx context.Context, userID string, limit int) ([]domain.Order, error)
	listAllFn func(ctx context.Context, filter services.OrderListFilter) ([]domain.Order, error)
	advanceFn func(ctx context.Context, cmd services.AdvanceOrderCommand) (domain.Order, error)
}

func (s *stubOrderService) GetOrder(ctx context.Context, cmd services.OrderAccessCommand) (domain.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, cmd)
	}
	return domain.Order{}, services.ErrOrderNotFound
}

func (s *stubOrderService) ListOrders(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	if s.listFn != nil {
		return s.listFn(ctx, userID, limit)
	}
	return nil, nil
}

func (s *stubOrderService) ListAllOrders(ctx context.Context, filter services.OrderListFilter) ([]domain.Order, error) {
	if s.listAllFn != nil {
		return s.listAllFn(ctx, filter)
	}
	return nil, nil
}

func (s *stubOrderService) Advance(ctx context.Context, cmd services.AdvanceOrderCommand) (domain.Order, error) {
	if s.advanceFn != nil {
		return s.advanceFn(ctx, cmd)
	}
	return domain.Order{}, services.ErrOrderNotFound
}

type stubInvoiceService struct {
	renderFn func(ctx context.Context, cmd services.RenderInvoiceCommand) (services.InvoiceDocument, error)
}

func (s *stubInvoiceService) Render(ctx context.Context, cmd services.RenderInvoiceCommand) (services.InvoiceDocument, error) {
	if s.renderFn != nil {
		return s.renderFn(ctx, cmd)
	}
	return services.InvoiceDocument{}, services.ErrOrderNotFound
}

type stubCouponService struct {
	createFn   func(ctx context.Context, cmd services.UpsertCouponCommand) (domain.Coupon, error)
	listFn     func(ctx context.Context) ([]domain.Coupon, error)
	validateFn func(ctx context.Context, code string) (domain.Coupon, error)
	redeemFn   func(ctx context.Context, code string) (repositories.CouponRedemption, error)
	deleteFn   func(ctx context.Context, code string) error
}

func (s *stubCouponService) CreateCoupon(ctx context.Context, cmd services.UpsertCouponCommand) (domain.Coupon, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return cmd.Coupon, nil
}

func (s *stubCouponService) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

func (s *stubCouponService) ValidateCoupon(ctx context.Context, code string) (domain.Coupon, error) {
	if s.validateFn != nil {
		return s.validateFn(ctx, code)
	}
	return domain.Coupon{}, services.ErrCouponNotFound
}

func (s *stubCouponService) RedeemCoupon(ctx context.Context, code string) (repositories.CouponRedemption, error) {
	if s.redeemFn != nil {
		return s.redeemFn(ctx, code)
	}
	return repositories.CouponRedemption{}, services.ErrCouponNotFound
}

func (s *stubCouponService) DeleteCoupon(ctx context.Context, code string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, code)
	}
	return nil
}

func newAuthedRequest(method, target, body string, identity *auth.Identity) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if identity != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), identity))
	}
	return req
}

func customerIdentity() *auth.Identity {
	return &auth.Identity{UID: "user-1", Email: "user@example.com", Roles: []string{auth.RoleCustomer}}
}

func adminIdentity() *auth.Identity {
	return &auth.Identity{UID: "admin-1", Email: "admin@example.com", Roles: []string{auth.RoleAdmin}}
}
