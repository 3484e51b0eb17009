package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/myshop/api/internal/domain"
	"github.com/myshop/api/internal/platform/auth"
	"github.com/myshop/api/internal/platform/httpx"
	"github.com/myshop/api/internal/repositories"
	"github.com/myshop/api/internal/services"
)

// AdminHandlers serves the back-office surface: catalog writes, coupon
// lifecycle, and order management.
type AdminHandlers struct {
	catalog services.CatalogService
	coupons services.CouponService
	orders  services.OrderService
}

// AdminHandlersDeps lists the collaborators required by NewAdminHandlers.
type AdminHandlersDeps struct {
	Catalog services.CatalogService
	Coupons services.CouponService
	Orders  services.OrderService
}

// NewAdminHandlers builds the admin handlers.
func NewAdminHandlers(deps AdminHandlersDeps) (*AdminHandlers, error) {
	if deps.Catalog == nil {
		return nil, errors.New("handlers: catalog service is required")
	}
	if deps.Coupons == nil {
		return nil, errors.New("handlers: coupon service is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("handlers: order service is required")
	}
	return &AdminHandlers{
		catalog: deps.Catalog,
		coupons: deps.Coupons,
		orders:  deps.Orders,
	}, nil
}

// Routes registers the admin endpoints.
func (h *AdminHandlers) Routes() RouteRegistrar {
	return func(r chi.Router) {
		r.Get("/products", h.listProducts)
		r.Get("/products/{productID}", h.getProduct)
		r.Post("/products", h.createProduct)
		r.Put("/products/{productID}", h.updateProduct)
		r.Post("/products/{productID}/deplete", h.depleteStock)
		r.Delete("/products/{productID}", h.deleteProduct)

		r.Get("/coupons", h.listCoupons)
		r.Post("/coupons", h.createCoupon)
		r.Delete("/coupons/{code}", h.deleteCoupon)

		r.Get("/orders", h.listOrders)
		r.Post("/orders/{orderID}/advance", h.advanceOrder)
	}
}

type productRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	Category    string `json:"category"`
	Brand       string `json:"brand"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
	IsActive    *bool  `json:"isActive"`
}

func (req productRequest) toProduct(id string) domain.Product {
	product := domain.Product{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Category:    req.Category,
		Brand:       req.Brand,
		Price:       domain.Money(req.Price),
		Stock:       req.Stock,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	} else {
		product.IsActive = true
	}
	return product
}

// listProducts returns the full catalogue including inactive products,
// unlike the public listing.
func (h *AdminHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := repositories.ProductListFilter{
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
		Brand:    strings.TrimSpace(r.URL.Query().Get("brand")),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit must be a positive integer", http.StatusBadRequest))
			return
		}
		filter.Limit = limit
	}

	products, err := h.catalog.ListProducts(ctx, filter)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "unable to list products", http.StatusInternalServerError))
		return
	}

	payloads := make([]productPayload, 0, len(products))
	for _, product := range products {
		payloads = append(payloads, buildProductPayload(product))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"products": payloads})
}

func (h *AdminHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildProductPayload(product))
}

func (h *AdminHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req productRequest
	if err := decodeBody(r, defaultMaxBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	product, err := h.catalog.CreateProduct(ctx, services.UpsertProductCommand{
		Product: req.toProduct(""),
		ActorID: actorID(ctx),
	})
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildProductPayload(product))
}

func (h *AdminHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	var req productRequest
	if err := decodeBody(r, defaultMaxBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	product, err := h.catalog.UpdateProduct(ctx, services.UpsertProductCommand{
		Product: req.toProduct(productID),
		ActorID: actorID(ctx),
	})
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildProductPayload(product))
}

type depleteStockRequest struct {
	Quantity int `json:"quantity"`
}

func (h *AdminHandlers) depleteStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	var req depleteStockRequest
	if err := decodeBody(r, defaultMaxBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	remaining, err := h.catalog.DepleteStock(ctx, services.DepleteStockCommand{
		ProductID: productID,
		Quantity:  req.Quantity,
		ActorID:   actorID(ctx),
	})
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"productId": productID,
		"remaining": remaining,
	})
}

func (h *AdminHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	if err := h.catalog.DeleteProduct(ctx, productID); err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandlers) writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrProductInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid product input", http.StatusBadRequest))
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product does not exist", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "unable to update catalog", http.StatusInternalServerError))
	}
}

type couponRequest struct {
	Code            string    `json:"code"`
	DiscountPercent int       `json:"discountPercent"`
	ExpiresAt       time.Time `json:"expiresAt"`
	MaxUses         int       `json:"maxUses"`
}

func (h *AdminHandlers) createCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req couponRequest
	if err := decodeBody(r, defaultMaxBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	coupon, err := h.coupons.CreateCoupon(ctx, services.UpsertCouponCommand{
		Coupon: domain.Coupon{
			Code:            req.Code,
			DiscountPercent: req.DiscountPercent,
			ExpiresAt:       req.ExpiresAt,
			MaxUses:         req.MaxUses,
		},
		ActorID: actorID(ctx),
	})
	if err != nil {
		h.writeCouponError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildCouponPayload(coupon))
}

func (h *AdminHandlers) listCoupons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	coupons, err := h.coupons.ListCoupons(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupons_unavailable", "unable to list coupons", http.StatusInternalServerError))
		return
	}

	payloads := make([]couponPayload, 0, len(coupons))
	for _, coupon := range coupons {
		payloads = append(payloads, buildCouponPayload(coupon))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"coupons": payloads})
}

func (h *AdminHandlers) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "coupon code is required", http.StatusBadRequest))
		return
	}

	if err := h.coupons.DeleteCoupon(ctx, code); err != nil {
		h.writeCouponError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandlers) writeCouponError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCouponInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid coupon input", http.StatusBadRequest))
	case errors.Is(err, services.ErrCouponNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_not_found", "coupon does not exist", http.StatusNotFound))
	case errors.Is(err, services.ErrCouponNotRedeemable):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_not_redeemable", "coupon can no longer be applied", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("coupons_unavailable", "unable to update coupons", http.StatusInternalServerError))
	}
}

func (h *AdminHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := repositories.OrderListFilter{
		UserID: strings.TrimSpace(r.URL.Query().Get("userId")),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := domain.OrderStatus(raw)
		if !domain.ValidOrderStatus(status) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unknown order status", http.StatusBadRequest))
			return
		}
		filter.Status = status
	}

	orders, err := h.orders.ListAllOrders(ctx, filter)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "unable to list orders", http.StatusInternalServerError))
		return
	}

	payloads := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		payloads = append(payloads, buildOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"orders": payloads})
}

type advanceOrderRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
	Force  bool   `json:"force"`
}

func (h *AdminHandlers) advanceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req advanceOrderRequest
	if err := decodeBody(r, defaultMaxBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	order, err := h.orders.Advance(ctx, services.AdvanceOrderCommand{
		OrderID: orderID,
		Target:  domain.OrderStatus(req.Status),
		Note:    req.Note,
		ActorID: actorID(ctx),
		Force:   req.Force,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderInvalidInput):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid order input", http.StatusBadRequest))
		case errors.Is(err, services.ErrOrderNotFound):
			httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order does not exist", http.StatusNotFound))
		case errors.Is(err, services.ErrOrderInvalidTransition):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", "order cannot move to the requested status", http.StatusConflict))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "unable to advance order", http.StatusInternalServerError))
		}
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

func actorID(ctx context.Context) string {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		return ""
	}
	return identity.UID
}
