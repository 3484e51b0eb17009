package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/myshop/api/internal/platform/httpx"
	"github.com/myshop/api/internal/services"
)

// CartHandlers serves the authenticated per-user cart surface.
type CartHandlers struct {
	carts services.CartService
}

// NewCartHandlers builds the cart handlers.
func NewCartHandlers(carts services.CartService) (*CartHandlers, error) {
	if carts == nil {
		return nil, errors.New("handlers: cart service is required")
	}
	return &CartHandlers{carts: carts}, nil
}

// Routes registers the cart endpoints.
func (h *CartHandlers) Routes() RouteRegistrar {
	return func(r chi.Router) {
		r.Get("/", h.get)
		r.Post("/items", h.addItem)
		r.Delete("/items/{productID}", h.removeItem)
		r.Post("/coupon", h.applyCoupon)
		r.Delete("/coupon", h.removeCoupon)
		r.Delete("/", h.clear)
	}
}

func (h *CartHandlers) get(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	view, err := h.carts.GetCart(ctx, identity.UID)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "unable to load cart", http.StatusInternalServerError))
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(view))
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req addCartItemRequest
	if err := decodeBody(r, defaultMaxBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	view, err := h.carts.AddLine(ctx, services.AddCartLineCommand{
		UserID:    identity.UID,
		Email:     identity.Email,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(view))
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	view, err := h.carts.RemoveLine(ctx, services.RemoveCartLineCommand{
		UserID:    identity.UID,
		ProductID: productID,
	})
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(view))
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

func (h *CartHandlers) applyCoupon(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req applyCouponRequest
	if err := decodeBody(r, defaultMaxBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	view, err := h.carts.ApplyCoupon(ctx, services.ApplyCouponCommand{
		UserID: identity.UID,
		Code:   req.Code,
	})
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(view))
}

func (h *CartHandlers) removeCoupon(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	view, err := h.carts.RemoveCoupon(ctx, identity.UID)
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(view))
}

func (h *CartHandlers) clear(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if err := h.carts.Clear(ctx, identity.UID); err != nil {
		h.writeCartError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandlers) writeCartError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid cart input", http.StatusBadRequest))
	case errors.Is(err, services.ErrCartProductUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("product_unavailable", "product is not available", http.StatusConflict))
	case errors.Is(err, services.ErrCouponNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_not_found", "coupon does not exist", http.StatusNotFound))
	case errors.Is(err, services.ErrCouponNotRedeemable):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_not_redeemable", "coupon can no longer be applied", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "unable to update cart", http.StatusInternalServerError))
	}
}
