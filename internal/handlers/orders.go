package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/myshop/api/internal/platform/httpx"
	"github.com/myshop/api/internal/services"
)

// OrderHandlers serves the authenticated order surface: commit, history,
// detail, and invoice download. Admin lifecycle operations live in AdminHandlers.
type OrderHandlers struct {
	checkout services.CheckoutService
	orders   services.OrderService
	invoices services.InvoiceService
}

// OrderHandlersDeps lists the collaborators required by NewOrderHandlers.
type OrderHandlersDeps struct {
	Checkout services.CheckoutService
	Orders   services.OrderService
	Invoices services.InvoiceService
}

// NewOrderHandlers builds the order handlers.
func NewOrderHandlers(deps OrderHandlersDeps) (*OrderHandlers, error) {
	if deps.Checkout == nil {
		return nil, errors.New("handlers: checkout service is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("handlers: order service is required")
	}
	if deps.Invoices == nil {
		return nil, errors.New("handlers: invoice service is required")
	}
	return &OrderHandlers{
		checkout: deps.Checkout,
		orders:   deps.Orders,
		invoices: deps.Invoices,
	}, nil
}

// Routes registers the order endpoints.
func (h *OrderHandlers) Routes() RouteRegistrar {
	return func(r chi.Router) {
		r.Post("/", h.commit)
		r.Get("/", h.list)
		r.Get("/{orderID}", h.get)
		r.Get("/{orderID}/invoice", h.invoice)
	}
}

type commitOrderRequest struct {
	PaymentSessionID string `json:"paymentSessionId"`
	PaymentMethod    string `json:"paymentMethod"`
}

type commitOrderResponse struct {
	Order    orderPayload `json:"order"`
	Replayed bool         `json:"replayed"`
}

func (h *OrderHandlers) commit(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req commitOrderRequest
	if err := decodeBody(r, defaultMaxBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	result, err := h.checkout.CommitOrder(ctx, services.CommitOrderCommand{
		UserID:           identity.UID,
		Email:            identity.Email,
		PaymentSessionID: req.PaymentSessionID,
		PaymentMethod:    req.PaymentMethod,
	})
	if err != nil {
		h.writeCommitError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	writeJSONResponse(w, status, commitOrderResponse{
		Order:    buildOrderPayload(result.Order),
		Replayed: result.Replayed,
	})
}

func (h *OrderHandlers) writeCommitError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid checkout input", http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutPaymentRequired):
		httpx.WriteError(ctx, w, httpx.NewError("payment_required", "payment has not settled for this session", http.StatusPaymentRequired))
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("empty_cart", "cart has no purchasable items", http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutConflict):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_conflict", "order could not be committed, retry the request", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutReconcile):
		httpx.WriteError(ctx, w, httpx.NewError("reconcile_required", "commit outcome unknown, do not retry blindly", http.StatusInternalServerError))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "unable to commit order", http.StatusInternalServerError))
	}
}

func (h *OrderHandlers) list(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit must be a positive integer", http.StatusBadRequest))
			return
		}
		limit = parsed
	}

	orders, err := h.orders.ListOrders(ctx, identity.UID, limit)
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

func (h *OrderHandlers) get(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetOrder(ctx, services.OrderAccessCommand{
		OrderID:     orderID,
		RequesterID: identity.UID,
		Admin:       identity.IsAdmin(),
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) invoice(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	doc, err := h.invoices.Render(ctx, services.RenderInvoiceCommand{
		OrderID:     orderID,
		RequesterID: identity.UID,
		Admin:       identity.IsAdmin(),
	})
	if err != nil {
		if errors.Is(err, services.ErrInvoiceRender) {
			httpx.WriteError(ctx, w, httpx.NewError("invoice_render_failed", "unable to render invoice", http.StatusInternalServerError))
			return
		}
		h.writeOrderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", doc.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

func (h *OrderHandlers) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid order input", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order does not exist", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderAccessDenied):
		httpx.WriteError(ctx, w, httpx.NewError("order_access_denied", "order belongs to another user", http.StatusForbidden))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "unable to load order", http.StatusInternalServerError))
	}
}
