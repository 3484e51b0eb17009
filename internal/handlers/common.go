package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	domain "github.com/myshop/api/internal/domain"
	"github.com/myshop/api/internal/platform/auth"
	"github.com/myshop/api/internal/platform/httpx"
	"github.com/myshop/api/internal/services"
)

var (
	errEmptyBody    = errors.New("request body is empty")
	errBodyTooLarge = errors.New("request body too large")
)

const defaultMaxBodySize = 16 * 1024

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = defaultMaxBodySize
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func decodeBody(r *http.Request, limit int64, dst any) error {
	data, err := readLimitedBody(r, limit)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errors.New("invalid JSON payload")
	}
	return nil
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

// requireIdentity resolves the authenticated identity or writes a 401.
func requireIdentity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// JSON payloads -------------------------------------------------------------

type productPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Category    string `json:"category,omitempty"`
	Brand       string `json:"brand,omitempty"`
	Price       int64  `json:"price"`
	Display     string `json:"display"`
	Stock       int    `json:"stock"`
	IsActive    bool   `json:"isActive"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

func buildProductPayload(p domain.Product) productPayload {
	return productPayload{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Category:    p.Category,
		Brand:       p.Brand,
		Price:       int64(p.Price),
		Display:     p.Price.Format(),
		Stock:       p.Stock,
		IsActive:    p.IsActive,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
}

type cartLinePayload struct {
	Product   productPayload `json:"product"`
	Quantity  int            `json:"quantity"`
	LineTotal int64          `json:"lineTotal"`
	Display   string         `json:"display"`
}

type cartPayload struct {
	UserID        string            `json:"userId"`
	Email         string            `json:"email,omitempty"`
	Lines         []cartLinePayload `json:"lines"`
	CouponCode    string            `json:"couponCode,omitempty"`
	CouponApplied bool              `json:"couponApplied"`
	Subtotal      int64             `json:"subtotal"`
	Discount      int64             `json:"discount"`
	Total         int64             `json:"total"`
	Display       string            `json:"display"`
	UpdatedAt     string            `json:"updatedAt,omitempty"`
}

func buildCartPayload(view services.CartView) cartPayload {
	lines := make([]cartLinePayload, 0, len(view.Lines))
	for _, line := range view.Lines {
		lines = append(lines, cartLinePayload{
			Product:   buildProductPayload(line.Product),
			Quantity:  line.Quantity,
			LineTotal: int64(line.LineTotal),
			Display:   line.LineTotal.Format(),
		})
	}
	return cartPayload{
		UserID:        view.UserID,
		Email:         view.Email,
		Lines:         lines,
		CouponCode:    view.CouponCode,
		CouponApplied: view.CouponApplied,
		Subtotal:      int64(view.Subtotal),
		Discount:      int64(view.Discount),
		Total:         int64(view.Total),
		Display:       view.Total.Format(),
		UpdatedAt:     formatTime(view.UpdatedAt),
	}
}

type orderLinePayload struct {
	ProductID string `json:"productId"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"lineTotal"`
	Display   string `json:"display"`
}

type trackingEventPayload struct {
	Status string `json:"status"`
	At     string `json:"at"`
	Note   string `json:"note,omitempty"`
}

type couponSnapshotPayload struct {
	Code            string `json:"code"`
	DiscountPercent int    `json:"discountPercent"`
}

type orderPayload struct {
	ID               string                 `json:"id"`
	UserID           string                 `json:"userId"`
	Email            string                 `json:"email,omitempty"`
	Lines            []orderLinePayload     `json:"lines"`
	Subtotal         int64                  `json:"subtotal"`
	TotalAmount      int64                  `json:"totalAmount"`
	Display          string                 `json:"display"`
	Coupon           *couponSnapshotPayload `json:"coupon,omitempty"`
	PaymentMethod    string                 `json:"paymentMethod,omitempty"`
	PaymentSessionID string                 `json:"paymentSessionId,omitempty"`
	Status           string                 `json:"status"`
	TrackingHistory  []trackingEventPayload `json:"trackingHistory"`
	CreatedAt        string                 `json:"createdAt,omitempty"`
	UpdatedAt        string                 `json:"updatedAt,omitempty"`
}

func buildOrderPayload(order domain.Order) orderPayload {
	lines := make([]orderLinePayload, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLinePayload{
			ProductID: line.ProductID,
			Title:     line.Title,
			UnitPrice: int64(line.UnitPrice),
			Quantity:  line.Quantity,
			LineTotal: int64(line.Total()),
			Display:   line.Total().Format(),
		})
	}
	tracking := make([]trackingEventPayload, 0, len(order.TrackingHistory))
	for _, event := range order.TrackingHistory {
		tracking = append(tracking, trackingEventPayload{
			Status: string(event.Status),
			At:     formatTime(event.At),
			Note:   event.Note,
		})
	}
	payload := orderPayload{
		ID:               order.ID,
		UserID:           order.UserID,
		Email:            order.Email,
		Lines:            lines,
		Subtotal:         int64(order.Subtotal),
		TotalAmount:      int64(order.TotalAmount),
		Display:          order.TotalAmount.Format(),
		PaymentMethod:    order.PaymentMethod,
		PaymentSessionID: order.PaymentSessionID,
		Status:           string(order.Status),
		TrackingHistory:  tracking,
		CreatedAt:        formatTime(order.CreatedAt),
		UpdatedAt:        formatTime(order.UpdatedAt),
	}
	if order.Coupon != nil {
		payload.Coupon = &couponSnapshotPayload{
			Code:            order.Coupon.Code,
			DiscountPercent: order.Coupon.DiscountPercent,
		}
	}
	return payload
}

type couponPayload struct {
	Code            string `json:"code"`
	DiscountPercent int    `json:"discountPercent"`
	ExpiresAt       string `json:"expiresAt"`
	MaxUses         int    `json:"maxUses"`
	UsedCount       int    `json:"usedCount"`
	IsActive        bool   `json:"isActive"`
}

func buildCouponPayload(c domain.Coupon) couponPayload {
	return couponPayload{
		Code:            c.Code,
		DiscountPercent: c.DiscountPercent,
		ExpiresAt:       formatTime(c.ExpiresAt),
		MaxUses:         c.MaxUses,
		UsedCount:       c.UsedCount,
		IsActive:        c.IsActive,
	}
}
