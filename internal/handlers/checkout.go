package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/myshop/api/internal/platform/httpx"
	"github.com/myshop/api/internal/services"
)

// CheckoutHandlers serves PSP session creation for the authenticated user.
type CheckoutHandlers struct {
	checkout services.CheckoutService
}

// NewCheckoutHandlers builds the checkout handlers.
func NewCheckoutHandlers(checkout services.CheckoutService) (*CheckoutHandlers, error) {
	if checkout == nil {
		return nil, errors.New("handlers: checkout service is required")
	}
	return &CheckoutHandlers{checkout: checkout}, nil
}

// Routes registers the checkout endpoints.
func (h *CheckoutHandlers) Routes() RouteRegistrar {
	return func(r chi.Router) {
		r.Post("/session", h.createSession)
	}
}

type createSessionRequest struct {
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

type createSessionResponse struct {
	SessionID   string `json:"sessionId"`
	Provider    string `json:"provider"`
	RedirectURL string `json:"redirectUrl"`
	ExpiresAt   string `json:"expiresAt,omitempty"`
}

func (h *CheckoutHandlers) createSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var req createSessionRequest
	if err := decodeBody(r, defaultMaxBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	session, err := h.checkout.CreateSession(ctx, services.CreateCheckoutSessionCommand{
		UserID:     identity.UID,
		Email:      identity.Email,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCheckoutInvalidInput):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid checkout input", http.StatusBadRequest))
		case errors.Is(err, services.ErrCheckoutEmptyCart):
			httpx.WriteError(ctx, w, httpx.NewError("empty_cart", "cart has no purchasable items", http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "unable to create checkout session", http.StatusInternalServerError))
		}
		return
	}

	resp := createSessionResponse{
		SessionID:   session.ID,
		Provider:    session.Provider,
		RedirectURL: session.RedirectURL,
	}
	if !session.ExpiresAt.IsZero() {
		resp.ExpiresAt = session.ExpiresAt.UTC().Format(time.RFC3339)
	}
	writeJSONResponse(w, http.StatusCreated, resp)
}
