package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/myshop/api/internal/platform/httpx"
	"github.com/myshop/api/internal/repositories"
	"github.com/myshop/api/internal/services"
)

// ProductHandlers serves the public catalog surface: browsing only, no writes.
type ProductHandlers struct {
	catalog services.CatalogService
}

// NewProductHandlers builds the public catalog handlers.
func NewProductHandlers(catalog services.CatalogService) (*ProductHandlers, error) {
	if catalog == nil {
		return nil, errors.New("handlers: catalog service is required")
	}
	return &ProductHandlers{catalog: catalog}, nil
}

// Routes registers the public catalog endpoints.
func (h *ProductHandlers) Routes() RouteRegistrar {
	return func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{productID}", h.get)
	}
}

func (h *ProductHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := repositories.ProductListFilter{
		Category:   strings.TrimSpace(r.URL.Query().Get("category")),
		Brand:      strings.TrimSpace(r.URL.Query().Get("brand")),
		ActiveOnly: true,
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

func (h *ProductHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product does not exist", http.StatusNotFound))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "unable to load product", http.StatusInternalServerError))
		return
	}
	writeJSONResponse(w, http.StatusOK, buildProductPayload(product))
}
