package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/myshop/api/internal/domain"
	"github.com/myshop/api/internal/repositories"
)

// InvoiceRenderer produces the invoice PDF for an order.
type InvoiceRenderer interface {
	Render(order domain.Order) ([]byte, error)
}

// InvoiceStore persists rendered invoices to object storage.
type InvoiceStore interface {
	UploadInvoice(ctx context.Context, orderID string, pdf []byte) (string, error)
}

// OrderInvoiceService renders invoices on demand from the persisted order.
// The total printed is the committed TotalAmount; it is never recomputed from
// live product prices, so repeated renders always agree.
type OrderInvoiceService struct {
	orders   repositories.OrderRepository
	renderer InvoiceRenderer
	store    InvoiceStore
	events   OrderEventPublisher
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// OrderInvoiceServiceDeps enumerates the invoice service dependencies.
type OrderInvoiceServiceDeps struct {
	Orders   repositories.OrderRepository
	Renderer InvoiceRenderer
	Store    InvoiceStore
	Events   OrderEventPublisher
	Clock    func() time.Time
	Logger   func(context.Context, string, map[string]any)
}

// NewOrderInvoiceService constructs an OrderInvoiceService.
func NewOrderInvoiceService(deps OrderInvoiceServiceDeps) (*OrderInvoiceService, error) {
	if deps.Orders == nil {
		return nil, errors.New("invoice service: order repository is required")
	}
	if deps.Renderer == nil {
		return nil, errors.New("invoice service: renderer is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &OrderInvoiceService{
		orders:   deps.Orders,
		renderer: deps.Renderer,
		store:    deps.Store,
		events:   deps.Events,
		clock:    func() time.Time { return clock().UTC() },
		logger:   logger,
	}, nil
}

// Render produces the invoice PDF for an order the requester may access.
// A copy is uploaded to object storage; an upload failure is logged but does
// not fail the request since the invoice can always be re-rendered.
func (s *OrderInvoiceService) Render(ctx context.Context, cmd RenderInvoiceCommand) (InvoiceDocument, error) {
	if strings.TrimSpace(cmd.OrderID) == "" {
		return InvoiceDocument{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return InvoiceDocument{}, fmt.Errorf("%w: %s", ErrOrderNotFound, cmd.OrderID)
		}
		return InvoiceDocument{}, fmt.Errorf("invoice: load order: %w", err)
	}
	if !cmd.Admin && order.UserID != cmd.RequesterID {
		return InvoiceDocument{}, fmt.Errorf("%w: order %s", ErrOrderAccessDenied, cmd.OrderID)
	}

	pdf, err := s.renderer.Render(order)
	if err != nil {
		return InvoiceDocument{}, fmt.Errorf("%w: order %s: %v", ErrInvoiceRender, cmd.OrderID, err)
	}

	if s.store != nil {
		if _, err := s.store.UploadInvoice(ctx, order.ID, pdf); err != nil {
			s.logger(ctx, "invoice.upload_failed", map[string]any{
				"orderId": order.ID,
				"error":   err.Error(),
			})
		}
	}

	s.logger(ctx, "invoice.rendered", map[string]any{"orderId": order.ID, "bytes": len(pdf)})
	s.publish(ctx, OrderEventMessage{
		Type:       OrderEventInvoiceRendered,
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     string(order.Status),
		OccurredAt: s.clock(),
	})

	return InvoiceDocument{
		OrderID:     order.ID,
		FileName:    fmt.Sprintf("invoice-%s.pdf", order.ID),
		ContentType: "application/pdf",
		Data:        pdf,
	}, nil
}

func (s *OrderInvoiceService) publish(ctx context.Context, message OrderEventMessage) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, message); err != nil {
		s.logger(ctx, "invoice.event_publish_failed", map[string]any{
			"eventType": message.Type,
			"orderId":   message.OrderID,
			"error":     err.Error(),
		})
	}
}

var _ InvoiceService = (*OrderInvoiceService)(nil)
