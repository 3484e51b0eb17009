package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/myshop/api/internal/domain"
)

type stubRenderer struct {
	renderFunc func(order domain.Order) ([]byte, error)
	calls      int
}

func (s *stubRenderer) Render(order domain.Order) ([]byte, error) {
	s.calls++
	if s.renderFunc == nil {
		return []byte("%PDF-stub"), nil
	}
	return s.renderFunc(order)
}

type stubInvoiceStore struct {
	uploadFunc func(ctx context.Context, orderID string, pdf []byte) (string, error)
}

func (s *stubInvoiceStore) UploadInvoice(ctx context.Context, orderID string, pdf []byte) (string, error) {
	if s.uploadFunc == nil {
		return "orders/" + orderID + "/invoice-" + orderID + ".pdf", nil
	}
	return s.uploadFunc(ctx, orderID, pdf)
}

func newInvoiceService(t *testing.T, deps OrderInvoiceServiceDeps) *OrderInvoiceService {
	t.Helper()
	service, err := NewOrderInvoiceService(deps)
	if err != nil {
		t.Fatalf("NewOrderInvoiceService: %v", err)
	}
	return service
}

func invoiceOrder() domain.Order {
	return domain.Order{
		ID:          "ord_INV1",
		UserID:      "owner-1",
		Email:       "owner@example.com",
		TotalAmount: 2700,
		Status:      domain.OrderStatusPending,
	}
}

func TestRenderReturnsDocument(t *testing.T) {
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, id string) (domain.Order, error) { return invoiceOrder(), nil },
	}
	publisher := &stubEventPublisher{}

	service := newInvoiceService(t, OrderInvoiceServiceDeps{
		Orders:   orders,
		Renderer: &stubRenderer{},
		Store:    &stubInvoiceStore{},
		Events:   publisher,
		Clock:    func() time.Time { return time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC) },
	})

	doc, err := service.Render(context.Background(), RenderInvoiceCommand{OrderID: "ord_INV1", RequesterID: "owner-1"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if doc.FileName != "invoice-ord_INV1.pdf" {
		t.Errorf("file name = %q", doc.FileName)
	}
	if doc.ContentType != "application/pdf" {
		t.Errorf("content type = %q", doc.ContentType)
	}
	if len(doc.Data) == 0 {
		t.Error("expected pdf bytes")
	}

	events := publisher.published()
	if len(events) != 1 || events[0].Type != OrderEventInvoiceRendered {
		t.Errorf("published events = %+v", events)
	}
}

func TestRenderEnforcesOwnership(t *testing.T) {
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, id string) (domain.Order, error) { return invoiceOrder(), nil },
	}
	renderer := &stubRenderer{}
	service := newInvoiceService(t, OrderInvoiceServiceDeps{Orders: orders, Renderer: renderer})
	ctx := context.Background()

	if _, err := service.Render(ctx, RenderInvoiceCommand{OrderID: "ord_INV1", RequesterID: "stranger"}); !errors.Is(err, ErrOrderAccessDenied) {
		t.Errorf("stranger err = %v, want ErrOrderAccessDenied", err)
	}
	if renderer.calls != 0 {
		t.Error("renderer must not run for denied access")
	}
	if _, err := service.Render(ctx, RenderInvoiceCommand{OrderID: "ord_INV1", RequesterID: "stranger", Admin: true}); err != nil {
		t.Errorf("admin err = %v", err)
	}
}

func TestRenderUploadFailureIsNonFatal(t *testing.T) {
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, id string) (domain.Order, error) { return invoiceOrder(), nil },
	}
	logs := &eventRecorder{}
	store := &stubInvoiceStore{
		uploadFunc: func(ctx context.Context, orderID string, pdf []byte) (string, error) {
			return "", errors.New("bucket unavailable")
		},
	}

	service := newInvoiceService(t, OrderInvoiceServiceDeps{
		Orders:   orders,
		Renderer: &stubRenderer{},
		Store:    store,
		Logger:   logs.log,
	})

	doc, err := service.Render(context.Background(), RenderInvoiceCommand{OrderID: "ord_INV1", RequesterID: "owner-1"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(doc.Data) == 0 {
		t.Error("expected pdf bytes despite upload failure")
	}
	if !logs.has("invoice.upload_failed") {
		t.Error("expected invoice.upload_failed log event")
	}
}

// Rendering twice always prints the same committed total; the invoice never
// reprices from the live catalogue.
func TestRenderTotalStableAcrossRenders(t *testing.T) {
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, id string) (domain.Order, error) { return invoiceOrder(), nil },
	}

	var totals []domain.Money
	renderer := &stubRenderer{
		renderFunc: func(order domain.Order) ([]byte, error) {
			totals = append(totals, order.TotalAmount)
			return []byte("%PDF-stub"), nil
		},
	}
	service := newInvoiceService(t, OrderInvoiceServiceDeps{Orders: orders, Renderer: renderer})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := service.Render(ctx, RenderInvoiceCommand{OrderID: "ord_INV1", RequesterID: "owner-1"}); err != nil {
			t.Fatalf("Render %d: %v", i, err)
		}
	}
	if len(totals) != 2 || totals[0] != totals[1] {
		t.Errorf("totals = %v, want two identical values", totals)
	}
}

func TestRenderFailureIsRenderingError(t *testing.T) {
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, id string) (domain.Order, error) { return invoiceOrder(), nil },
	}
	renderer := &stubRenderer{
		renderFunc: func(order domain.Order) ([]byte, error) { return nil, errors.New("font missing") },
	}
	service := newInvoiceService(t, OrderInvoiceServiceDeps{Orders: orders, Renderer: renderer})

	_, err := service.Render(context.Background(), RenderInvoiceCommand{OrderID: "ord_INV1", RequesterID: "owner-1"})
	if !errors.Is(err, ErrInvoiceRender) {
		t.Fatalf("err = %v, want ErrInvoiceRender", err)
	}
}
