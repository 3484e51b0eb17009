package services

import (
	"context"
	"errors"
	"sync"
	"time"

	domain "github.com/myshop/api/internal/domain"
	"github.com/myshop/api/internal/payments"
	"github.com/myshop/api/internal/repositories"
)

// repositoryErrorStub satisfies repositories.RepositoryError for tests.
type repositoryErrorStub struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *repositoryErrorStub) Error() string       { return "repository error stub" }
func (e *repositoryErrorStub) IsNotFound() bool    { return e.notFound }
func (e *repositoryErrorStub) IsConflict() bool    { return e.conflict }
func (e *repositoryErrorStub) IsUnavailable() bool { return e.unavailable }

type stubProductRepository struct {
	findFunc    func(ctx context.Context, id string) (domain.Product, error)
	insertFunc  func(ctx context.Context, p domain.Product) error
	updateFunc  func(ctx context.Context, p domain.Product) error
	listFunc    func(ctx context.Context, f repositories.ProductListFilter) ([]domain.Product, error)
	depleteFunc func(ctx context.Context, id string, qty int) (int, error)
	deleteFunc  func(ctx context.Context, id string) error
}

func (s *stubProductRepository) Insert(ctx context.Context, p domain.Product) error {
	if s.insertFunc == nil {
		return nil
	}
	return s.insertFunc(ctx, p)
}

func (s *stubProductRepository) Update(ctx context.Context, p domain.Product) error {
	if s.updateFunc == nil {
		return nil
	}
	return s.updateFunc(ctx, p)
}

func (s *stubProductRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	if s.findFunc == nil {
		return domain.Product{}, &repositoryErrorStub{notFound: true}
	}
	return s.findFunc(ctx, id)
}

func (s *stubProductRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	products := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		p, err := s.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (s *stubProductRepository) List(ctx context.Context, f repositories.ProductListFilter) ([]domain.Product, error) {
	if s.listFunc == nil {
		return nil, nil
	}
	return s.listFunc(ctx, f)
}

func (s *stubProductRepository) DepleteStock(ctx context.Context, id string, qty int) (int, error) {
	if s.depleteFunc == nil {
		return 0, errors.New("deplete not stubbed")
	}
	return s.depleteFunc(ctx, id, qty)
}

func (s *stubProductRepository) Delete(ctx context.Context, id string) error {
	if s.deleteFunc == nil {
		return nil
	}
	return s.deleteFunc(ctx, id)
}

type stubCouponRepository struct {
	findFunc   func(ctx context.Context, code string) (domain.Coupon, error)
	upsertFunc func(ctx context.Context, c domain.Coupon) error
	listFunc   func(ctx context.Context) ([]domain.Coupon, error)
	redeemFunc func(ctx context.Context, code string, now time.Time) (repositories.CouponRedemption, error)
	deleteFunc func(ctx context.Context, code string) error
}

func (s *stubCouponRepository) Upsert(ctx context.Context, c domain.Coupon) error {
	if s.upsertFunc == nil {
		return nil
	}
	return s.upsertFunc(ctx, c)
}

func (s *stubCouponRepository) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	if s.findFunc == nil {
		return domain.Coupon{}, &repositoryErrorStub{notFound: true}
	}
	return s.findFunc(ctx, code)
}

func (s *stubCouponRepository) List(ctx context.Context) ([]domain.Coupon, error) {
	if s.listFunc == nil {
		return nil, nil
	}
	return s.listFunc(ctx)
}

func (s *stubCouponRepository) TryRedeem(ctx context.Context, code string, now time.Time) (repositories.CouponRedemption, error) {
	if s.redeemFunc == nil {
		return repositories.CouponRedemption{}, nil
	}
	return s.redeemFunc(ctx, code, now)
}

func (s *stubCouponRepository) Delete(ctx context.Context, code string) error {
	if s.deleteFunc == nil {
		return nil
	}
	return s.deleteFunc(ctx, code)
}

type stubCartRepository struct {
	getFunc   func(ctx context.Context, userID string) (domain.Cart, error)
	saveFunc  func(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	clearFunc func(ctx context.Context, userID string) error
}

func (s *stubCartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	if s.getFunc == nil {
		return domain.Cart{}, &repositoryErrorStub{notFound: true}
	}
	return s.getFunc(ctx, userID)
}

func (s *stubCartRepository) Save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if s.saveFunc == nil {
		return cart, nil
	}
	return s.saveFunc(ctx, cart)
}

func (s *stubCartRepository) Clear(ctx context.Context, userID string) error {
	if s.clearFunc == nil {
		return nil
	}
	return s.clearFunc(ctx, userID)
}

type stubOrderRepository struct {
	findFunc         func(ctx context.Context, id string) (domain.Order, error)
	listByUserFunc   func(ctx context.Context, userID string, limit int) ([]domain.Order, error)
	listFunc         func(ctx context.Context, f repositories.OrderListFilter) ([]domain.Order, error)
	updateStatusFunc func(ctx context.Context, id string, update repositories.OrderStatusUpdate) (domain.Order, error)
}

func (s *stubOrderRepository) FindByID(ctx context.Context, id string) (domain.Order, error) {
	if s.findFunc == nil {
		return domain.Order{}, &repositoryErrorStub{notFound: true}
	}
	return s.findFunc(ctx, id)
}

func (s *stubOrderRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	if s.listByUserFunc == nil {
		return nil, nil
	}
	return s.listByUserFunc(ctx, userID, limit)
}

func (s *stubOrderRepository) List(ctx context.Context, f repositories.OrderListFilter) ([]domain.Order, error) {
	if s.listFunc == nil {
		return nil, nil
	}
	return s.listFunc(ctx, f)
}

func (s *stubOrderRepository) UpdateStatus(ctx context.Context, id string, update repositories.OrderStatusUpdate) (domain.Order, error) {
	if s.updateStatusFunc == nil {
		return domain.Order{}, errors.New("update status not stubbed")
	}
	return s.updateStatusFunc(ctx, id, update)
}

type stubCheckoutRepository struct {
	commitFunc func(ctx context.Context, req repositories.CheckoutCommitRequest) (repositories.CheckoutCommitResult, error)
}

func (s *stubCheckoutRepository) Commit(ctx context.Context, req repositories.CheckoutCommitRequest) (repositories.CheckoutCommitResult, error) {
	if s.commitFunc == nil {
		return repositories.CheckoutCommitResult{Order: req.Order}, nil
	}
	return s.commitFunc(ctx, req)
}

type stubPaymentProvider struct {
	createFunc func(ctx context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error)
	lookupFunc func(ctx context.Context, sessionID string) (payments.SessionDetails, error)
	refundFunc func(ctx context.Context, req payments.RefundRequest) error
}

func (s *stubPaymentProvider) CreateCheckoutSession(ctx context.Context, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error) {
	if s.createFunc == nil {
		return payments.CheckoutSession{ID: "cs_stub"}, nil
	}
	return s.createFunc(ctx, req)
}

func (s *stubPaymentProvider) LookupSession(ctx context.Context, sessionID string) (payments.SessionDetails, error) {
	if s.lookupFunc == nil {
		return payments.SessionDetails{ID: sessionID, Status: payments.StatusSucceeded}, nil
	}
	return s.lookupFunc(ctx, sessionID)
}

func (s *stubPaymentProvider) Refund(ctx context.Context, req payments.RefundRequest) error {
	if s.refundFunc == nil {
		return nil
	}
	return s.refundFunc(ctx, req)
}

type stubEventPublisher struct {
	mu       sync.Mutex
	messages []OrderEventMessage
	err      error
}

func (s *stubEventPublisher) PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.messages = append(s.messages, message)
	return "msg-1", nil
}

func (s *stubEventPublisher) published() []OrderEventMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OrderEventMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// eventRecorder captures structured log events emitted by services.
type eventRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *eventRecorder) log(_ context.Context, event string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == event {
			return true
		}
	}
	return false
}
