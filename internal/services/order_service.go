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

// StorefrontOrderService exposes order reads and lifecycle transitions.
// Orders are created exclusively by checkout; this service never inserts.
type StorefrontOrderService struct {
	orders repositories.OrderRepository
	events OrderEventPublisher
	clock  func() time.Time
	logger func(context.Context, string, map[string]any)
}

// StorefrontOrderServiceDeps enumerates the order service dependencies.
type StorefrontOrderServiceDeps struct {
	Orders repositories.OrderRepository
	Events OrderEventPublisher
	Clock  func() time.Time
	Logger func(context.Context, string, map[string]any)
}

// NewStorefrontOrderService constructs a StorefrontOrderService.
func NewStorefrontOrderService(deps StorefrontOrderServiceDeps) (*StorefrontOrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &StorefrontOrderService{
		orders: deps.Orders,
		events: deps.Events,
		clock:  func() time.Time { return clock().UTC() },
		logger: logger,
	}, nil
}

// GetOrder loads an order, enforcing ownership for non-admin requesters.
func (s *StorefrontOrderService) GetOrder(ctx context.Context, cmd OrderAccessCommand) (Order, error) {
	if strings.TrimSpace(cmd.OrderID) == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, cmd.OrderID)
		}
		return Order{}, fmt.Errorf("order: load: %w", err)
	}
	if !cmd.Admin && order.UserID != cmd.RequesterID {
		return Order{}, fmt.Errorf("%w: order %s", ErrOrderAccessDenied, cmd.OrderID)
	}
	return order, nil
}

// ListOrders returns the user's orders, newest first.
func (s *StorefrontOrderService) ListOrders(ctx context.Context, userID string, limit int) ([]Order, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	orders, err := s.orders.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("order: list: %w", err)
	}
	return orders, nil
}

// ListAllOrders queries orders across users for the admin surface.
func (s *StorefrontOrderService) ListAllOrders(ctx context.Context, filter OrderListFilter) ([]Order, error) {
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("order: list all: %w", err)
	}
	return orders, nil
}

// Advance moves an order along its lifecycle, appending a tracking event.
// Illegal transitions fail unless Force is set, in which case the override is
// applied and logged distinctly.
func (s *StorefrontOrderService) Advance(ctx context.Context, cmd AdvanceOrderCommand) (Order, error) {
	if strings.TrimSpace(cmd.OrderID) == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !domain.ValidOrderStatus(cmd.Target) {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Target)
	}

	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, cmd.OrderID)
		}
		return Order{}, fmt.Errorf("order: load: %w", err)
	}

	if !domain.CanTransition(order.Status, cmd.Target) {
		if !cmd.Force {
			return Order{}, fmt.Errorf("%w: %s -> %s", ErrOrderInvalidTransition, order.Status, cmd.Target)
		}
		s.logger(ctx, "order.transition.forced", map[string]any{
			"orderId": cmd.OrderID,
			"from":    string(order.Status),
			"to":      string(cmd.Target),
			"actorId": cmd.ActorID,
		})
	}

	now := s.clock()
	note := strings.TrimSpace(cmd.Note)
	if note == "" {
		note = fmt.Sprintf("Status updated to %s", cmd.Target)
	}

	updated, err := s.orders.UpdateStatus(ctx, cmd.OrderID, repositories.OrderStatusUpdate{
		Status:   cmd.Target,
		Tracking: domain.TrackingEvent{Status: cmd.Target, At: now, Note: note},
		At:       now,
		Force:    cmd.Force,
	})
	if err != nil {
		if repositories.IsNotFound(err) {
			return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, cmd.OrderID)
		}
		// The repository re-validates the transition against the status it
		// reads inside the transaction, so a concurrent transition that
		// landed after our initial read surfaces here as a conflict.
		if repositories.IsConflict(err) {
			return Order{}, fmt.Errorf("%w: %s", ErrOrderInvalidTransition, cmd.Target)
		}
		return Order{}, fmt.Errorf("order: update status: %w", err)
	}

	s.logger(ctx, "order.status_changed", map[string]any{
		"orderId": cmd.OrderID,
		"from":    string(order.Status),
		"to":      string(cmd.Target),
		"actorId": cmd.ActorID,
	})
	s.publish(ctx, OrderEventMessage{
		Type:       OrderEventStatusChanged,
		OrderID:    updated.ID,
		UserID:     updated.UserID,
		Status:     string(updated.Status),
		OccurredAt: now,
	})
	return updated, nil
}

func (s *StorefrontOrderService) publish(ctx context.Context, message OrderEventMessage) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, message); err != nil {
		s.logger(ctx, "order.event_publish_failed", map[string]any{
			"eventType": message.Type,
			"orderId":   message.OrderID,
			"error":     err.Error(),
		})
	}
}

var _ OrderService = (*StorefrontOrderService)(nil)
