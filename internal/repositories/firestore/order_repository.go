package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/myshop/api/internal/domain"
	pfirestore "github.com/myshop/api/internal/platform/firestore"
	"github.com/myshop/api/internal/repositories"
)

// OrderRepository reads and mutates committed orders. Order creation happens
// inside CheckoutRepository.Commit.
type OrderRepository struct {
	base     *pfirestore.BaseRepository[orderDocument]
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		base:     pfirestore.NewBaseRepository[orderDocument](provider, orderCollection, nil, nil),
		provider: provider,
	}, nil
}

// FindByID loads a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return orderFromDocument(doc.ID, doc.Data), nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, errors.New("order repository: user id is required")
	}
	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		query = query.Where("userId", "==", uid).OrderBy("createdAt", firestore.Desc)
		if limit > 0 {
			query = query.Limit(limit)
		}
		return query
	})
	if err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, orderFromDocument(doc.ID, doc.Data))
	}
	return orders, nil
}

// List returns orders for the admin surface, newest first.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		if filter.Status != "" {
			query = query.Where("status", "==", string(filter.Status))
		}
		if uid := strings.TrimSpace(filter.UserID); uid != "" {
			query = query.Where("userId", "==", uid)
		}
		query = query.OrderBy("createdAt", firestore.Desc)
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		return query
	})
	if err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, orderFromDocument(doc.ID, doc.Data))
	}
	return orders, nil
}

// UpdateStatus transitions the order status and appends the tracking event
// inside a transaction so concurrent transitions cannot interleave.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, update repositories.OrderStatusUpdate) (domain.Order, error) {
	ref, err := r.base.DocumentRef(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	at := update.At.UTC()
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var updated domain.Order
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return err
		}

		// Re-validate against the status this transaction actually reads.
		// A concurrent transition that committed after the caller's read
		// must not be silently overwritten.
		current := domain.OrderStatus(doc.Status)
		if !update.Force && !domain.CanTransition(current, update.Status) {
			return pfirestore.NewConflictError("order repository: update status",
				fmt.Errorf("transition %s -> %s is not allowed", current, update.Status))
		}

		doc.Status = string(update.Status)
		doc.TrackingHistory = append(doc.TrackingHistory, trackingEventDocument{
			Status: string(update.Tracking.Status),
			At:     update.Tracking.At.UTC(),
			Note:   update.Tracking.Note,
		})
		doc.UpdatedAt = at

		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		updated = orderFromDocument(snap.Ref.ID, doc)
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return updated, nil
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)
