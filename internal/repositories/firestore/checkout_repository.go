package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/myshop/api/internal/domain"
	pfirestore "github.com/myshop/api/internal/platform/firestore"
	"github.com/myshop/api/internal/repositories"
)

// CheckoutRepository executes the atomic order commit in a single Firestore
// transaction: stock depletion, coupon redemption, order creation and cart
// clearing succeed or fail together.
type CheckoutRepository struct {
	provider *pfirestore.Provider
}

// NewCheckoutRepository constructs a Firestore-backed checkout repository.
func NewCheckoutRepository(provider *pfirestore.Provider) (*CheckoutRepository, error) {
	if provider == nil {
		return nil, errors.New("checkout repository requires firestore provider")
	}
	return &CheckoutRepository{provider: provider}, nil
}

// Commit runs the order commit transaction. A previously committed order for
// the same payment session is returned unchanged with Replayed set, making
// the commit idempotent per payment session.
func (r *CheckoutRepository) Commit(ctx context.Context, req repositories.CheckoutCommitRequest) (repositories.CheckoutCommitResult, error) {
	order := req.Order
	if strings.TrimSpace(order.ID) == "" {
		return repositories.CheckoutCommitResult{}, errors.New("checkout repository: order id is required")
	}
	if strings.TrimSpace(order.UserID) == "" {
		return repositories.CheckoutCommitResult{}, errors.New("checkout repository: user id is required")
	}
	if strings.TrimSpace(order.PaymentSessionID) == "" {
		return repositories.CheckoutCommitResult{}, errors.New("checkout repository: payment session id is required")
	}
	if len(order.Lines) == 0 {
		return repositories.CheckoutCommitResult{}, errors.New("checkout repository: order has no lines")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return repositories.CheckoutCommitResult{}, err
	}

	now := req.Now.UTC()
	if now.IsZero() {
		now = time.Now().UTC()
	}
	couponCode := domain.NormalizeCouponCode(req.CouponCode)

	var result repositories.CheckoutCommitResult
	err = pfirestore.RunTransaction(ctx, client, func(ctx context.Context, tx *firestore.Transaction) error {
		result = repositories.CheckoutCommitResult{}

		// Reads first: Firestore transactions forbid reads after writes.
		existing, err := findOrderBySession(tx, client, order.PaymentSessionID)
		if err != nil {
			return err
		}
		if existing != nil {
			result.Order = *existing
			result.Replayed = true
			result.CouponApplied = existing.Coupon != nil
			return nil
		}

		productRefs := make([]*firestore.DocumentRef, 0, len(order.Lines))
		productDocs := make([]productDocument, 0, len(order.Lines))
		for _, line := range order.Lines {
			ref := client.Collection(productCollection).Doc(line.ProductID)
			snap, err := tx.Get(ref)
			if err != nil {
				return fmt.Errorf("checkout: read product %s: %w", line.ProductID, err)
			}
			var doc productDocument
			if err := snap.DataTo(&doc); err != nil {
				return fmt.Errorf("checkout: decode product %s: %w", line.ProductID, err)
			}
			productRefs = append(productRefs, ref)
			productDocs = append(productDocs, doc)
		}

		var couponRef *firestore.DocumentRef
		var coupon couponDocument
		couponFound := false
		if couponCode != "" {
			couponRef = client.Collection(couponCollection).Doc(couponCode)
			snap, err := tx.Get(couponRef)
			if err == nil {
				if err := snap.DataTo(&coupon); err != nil {
					return fmt.Errorf("checkout: decode coupon %s: %w", couponCode, err)
				}
				couponFound = true
			} else if !isNotFound(err) {
				return fmt.Errorf("checkout: read coupon %s: %w", couponCode, err)
			}
		}

		// Stock depletes to at most zero; committed lines keep the ordered
		// quantity even when stock ran short.
		for i, line := range order.Lines {
			doc := productDocs[i]
			depleted := line.Quantity
			if doc.Stock < depleted {
				depleted = doc.Stock
			}
			doc.Stock -= depleted
			doc.IsActive = doc.Stock > 0
			doc.UpdatedAt = now
			if err := tx.Set(productRefs[i], doc); err != nil {
				return fmt.Errorf("checkout: deplete product %s: %w", line.ProductID, err)
			}
			result.StockAdjustments = append(result.StockAdjustments, repositories.StockAdjustment{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Depleted:  depleted,
			})
		}

		// A coupon that became unredeemable since pricing degrades the order
		// to its undiscounted total instead of failing the whole commit.
		committed := order
		if couponCode != "" {
			redeemable := couponFound && couponFromDocument(couponCode, coupon).Redeemable(now)
			if redeemable {
				coupon.UsedCount++
				coupon.UpdatedAt = now
				if err := tx.Set(couponRef, coupon); err != nil {
					return fmt.Errorf("checkout: redeem coupon %s: %w", couponCode, err)
				}
				result.CouponApplied = true
			} else {
				committed.Coupon = nil
				committed.TotalAmount = committed.Subtotal
			}
		}

		committed.CreatedAt = now
		committed.UpdatedAt = now
		orderRef := client.Collection(orderCollection).Doc(committed.ID)
		if err := tx.Create(orderRef, orderToDocument(committed)); err != nil {
			return fmt.Errorf("checkout: create order %s: %w", committed.ID, err)
		}

		cartRef := client.Collection(cartCollection).Doc(committed.UserID)
		if err := tx.Delete(cartRef); err != nil {
			return fmt.Errorf("checkout: clear cart for %s: %w", committed.UserID, err)
		}

		result.Order = committed
		return nil
	})
	if err != nil {
		return repositories.CheckoutCommitResult{}, err
	}
	return result, nil
}

func findOrderBySession(tx *firestore.Transaction, client *firestore.Client, sessionID string) (*domain.Order, error) {
	query := client.Collection(orderCollection).
		Where("paymentSessionId", "==", sessionID).
		Limit(1)

	iter := tx.Documents(query)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checkout: lookup session %s: %w", sessionID, err)
	}

	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("checkout: decode order %s: %w", snap.Ref.ID, err)
	}
	order := orderFromDocument(snap.Ref.ID, doc)
	return &order, nil
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	wrapped := pfirestore.WrapError("", err)
	if errors.As(wrapped, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}

var _ repositories.CheckoutRepository = (*CheckoutRepository)(nil)
