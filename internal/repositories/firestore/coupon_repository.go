package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/myshop/api/internal/domain"
	pfirestore "github.com/myshop/api/internal/platform/firestore"
	"github.com/myshop/api/internal/repositories"
)

// CouponRepository persists coupons keyed by their normalised code.
type CouponRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[couponDocument]
}

// NewCouponRepository constructs a Firestore-backed coupon repository.
func NewCouponRepository(provider *pfirestore.Provider) (*CouponRepository, error) {
	if provider == nil {
		return nil, errors.New("coupon repository requires firestore provider")
	}
	return &CouponRepository{
		provider: provider,
		base:     pfirestore.NewBaseRepository[couponDocument](provider, couponCollection, nil, nil),
	}, nil
}

// Upsert stores the coupon under its normalised code.
func (r *CouponRepository) Upsert(ctx context.Context, coupon domain.Coupon) error {
	code := domain.NormalizeCouponCode(coupon.Code)
	if code == "" {
		return errors.New("coupon repository: code is required")
	}
	coupon.Code = code
	_, err := r.base.Set(ctx, code, couponToDocument(coupon))
	return err
}

// FindByCode loads a coupon, normalising the code before lookup.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	normalized := domain.NormalizeCouponCode(code)
	if normalized == "" {
		return domain.Coupon{}, errors.New("coupon repository: code is required")
	}
	doc, err := r.base.Get(ctx, normalized)
	if err != nil {
		return domain.Coupon{}, err
	}
	return couponFromDocument(doc.ID, doc.Data), nil
}

// List returns all coupons ordered by expiry.
func (r *CouponRepository) List(ctx context.Context) ([]domain.Coupon, error) {
	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.OrderBy("expiresAt", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	coupons := make([]domain.Coupon, 0, len(docs))
	for _, doc := range docs {
		coupons = append(coupons, couponFromDocument(doc.ID, doc.Data))
	}
	return coupons, nil
}

// TryRedeem atomically consumes one use of the coupon. A coupon that is
// missing, inactive, expired or fully used reports Applied false without
// error; the caller decides whether that degrades or fails the flow.
func (r *CouponRepository) TryRedeem(ctx context.Context, code string, now time.Time) (repositories.CouponRedemption, error) {
	normalized := domain.NormalizeCouponCode(code)
	if normalized == "" {
		return repositories.CouponRedemption{}, errors.New("coupon repository: code is required")
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	client, err := r.provider.Client(ctx)
	if err != nil {
		return repositories.CouponRedemption{}, err
	}

	var redemption repositories.CouponRedemption
	err = pfirestore.RunTransaction(ctx, client, func(ctx context.Context, tx *firestore.Transaction) error {
		redemption = repositories.CouponRedemption{}

		ref := client.Collection(couponCollection).Doc(normalized)
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
		var doc couponDocument
		if err := snap.DataTo(&doc); err != nil {
			return err
		}

		coupon := couponFromDocument(snap.Ref.ID, doc)
		if !coupon.Redeemable(now) {
			return nil
		}

		doc.UsedCount++
		doc.UpdatedAt = now
		if err := tx.Set(ref, doc); err != nil {
			return err
		}

		redemption = repositories.CouponRedemption{Applied: true, DiscountPercent: doc.DiscountPercent}
		return nil
	})
	if err != nil {
		return repositories.CouponRedemption{}, pfirestore.WrapError("coupon redemption", err)
	}
	return redemption, nil
}

// Delete removes a coupon.
func (r *CouponRepository) Delete(ctx context.Context, code string) error {
	normalized := domain.NormalizeCouponCode(code)
	if normalized == "" {
		return errors.New("coupon repository: code is required")
	}
	return r.base.Delete(ctx, normalized)
}

var _ repositories.CouponRepository = (*CouponRepository)(nil)
