package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/myshop/api/internal/domain"
	pfirestore "github.com/myshop/api/internal/platform/firestore"
	"github.com/myshop/api/internal/repositories"
)

// CartRepository persists one cart document per user.
type CartRepository struct {
	base *pfirestore.BaseRepository[cartDocument]
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{
		base: pfirestore.NewBaseRepository[cartDocument](provider, cartCollection, nil, nil),
	}, nil
}

// Get loads the cart for the given user ID.
func (r *CartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}
	doc, err := r.base.Get(ctx, uid)
	if err != nil {
		return domain.Cart{}, err
	}
	return cartFromDocument(doc.ID, doc.Data), nil
}

// Save upserts the cart using the user ID as document identifier.
func (r *CartRepository) Save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	uid := strings.TrimSpace(cart.UserID)
	if uid == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}
	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = time.Now().UTC()
	}

	result, err := r.base.Set(ctx, uid, cartToDocument(cart))
	if err != nil {
		return domain.Cart{}, err
	}
	cart.UserID = uid
	cart.UpdatedAt = result.UpdateTime
	return cart, nil
}

// Clear removes the cart document. Missing carts are not an error.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return errors.New("cart repository: user id is required")
	}
	return r.base.Delete(ctx, uid)
}

var _ repositories.CartRepository = (*CartRepository)(nil)
