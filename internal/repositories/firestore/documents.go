package firestore

import (
	"time"

	domain "github.com/myshop/api/internal/domain"
)

const (
	productCollection = "products"
	couponCollection  = "coupons"
	cartCollection    = "carts"
	orderCollection   = "orders"
)

type productDocument struct {
	Title       string    `firestore:"title"`
	Description string    `firestore:"description,omitempty"`
	ImageURL    string    `firestore:"imageUrl,omitempty"`
	Category    string    `firestore:"category,omitempty"`
	Brand       string    `firestore:"brand,omitempty"`
	Price       int64     `firestore:"price"`
	Stock       int       `firestore:"stock"`
	IsActive    bool      `firestore:"isActive"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func productToDocument(p domain.Product) productDocument {
	return productDocument{
		Title:       p.Title,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Category:    p.Category,
		Brand:       p.Brand,
		Price:       int64(p.Price),
		Stock:       p.Stock,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
	}
}

func productFromDocument(id string, doc productDocument) domain.Product {
	return domain.Product{
		ID:          id,
		Title:       doc.Title,
		Description: doc.Description,
		ImageURL:    doc.ImageURL,
		Category:    doc.Category,
		Brand:       doc.Brand,
		Price:       domain.Money(doc.Price),
		Stock:       doc.Stock,
		IsActive:    doc.IsActive,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

type couponDocument struct {
	DiscountPercent int       `firestore:"discountPercent"`
	ExpiresAt       time.Time `firestore:"expiresAt"`
	MaxUses         int       `firestore:"maxUses"`
	UsedCount       int       `firestore:"usedCount"`
	IsActive        bool      `firestore:"isActive"`
	CreatedAt       time.Time `firestore:"createdAt"`
	UpdatedAt       time.Time `firestore:"updatedAt"`
}

func couponToDocument(c domain.Coupon) couponDocument {
	return couponDocument{
		DiscountPercent: c.DiscountPercent,
		ExpiresAt:       c.ExpiresAt.UTC(),
		MaxUses:         c.MaxUses,
		UsedCount:       c.UsedCount,
		IsActive:        c.IsActive,
		CreatedAt:       c.CreatedAt.UTC(),
		UpdatedAt:       c.UpdatedAt.UTC(),
	}
}

func couponFromDocument(code string, doc couponDocument) domain.Coupon {
	return domain.Coupon{
		Code:            code,
		DiscountPercent: doc.DiscountPercent,
		ExpiresAt:       doc.ExpiresAt,
		MaxUses:         doc.MaxUses,
		UsedCount:       doc.UsedCount,
		IsActive:        doc.IsActive,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}

type cartLineDocument struct {
	ProductID string `firestore:"productId"`
	Quantity  int    `firestore:"quantity"`
}

type cartDocument struct {
	Email      string             `firestore:"email,omitempty"`
	Lines      []cartLineDocument `firestore:"lines"`
	CouponCode string             `firestore:"couponCode,omitempty"`
	UpdatedAt  time.Time          `firestore:"updatedAt"`
}

func cartToDocument(c domain.Cart) cartDocument {
	lines := make([]cartLineDocument, 0, len(c.Lines))
	for _, line := range c.Lines {
		lines = append(lines, cartLineDocument{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return cartDocument{
		Email:      c.Email,
		Lines:      lines,
		CouponCode: c.CouponCode,
		UpdatedAt:  c.UpdatedAt.UTC(),
	}
}

func cartFromDocument(userID string, doc cartDocument) domain.Cart {
	lines := make([]domain.CartLine, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		lines = append(lines, domain.CartLine{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return domain.Cart{
		UserID:     userID,
		Email:      doc.Email,
		Lines:      lines,
		CouponCode: doc.CouponCode,
		UpdatedAt:  doc.UpdatedAt,
	}
}

type orderLineDocument struct {
	ProductID   string `firestore:"productId"`
	Title       string `firestore:"title"`
	Description string `firestore:"description,omitempty"`
	ImageURL    string `firestore:"imageUrl,omitempty"`
	UnitPrice   int64  `firestore:"unitPrice"`
	Quantity    int    `firestore:"quantity"`
}

type couponSnapshotDocument struct {
	Code            string `firestore:"code"`
	DiscountPercent int    `firestore:"discountPercent"`
}

type trackingEventDocument struct {
	Status string    `firestore:"status"`
	At     time.Time `firestore:"at"`
	Note   string    `firestore:"note,omitempty"`
}

type orderDocument struct {
	UserID           string                  `firestore:"userId"`
	Email            string                  `firestore:"email,omitempty"`
	Lines            []orderLineDocument     `firestore:"lines"`
	Subtotal         int64                   `firestore:"subtotal"`
	TotalAmount      int64                   `firestore:"totalAmount"`
	Coupon           *couponSnapshotDocument `firestore:"coupon,omitempty"`
	PaymentMethod    string                  `firestore:"paymentMethod,omitempty"`
	PaymentSessionID string                  `firestore:"paymentSessionId,omitempty"`
	Status           string                  `firestore:"status"`
	TrackingHistory  []trackingEventDocument `firestore:"trackingHistory"`
	CreatedAt        time.Time               `firestore:"createdAt"`
	UpdatedAt        time.Time               `firestore:"updatedAt"`
}

func orderToDocument(o domain.Order) orderDocument {
	lines := make([]orderLineDocument, 0, len(o.Lines))
	for _, line := range o.Lines {
		lines = append(lines, orderLineDocument{
			ProductID:   line.ProductID,
			Title:       line.Title,
			Description: line.Description,
			ImageURL:    line.ImageURL,
			UnitPrice:   int64(line.UnitPrice),
			Quantity:    line.Quantity,
		})
	}
	history := make([]trackingEventDocument, 0, len(o.TrackingHistory))
	for _, event := range o.TrackingHistory {
		history = append(history, trackingEventDocument{
			Status: string(event.Status),
			At:     event.At.UTC(),
			Note:   event.Note,
		})
	}
	doc := orderDocument{
		UserID:           o.UserID,
		Email:            o.Email,
		Lines:            lines,
		Subtotal:         int64(o.Subtotal),
		TotalAmount:      int64(o.TotalAmount),
		PaymentMethod:    o.PaymentMethod,
		PaymentSessionID: o.PaymentSessionID,
		Status:           string(o.Status),
		TrackingHistory:  history,
		CreatedAt:        o.CreatedAt.UTC(),
		UpdatedAt:        o.UpdatedAt.UTC(),
	}
	if o.Coupon != nil {
		doc.Coupon = &couponSnapshotDocument{
			Code:            o.Coupon.Code,
			DiscountPercent: o.Coupon.DiscountPercent,
		}
	}
	return doc
}

func orderFromDocument(id string, doc orderDocument) domain.Order {
	lines := make([]domain.OrderLine, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		lines = append(lines, domain.OrderLine{
			ProductID:   line.ProductID,
			Title:       line.Title,
			Description: line.Description,
			ImageURL:    line.ImageURL,
			UnitPrice:   domain.Money(line.UnitPrice),
			Quantity:    line.Quantity,
		})
	}
	history := make([]domain.TrackingEvent, 0, len(doc.TrackingHistory))
	for _, event := range doc.TrackingHistory {
		history = append(history, domain.TrackingEvent{
			Status: domain.OrderStatus(event.Status),
			At:     event.At,
			Note:   event.Note,
		})
	}
	order := domain.Order{
		ID:               id,
		UserID:           doc.UserID,
		Email:            doc.Email,
		Lines:            lines,
		Subtotal:         domain.Money(doc.Subtotal),
		TotalAmount:      domain.Money(doc.TotalAmount),
		PaymentMethod:    doc.PaymentMethod,
		PaymentSessionID: doc.PaymentSessionID,
		Status:           domain.OrderStatus(doc.Status),
		TrackingHistory:  history,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
	if doc.Coupon != nil {
		order.Coupon = &domain.CouponSnapshot{
			Code:            doc.Coupon.Code,
			DiscountPercent: doc.Coupon.DiscountPercent,
		}
	}
	return order
}
