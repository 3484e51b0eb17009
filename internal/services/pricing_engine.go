package services

import (
	"errors"
	"fmt"
	"math"

	domain "github.com/myshop/api/internal/domain"
)

var (
	// ErrPricingInvalidInput signals bad pricing data such as a non-positive quantity.
	ErrPricingInvalidInput = errors.New("pricing: invalid input")
)

// PricedLine pairs a live product with the ordered quantity.
type PricedLine struct {
	Product  domain.Product
	Quantity int
}

// PriceQuote is the outcome of pricing a set of lines. All amounts are in
// minor units; the discount is computed from the subtotal in one rounding
// step, never per line.
type PriceQuote struct {
	Lines           []domain.OrderLine
	Subtotal        domain.Money
	DiscountPercent int
	Discount        domain.Money
	Total           domain.Money
}

// Price computes the order totals for the given lines and optional percentage
// discount. Subtotal is the sum of unitPrice x quantity; the discount is
// applied to the subtotal once, rounded half-up; Total never goes negative.
func Price(lines []PricedLine, discountPercent int) (PriceQuote, error) {
	if len(lines) == 0 {
		return PriceQuote{}, fmt.Errorf("%w: no lines to price", ErrPricingInvalidInput)
	}
	if discountPercent < 0 || discountPercent > 100 {
		return PriceQuote{}, fmt.Errorf("%w: discount percent %d out of range", ErrPricingInvalidInput, discountPercent)
	}

	quote := PriceQuote{Lines: make([]domain.OrderLine, 0, len(lines))}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return PriceQuote{}, fmt.Errorf("%w: product %s quantity must be positive", ErrPricingInvalidInput, line.Product.ID)
		}
		if line.Product.Price < 0 {
			return PriceQuote{}, fmt.Errorf("%w: product %s has a negative price", ErrPricingInvalidInput, line.Product.ID)
		}
		if line.Product.Price > 0 && int64(line.Product.Price) > math.MaxInt64/int64(line.Quantity) {
			return PriceQuote{}, fmt.Errorf("%w: product %s line total overflow", ErrPricingInvalidInput, line.Product.ID)
		}

		lineTotal := line.Product.Price.Mul(line.Quantity)
		if lineTotal > 0 && int64(quote.Subtotal) > math.MaxInt64-int64(lineTotal) {
			return PriceQuote{}, fmt.Errorf("%w: subtotal overflow", ErrPricingInvalidInput)
		}
		quote.Subtotal += lineTotal

		quote.Lines = append(quote.Lines, domain.OrderLine{
			ProductID:   line.Product.ID,
			Title:       line.Product.Title,
			Description: line.Product.Description,
			ImageURL:    line.Product.ImageURL,
			UnitPrice:   line.Product.Price,
			Quantity:    line.Quantity,
		})
	}

	quote.DiscountPercent = discountPercent
	quote.Discount = quote.Subtotal.PercentOf(discountPercent)
	quote.Total = quote.Subtotal - quote.Discount
	if quote.Total < 0 {
		quote.Total = 0
	}
	return quote, nil
}
