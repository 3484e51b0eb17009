package domain

import "fmt"

// Money represents a monetary amount in minor units (paise). All arithmetic in
// the pricing and invoice paths stays in integer minor units; rounding happens
// once, at the point a percentage is applied.
type Money int64

// MoneyFromRupees converts whole rupees and paise into minor units.
func MoneyFromRupees(rupees int64, paise int64) Money {
	return Money(rupees*100 + paise)
}

// PercentOf returns pct percent of m, rounded half-up to the nearest minor unit.
func (m Money) PercentOf(pct int) Money {
	if m <= 0 || pct <= 0 {
		return 0
	}
	raw := int64(m) * int64(pct)
	rounded := (raw + 50) / 100
	return Money(rounded)
}

// Mul multiplies the amount by a line quantity.
func (m Money) Mul(qty int) Money {
	return m * Money(qty)
}

// Format renders the amount the way the storefront displays prices, e.g. "Rs 27.00".
func (m Money) Format() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%sRs %d.%02d", sign, v/100, v%100)
}
