package services

import "errors"

var (
	// ErrProductInvalidInput signals bad product data such as an empty title or negative price.
	ErrProductInvalidInput = errors.New("catalog: invalid input")
	// ErrProductNotFound is returned when no product exists for the requested ID.
	ErrProductNotFound = errors.New("catalog: product not found")

	// ErrCartInvalidInput signals bad cart mutation data.
	ErrCartInvalidInput = errors.New("cart: invalid input")
	// ErrCartProductUnavailable is returned when a line references an inactive or missing product.
	ErrCartProductUnavailable = errors.New("cart: product unavailable")

	// ErrCouponInvalidInput signals bad coupon data.
	ErrCouponInvalidInput = errors.New("coupon: invalid input")
	// ErrCouponNotFound is returned when no coupon exists for the code.
	ErrCouponNotFound = errors.New("coupon: not found")
	// ErrCouponNotRedeemable is returned when the coupon is inactive, expired or fully used.
	ErrCouponNotRedeemable = errors.New("coupon: not redeemable")

	// ErrCheckoutInvalidInput signals a malformed commit request.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutEmptyCart is returned when the cart has no purchasable lines.
	ErrCheckoutEmptyCart = errors.New("checkout: cart is empty")
	// ErrCheckoutPaymentRequired is returned when the payment session is absent or not settled.
	ErrCheckoutPaymentRequired = errors.New("checkout: payment not settled")
	// ErrCheckoutConflict is returned when the commit transaction exhausted its retries.
	ErrCheckoutConflict = errors.New("checkout: commit conflict")
	// ErrCheckoutReconcile is returned when the commit outcome is unknown and
	// manual reconciliation against the payment provider is required.
	ErrCheckoutReconcile = errors.New("checkout: outcome unknown, reconciliation required")

	// ErrOrderNotFound is returned when no order exists for the requested ID.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderAccessDenied is returned when the requester does not own the order.
	ErrOrderAccessDenied = errors.New("order: access denied")
	// ErrOrderInvalidTransition is returned for a status change the lifecycle does not allow.
	ErrOrderInvalidTransition = errors.New("order: invalid status transition")
	// ErrOrderInvalidInput signals a malformed transition request.
	ErrOrderInvalidInput = errors.New("order: invalid input")

	// ErrInvoiceRender is returned when PDF generation fails.
	ErrInvoiceRender = errors.New("invoice: rendering failed")
)
