package services

import "errors"

// Validation and conflict errors surfaced to the submitting channel.
var (
	ErrTableRequired      = errors.New("dine-in order requires a table")
	ErrAddressRequired    = errors.New("delivery order requires an address")
	ErrTableNotFree       = errors.New("table is not free")
	ErrOutOfRange         = errors.New("delivery address is out of range")
	ErrAddressNotFound    = errors.New("address could not be resolved")
	ErrCouponNotFound     = errors.New("coupon not found")
	ErrCouponMinOrder     = errors.New("order subtotal below coupon minimum")
	ErrCouponExhausted    = errors.New("coupon has no redemptions left")
	ErrInsufficientPoints = errors.New("insufficient loyalty points")
	ErrCustomerRequired   = errors.New("loyalty redemption requires an identified customer")
	ErrSuspiciousCustomer = errors.New("customer is flagged, points cannot be redeemed")

	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderCancelled    = errors.New("order is cancelled")
	ErrOrderTerminal     = errors.New("order is in a terminal state")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPaymentPending    = errors.New("payment method is still pending")
	ErrNotDelivery       = errors.New("order is not a delivery order")

	// Gateway failure classes: transient errors may be retried by the
	// channel, misconfiguration may not.
	ErrGatewayUnavailable   = errors.New("payment provider unavailable")
	ErrGatewayMisconfigured = errors.New("payment provider returned no charge artifact")
	ErrChargeNotPending     = errors.New("charge is not pending")
)
