package models

import "errors"

// Domain sentinel errors shared by repositories, services and handlers.
// Idempotency conflicts are ordinary rejected outcomes, never crashes.
var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderItemNotFound = errors.New("order item not found")
	ErrWalletNotFound    = errors.New("reward wallet not found")

	ErrAlreadyFinalized = errors.New("weight already finalized")
	ErrNotWeightBased   = errors.New("order item is not weight-based")
	ErrInvalidWeight    = errors.New("final weight must be positive")

	ErrInsufficientBalance = errors.New("insufficient points balance")
	ErrNotMultipleOf100    = errors.New("points must be a multiple of 100")
	ErrBelowMinRedemption  = errors.New("minimum redemption is 100 points")

	ErrCrossMerchantCart  = errors.New("items must be from the same merchant")
	ErrTotalsMismatch     = errors.New("client totals disagree with server-side computation")
	ErrPaymentNotPending  = errors.New("order payment already processed")
	ErrInvalidTimeWindow  = errors.New("delivery window end must be after start")
	ErrInvalidNotification = errors.New("invalid gateway notification")
)
