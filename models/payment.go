package models

import "time"

// Payment is one payment attempt against an order. A delta payment for a
// weight make-up charge is a separate row keyed by its derived gateway
// reference ({orderID}-DELTA-{millis}) so callback matching lands on the
// right attempt.
type Payment struct {
	ID          string        `json:"id" db:"id"`
	OrderID     string        `json:"order_id" db:"order_id"`
	Provider    string        `json:"provider" db:"provider"`
	Amount      float64       `json:"amount" db:"amount"`
	Currency    string        `json:"currency" db:"currency"`
	Status      PaymentStatus `json:"status" db:"status"`
	ProviderRef string        `json:"provider_ref,omitempty" db:"provider_ref"`
	CapturedAt  *time.Time    `json:"captured_at,omitempty" db:"captured_at"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// DeliveryStatus is the courier-side state of a paid order.
type DeliveryStatus string

const (
	DeliveryAssigned  DeliveryStatus = "ASSIGNED"
	DeliveryPickedUp  DeliveryStatus = "PICKED_UP"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
)

// Delivery is created exactly once per order, on successful primary
// payment.
type Delivery struct {
	ID        string         `json:"id" db:"id"`
	OrderID   string         `json:"order_id" db:"order_id"`
	Status    DeliveryStatus `json:"status" db:"status"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}
