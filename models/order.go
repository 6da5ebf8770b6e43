package models

import "time"

// OrderStatus is the fulfilment state of an order. Transitions are
// forward-only; CANCELLED is reachable from any pre-delivery state.
type OrderStatus string

const (
	OrderPlaced         OrderStatus = "PLACED"
	OrderPreparing      OrderStatus = "PREPARING"
	OrderReady          OrderStatus = "READY"
	OrderOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderDelivered      OrderStatus = "DELIVERED"
	OrderCancelled      OrderStatus = "CANCELLED"
)

// PaymentStatus tracks the payment outcome on both Order and Payment rows.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// PaymentMethod is the method chosen at checkout.
type PaymentMethod string

const (
	MethodPayFast  PaymentMethod = "PAYFAST"
	MethodOzow     PaymentMethod = "OZOW"
	MethodSnapScan PaymentMethod = "SNAPSCAN"
	MethodCOD      PaymentMethod = "COD"
)

// ValidPaymentMethod reports whether m is one of the supported methods.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case MethodPayFast, MethodOzow, MethodSnapScan, MethodCOD:
		return true
	}
	return false
}

type Order struct {
	ID                  string        `json:"order_id" db:"id"`
	CustomerID          string        `json:"customer_id" db:"customer_id"`
	OutletID            string        `json:"outlet_id" db:"outlet_id"`
	Status              OrderStatus   `json:"status" db:"status"`
	Subtotal            float64       `json:"subtotal" db:"subtotal"`
	DeliveryFee         float64       `json:"delivery_fee" db:"delivery_fee"`
	TaxTotal            float64       `json:"tax_total" db:"tax_total"`
	DiscountTotal       float64       `json:"discount_total" db:"discount_total"`
	GrandTotalEst       float64       `json:"grand_total_est" db:"grand_total_est"`
	GrandTotalFinal     *float64      `json:"grand_total_final,omitempty" db:"grand_total_final"`
	PaymentStatus       PaymentStatus `json:"payment_status" db:"payment_status"`
	PaymentMethod       PaymentMethod `json:"payment_method" db:"payment_method"`
	DeliveryWindowStart *time.Time    `json:"delivery_window_start,omitempty" db:"delivery_window_start"`
	DeliveryWindowEnd   *time.Time    `json:"delivery_window_end,omitempty" db:"delivery_window_end"`
	DeliveryAddressID   string        `json:"delivery_address_id" db:"delivery_address_id"`
	Notes               string        `json:"notes,omitempty" db:"notes"`
	Items               []OrderItem   `json:"items,omitempty"`
	CreatedAt           time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at" db:"updated_at"`
}

// OrderItem is one product line. Weight-based lines carry estimated and
// final weights; final_weight_g is written exactly once.
type OrderItem struct {
	ID             string   `json:"id" db:"id"`
	OrderID        string   `json:"order_id" db:"order_id"`
	ProductID      string   `json:"product_id" db:"product_id"`
	NameSnapshot   string   `json:"name_snapshot" db:"name_snapshot"`
	IsWeightBased  bool     `json:"is_weight_based" db:"is_weight_based"`
	EstWeightG     *int     `json:"est_weight_g,omitempty" db:"est_weight_g"`
	FinalWeightG   *int     `json:"final_weight_g,omitempty" db:"final_weight_g"`
	UnitPrice      *float64 `json:"unit_price,omitempty" db:"unit_price"`
	Quantity       int      `json:"quantity" db:"quantity"`
	PricePerKg     *float64 `json:"price_per_kg,omitempty" db:"price_per_kg"`
	LineTotalEst   float64  `json:"line_total_est" db:"line_total_est"`
	LineTotalFinal *float64 `json:"line_total_final,omitempty" db:"line_total_final"`
}

// Finalized reports whether a weight-based line has its final weight set.
func (i OrderItem) Finalized() bool {
	return i.FinalWeightG != nil
}

// Product is the catalog row an order item snapshots from. Only the
// fields needed for placement validation are modelled here.
type Product struct {
	ID            string   `json:"id" db:"id"`
	MerchantID    string   `json:"merchant_id" db:"merchant_id"`
	Name          string   `json:"name" db:"name"`
	IsWeightBased bool     `json:"is_weight_based" db:"is_weight_based"`
	UnitPrice     *float64 `json:"unit_price,omitempty" db:"unit_price"`
	PricePerKg    *float64 `json:"price_per_kg,omitempty" db:"price_per_kg"`
}
