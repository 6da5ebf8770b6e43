package payfast

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/TheoDuToit1/sella/pkg/logger"
)

// Gateway status strings as delivered in the payment_status callback
// field.
const (
	StatusComplete  = "COMPLETE"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

const (
	sandboxProcessURL    = "https://sandbox.payfast.co.za/eng/process"
	productionProcessURL = "https://www.payfast.co.za/eng/process"

	// Static application identifier sent in custom_str2 on every
	// payment so gateway-side reporting can filter our traffic.
	appIdentifier = "sella"

	// DeltaMarker separates the original order id from the timestamp in
	// a derived delta-payment id.
	DeltaMarker = "-DELTA-"
)

// Config holds the gateway credentials. Loaded once at startup and
// read-only thereafter; the service holding it is constructed explicitly
// and injected rather than cached in a package-level singleton.
type Config struct {
	MerchantID  string
	MerchantKey string
	Passphrase  string
	Sandbox     bool
}

// Service builds signed outgoing payment payloads and validates inbound
// gateway callbacks.
type Service struct {
	config Config
	logger *logger.Logger
}

func NewService(config Config, log *logger.Logger) *Service {
	return &Service{
		config: config,
		logger: log.WithComponent("payfast"),
	}
}

// PaymentRequest carries everything needed to build a payment-initiation
// payload.
type PaymentRequest struct {
	OrderID         string
	Amount          float64
	CustomerEmail   string
	CustomerName    string
	ItemName        string
	ItemDescription string
	ReturnURL       string
	CancelURL       string
	NotifyURL       string
}

// CreatePayment builds the signed field map for a redirect-form POST to
// the gateway. Empty fields are stripped before signing so the signature
// covers exactly the fields submitted.
func (s *Service) CreatePayment(req PaymentRequest) map[string]string {
	firstName, lastName := splitName(req.CustomerName)

	data := map[string]string{
		"merchant_id":      s.config.MerchantID,
		"merchant_key":     s.config.MerchantKey,
		"return_url":       req.ReturnURL,
		"cancel_url":       req.CancelURL,
		"notify_url":       req.NotifyURL,
		"name_first":       firstName,
		"name_last":        lastName,
		"email_address":    req.CustomerEmail,
		"m_payment_id":     req.OrderID,
		"amount":           strconv.FormatFloat(req.Amount, 'f', 2, 64),
		"item_name":        req.ItemName,
		"item_description": req.ItemDescription,
		"custom_str1":      req.OrderID,
		"custom_str2":      appIdentifier,
	}

	for k, v := range data {
		if v == "" {
			delete(data, k)
		}
	}

	data["signature"] = Sign(data, s.config.Passphrase)

	s.logger.Debug("Built payment payload",
		"order_id", req.OrderID,
		"amount", data["amount"],
		"sandbox", s.config.Sandbox)

	return data
}

// PaymentURL returns the gateway process endpoint for the configured
// environment.
func (s *Service) PaymentURL() string {
	if s.config.Sandbox {
		return sandboxProcessURL
	}
	return productionProcessURL
}

// CreatePaymentLink builds a GET-style payment link with the signed
// fields as a query string.
func (s *Service) CreatePaymentLink(req PaymentRequest) string {
	data := s.CreatePayment(req)

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		values.Set(k, data[k])
	}
	return s.PaymentURL() + "?" + values.Encode()
}

// ValidateSignature recomputes the signature over all received fields
// except the signature itself and compares. A missing signature field is
// always invalid.
func (s *Service) ValidateSignature(data map[string]string) bool {
	received, ok := data["signature"]
	if !ok || received == "" {
		return false
	}
	return received == Sign(data, s.config.Passphrase)
}

// PaymentValidation is the structured outcome of callback validation.
// All failure paths return IsValid=false with Err set; this never
// propagates an error to the caller.
type PaymentValidation struct {
	IsValid       bool
	OrderID       string
	PaymentStatus string
	Amount        float64
	Err           string
}

// ValidatePayment checks a callback field set: signature must verify and
// the merchant id must match our credentials. The order id comes from
// m_payment_id with custom_str1 as fallback; amount_gross defaults to 0
// when absent or unparseable.
func (s *Service) ValidatePayment(data map[string]string) PaymentValidation {
	if !s.ValidateSignature(data) {
		return PaymentValidation{Err: "invalid signature"}
	}

	if data["merchant_id"] != s.config.MerchantID {
		return PaymentValidation{Err: "invalid merchant ID"}
	}

	orderID := data["m_payment_id"]
	if orderID == "" {
		orderID = data["custom_str1"]
	}

	amount, err := strconv.ParseFloat(data["amount_gross"], 64)
	if err != nil {
		amount = 0
	}

	return PaymentValidation{
		IsValid:       true,
		OrderID:       orderID,
		PaymentStatus: data["payment_status"],
		Amount:        amount,
	}
}

// DeltaRequest describes a supplementary charge for a finalized weight
// difference on an existing order.
type DeltaRequest struct {
	OriginalOrderID string
	DeltaAmount     float64
	CustomerEmail   string
	CustomerName    string
	ReturnURL       string
	CancelURL       string
	NotifyURL       string
}

// CreateDeltaPayment derives a delta-specific order id from the original
// id plus a timestamp, so the callback channel can tell the make-up
// charge apart from the primary payment. The charged amount is the
// absolute delta; settlement direction is the caller's concern.
func (s *Service) CreateDeltaPayment(req DeltaRequest) map[string]string {
	deltaOrderID := fmt.Sprintf("%s%s%d", req.OriginalOrderID, DeltaMarker, time.Now().UnixMilli())

	amount := req.DeltaAmount
	if amount < 0 {
		amount = -amount
	}

	return s.CreatePayment(PaymentRequest{
		OrderID:         deltaOrderID,
		Amount:          amount,
		CustomerEmail:   req.CustomerEmail,
		CustomerName:    req.CustomerName,
		ItemName:        fmt.Sprintf("Weight Adjustment - Order #%s", req.OriginalOrderID),
		ItemDescription: "Additional charge for final weight difference",
		ReturnURL:       req.ReturnURL,
		CancelURL:       req.CancelURL,
		NotifyURL:       req.NotifyURL,
	})
}

// IsDeltaOrderID reports whether a callback order id is a derived delta
// id, and returns the original order id with the marker suffix stripped.
func IsDeltaOrderID(orderID string) (original string, isDelta bool) {
	if idx := strings.Index(orderID, DeltaMarker); idx >= 0 {
		return orderID[:idx], true
	}
	return orderID, false
}

// splitName splits a full name into the gateway's first/last fields. The
// remainder of the split joins into the last name; a single-token name
// duplicates into both fields.
func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	first = parts[0]
	if len(parts) == 1 {
		return first, first
	}
	return first, strings.Join(parts[1:], " ")
}
