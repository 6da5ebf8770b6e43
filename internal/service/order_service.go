package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TheoDuToit1/sella/internal/repositories"
	"github.com/TheoDuToit1/sella/models"
	"github.com/TheoDuToit1/sella/pkg/logger"
)

// VAT is applied at a fixed 15% of the subtotal.
const taxRate = 0.15

// totalsTolerance is the rounding slack allowed between client-supplied
// and server-computed totals.
const totalsTolerance = 0.01

type CreateOrderRequest struct {
	CustomerID        string                   `json:"customer_id"`
	DeliveryAddressID string                   `json:"delivery_address_id"`
	DeliveryWindow    string                   `json:"delivery_window"`
	PaymentMethod     models.PaymentMethod     `json:"payment_method"`
	Notes             string                   `json:"notes,omitempty"`
	Items             []CreateOrderItemRequest `json:"items"`
	Subtotal          float64                  `json:"subtotal"`
	DeliveryFee       float64                  `json:"delivery_fee"`
	TaxTotal          float64                  `json:"tax_total"`
	DiscountTotal     float64                  `json:"discount_total"`
	GrandTotalEst     float64                  `json:"grand_total_est"`
	RewardPointsUsed  int                      `json:"reward_points_used"`
}

type CreateOrderItemRequest struct {
	ProductID        string   `json:"product_id"`
	Name             string   `json:"name"`
	IsWeightBased    bool     `json:"is_weight_based"`
	EstimatedWeightG *int     `json:"estimated_weight_g,omitempty"`
	Quantity         int      `json:"quantity"`
	UnitPrice        *float64 `json:"unit_price,omitempty"`
	PricePerKg       *float64 `json:"price_per_kg,omitempty"`
	EstimatedTotal   float64  `json:"estimated_total"`
}

// FieldError carries per-field validation detail back to the caller.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is a request rejected before any state mutation.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func fieldErr(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error)
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID string) ([]*models.Order, error)
}

type OrderService struct {
	orderRepo   repositories.OrderRepositoryInterface
	productRepo repositories.ProductRepositoryInterface
	auditRepo   repositories.AuditRepositoryInterface
	rewards     RewardServiceInterface
	logger      *logger.Logger
	now         func() time.Time
}

func NewOrderService(
	orderRepo repositories.OrderRepositoryInterface,
	productRepo repositories.ProductRepositoryInterface,
	auditRepo repositories.AuditRepositoryInterface,
	rewards RewardServiceInterface,
	log *logger.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		auditRepo:   auditRepo,
		rewards:     rewards,
		logger:      log.WithComponent("order_service"),
		now:         time.Now,
	}
}

// CreateOrder validates and persists a placed order. Items must resolve
// to products of exactly one merchant; totals are recomputed server-side
// from catalog prices and must agree with the client's figures within
// rounding tolerance. Reward redemption and the audit record are
// best-effort and never fail the placement.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	s.logger.Info("Creating order", "customer_id", req.CustomerID, "items", len(req.Items))

	if err := s.validateRequest(req); err != nil {
		s.logger.Warn("Order rejected: invalid request", "error", err)
		return nil, err
	}

	products, err := s.resolveProducts(ctx, req.Items)
	if err != nil {
		s.logger.Warn("Order rejected: product resolution failed", "error", err)
		return nil, err
	}

	merchantID, err := singleMerchant(products)
	if err != nil {
		s.logger.Warn("Order rejected: cross-merchant cart", "customer_id", req.CustomerID)
		return nil, err
	}

	if err := s.verifyTotals(req, products); err != nil {
		s.logger.Warn("Order rejected: totals mismatch", "customer_id", req.CustomerID, "error", err)
		return nil, err
	}

	windowStart, windowEnd, err := ParseDeliveryWindow(req.DeliveryWindow, s.now())
	if err != nil {
		s.logger.Warn("Order rejected: bad delivery window", "window", req.DeliveryWindow, "error", err)
		return nil, err
	}

	outletID, err := s.productRepo.FirstOutletForMerchant(ctx, merchantID)
	if err != nil {
		s.logger.Error("Failed to resolve merchant outlet", "merchant_id", merchantID, "error", err)
		return nil, fmt.Errorf("failed to resolve merchant outlet: %v", err)
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:                  uuid.NewString(),
		CustomerID:          req.CustomerID,
		OutletID:            outletID,
		Status:              models.OrderPlaced,
		Subtotal:            req.Subtotal,
		DeliveryFee:         req.DeliveryFee,
		TaxTotal:            req.TaxTotal,
		DiscountTotal:       req.DiscountTotal,
		GrandTotalEst:       req.GrandTotalEst,
		PaymentStatus:       models.PaymentPending,
		PaymentMethod:       req.PaymentMethod,
		DeliveryWindowStart: &windowStart,
		DeliveryWindowEnd:   &windowEnd,
		DeliveryAddressID:   req.DeliveryAddressID,
		Notes:               req.Notes,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	items := make([]models.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = models.OrderItem{
			ID:            uuid.NewString(),
			OrderID:       order.ID,
			ProductID:     item.ProductID,
			NameSnapshot:  item.Name,
			IsWeightBased: item.IsWeightBased,
			EstWeightG:    item.EstimatedWeightG,
			UnitPrice:     item.UnitPrice,
			Quantity:      item.Quantity,
			PricePerKg:    item.PricePerKg,
			LineTotalEst:  item.EstimatedTotal,
		}
	}

	if err := s.orderRepo.Create(ctx, order, items); err != nil {
		// Compensating delete: item persistence must not leave a
		// headless order behind.
		s.logger.Error("Failed to persist order, rolling back", "order_id", order.ID, "error", err)
		if delErr := s.orderRepo.Delete(ctx, order.ID); delErr != nil && delErr != models.ErrOrderNotFound {
			s.logger.Error("Compensating delete failed", "order_id", order.ID, "error", delErr)
		}
		return nil, fmt.Errorf("failed to create order: %v", err)
	}
	order.Items = items

	if req.RewardPointsUsed > 0 {
		if _, err := s.rewards.RedeemForCustomer(ctx, req.CustomerID, order.ID, req.RewardPointsUsed); err != nil {
			// Redemption failure never fails the order.
			s.logger.Warn("Reward redemption failed",
				"order_id", order.ID,
				"points", req.RewardPointsUsed,
				"error", err)
		}
	}

	if err := s.auditRepo.Append(ctx, &models.AuditLog{
		ActorID:   req.CustomerID,
		ActorRole: "customer",
		Entity:    "orders",
		EntityID:  order.ID,
		Action:    "create",
		Diff: map[string]interface{}{
			"payment_method": req.PaymentMethod,
			"total":          req.GrandTotalEst,
			"items_count":    len(req.Items),
		},
	}); err != nil {
		s.logger.Warn("Failed to write order audit log", "order_id", order.ID, "error", err)
	}

	s.logger.Info("Order created",
		"order_id", order.ID,
		"grand_total_est", order.GrandTotalEst,
		"payment_method", order.PaymentMethod)
	return order, nil
}

// GetOrderByID retrieves an order with its items.
func (s *OrderService) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	if id == "" {
		return nil, fieldErr("order_id", "order ID is required")
	}
	return s.orderRepo.GetByID(ctx, id)
}

// ListOrdersByCustomer returns a customer's orders, newest first.
func (s *OrderService) ListOrdersByCustomer(ctx context.Context, customerID string) ([]*models.Order, error) {
	if customerID == "" {
		return nil, fieldErr("customer_id", "customer ID is required")
	}
	return s.orderRepo.ListByCustomer(ctx, customerID)
}

func (s *OrderService) validateRequest(req CreateOrderRequest) error {
	var fields []FieldError

	if req.CustomerID == "" {
		fields = append(fields, FieldError{"customer_id", "customer ID is required"})
	}
	if req.DeliveryAddressID == "" {
		fields = append(fields, FieldError{"delivery_address_id", "delivery address is required"})
	}
	if req.DeliveryWindow == "" {
		fields = append(fields, FieldError{"delivery_window", "delivery window is required"})
	}
	if !models.ValidPaymentMethod(req.PaymentMethod) {
		fields = append(fields, FieldError{"payment_method", "unsupported payment method"})
	}
	if len(req.Items) == 0 {
		fields = append(fields, FieldError{"items", "order must have at least one item"})
	}

	for i, item := range req.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		if item.ProductID == "" {
			fields = append(fields, FieldError{prefix + ".product_id", "product ID is required"})
		}
		if item.Quantity <= 0 {
			fields = append(fields, FieldError{prefix + ".quantity", "quantity must be positive"})
		}
		if item.IsWeightBased {
			if item.EstimatedWeightG == nil || *item.EstimatedWeightG <= 0 {
				fields = append(fields, FieldError{prefix + ".estimated_weight_g", "weight-based items need a positive estimated weight"})
			}
		}
	}

	if req.RewardPointsUsed < 0 {
		fields = append(fields, FieldError{"reward_points_used", "points cannot be negative"})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (s *OrderService) resolveProducts(ctx context.Context, items []CreateOrderItemRequest) (map[string]models.Product, error) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %v", err)
	}

	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for i, item := range items {
		if _, ok := byID[item.ProductID]; !ok {
			return nil, fieldErr(fmt.Sprintf("items[%d].product_id", i), "unknown product")
		}
	}
	return byID, nil
}

func singleMerchant(products map[string]models.Product) (string, error) {
	merchantID := ""
	for _, p := range products {
		if merchantID == "" {
			merchantID = p.MerchantID
			continue
		}
		if p.MerchantID != merchantID {
			return "", models.ErrCrossMerchantCart
		}
	}
	return merchantID, nil
}

// verifyTotals recomputes the order totals from catalog prices and
// rejects the request when the client's figures disagree beyond
// tolerance. Weight-based lines price at estimated weight, fixed lines
// at unit price times quantity.
func (s *OrderService) verifyTotals(req CreateOrderRequest, products map[string]models.Product) error {
	subtotal := 0.0
	for i, item := range req.Items {
		product := products[item.ProductID]

		var lineTotal float64
		switch {
		case product.IsWeightBased && product.PricePerKg != nil && item.EstimatedWeightG != nil:
			lineTotal = float64(*item.EstimatedWeightG) / 1000 * *product.PricePerKg * float64(item.Quantity)
		case !product.IsWeightBased && product.UnitPrice != nil:
			lineTotal = *product.UnitPrice * float64(item.Quantity)
		default:
			return fieldErr(fmt.Sprintf("items[%d]", i), "product pricing data is incomplete")
		}

		if math.Abs(lineTotal-item.EstimatedTotal) > totalsTolerance {
			return fmt.Errorf("%w: line %d computed %.2f, client sent %.2f",
				models.ErrTotalsMismatch, i, lineTotal, item.EstimatedTotal)
		}
		subtotal += lineTotal
	}

	if math.Abs(subtotal-req.Subtotal) > totalsTolerance {
		return fmt.Errorf("%w: subtotal computed %.2f, client sent %.2f",
			models.ErrTotalsMismatch, subtotal, req.Subtotal)
	}

	taxTotal := subtotal * taxRate
	if math.Abs(taxTotal-req.TaxTotal) > totalsTolerance {
		return fmt.Errorf("%w: tax computed %.2f, client sent %.2f",
			models.ErrTotalsMismatch, taxTotal, req.TaxTotal)
	}

	grandTotal := subtotal + taxTotal + req.DeliveryFee - req.DiscountTotal
	if math.Abs(grandTotal-req.GrandTotalEst) > totalsTolerance {
		return fmt.Errorf("%w: grand total computed %.2f, client sent %.2f",
			models.ErrTotalsMismatch, grandTotal, req.GrandTotalEst)
	}

	return nil
}

// ParseDeliveryWindow resolves a window of the form "HH:MM - HH:MM" into
// two timestamps anchored to today. A window whose start has already
// elapsed rolls both ends forward one day. A window ending at or before
// its start is rejected rather than treated as spanning midnight.
func ParseDeliveryWindow(window string, now time.Time) (time.Time, time.Time, error) {
	parts := strings.Split(window, " - ")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fieldErr("delivery_window", `expected format "HH:MM - HH:MM"`)
	}

	startClock, err := time.Parse("15:04", strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, time.Time{}, fieldErr("delivery_window", "invalid start time")
	}
	endClock, err := time.Parse("15:04", strings.TrimSpace(parts[1]))
	if err != nil {
		return time.Time{}, time.Time{}, fieldErr("delivery_window", "invalid end time")
	}

	start := time.Date(now.Year(), now.Month(), now.Day(),
		startClock.Hour(), startClock.Minute(), 0, 0, now.Location())
	end := time.Date(now.Year(), now.Month(), now.Day(),
		endClock.Hour(), endClock.Minute(), 0, 0, now.Location())

	if !end.After(start) {
		return time.Time{}, time.Time{}, models.ErrInvalidTimeWindow
	}

	if start.Before(now) {
		start = start.AddDate(0, 0, 1)
		end = end.AddDate(0, 0, 1)
	}

	return start, end, nil
}
