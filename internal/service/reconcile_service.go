package service

import (
	"context"
	"fmt"
	"time"

	"github.com/TheoDuToit1/sella/internal/payfast"
	"github.com/TheoDuToit1/sella/internal/repositories"
	"github.com/TheoDuToit1/sella/models"
	"github.com/TheoDuToit1/sella/pkg/logger"
)

// Notifier sends the customer-facing payment confirmation. It is a
// fire-and-forget collaborator: failures are logged and never affect
// webhook processing.
type Notifier interface {
	OrderPaymentConfirmed(ctx context.Context, order *models.Order)
}

// LogNotifier is the default Notifier; it only records that a
// confirmation would be sent.
type LogNotifier struct {
	Logger *logger.Logger
}

func (n *LogNotifier) OrderPaymentConfirmed(ctx context.Context, order *models.Order) {
	n.Logger.Info("Payment confirmed, notification queued", "order_id", order.ID)
}

// NotificationResult reports what a processed callback changed.
type NotificationResult struct {
	OrderID         string               `json:"order_id"`
	IsDeltaPayment  bool                 `json:"is_delta_payment"`
	PaymentStatus   models.PaymentStatus `json:"payment_status"`
	OrderStatus     models.OrderStatus   `json:"order_status"`
	DeliveryCreated bool                 `json:"delivery_created"`
	PointsAccrued   int                  `json:"points_accrued"`
}

type ReconcileServiceInterface interface {
	ProcessNotification(ctx context.Context, fields map[string]string) (*NotificationResult, error)
}

// ReconcileService applies inbound gateway callbacks to Order, Payment
// and Delivery state. Every mutation is conditional on current state so
// a duplicate or replayed callback is a no-op.
type ReconcileService struct {
	gateway      *payfast.Service
	orderRepo    repositories.OrderRepositoryInterface
	paymentRepo  repositories.PaymentRepositoryInterface
	deliveryRepo repositories.DeliveryRepositoryInterface
	auditRepo    repositories.AuditRepositoryInterface
	rewards      RewardServiceInterface
	notifier     Notifier
	logger       *logger.Logger
}

func NewReconcileService(
	gateway *payfast.Service,
	orderRepo repositories.OrderRepositoryInterface,
	paymentRepo repositories.PaymentRepositoryInterface,
	deliveryRepo repositories.DeliveryRepositoryInterface,
	auditRepo repositories.AuditRepositoryInterface,
	rewards RewardServiceInterface,
	notifier Notifier,
	log *logger.Logger,
) *ReconcileService {
	return &ReconcileService{
		gateway:      gateway,
		orderRepo:    orderRepo,
		paymentRepo:  paymentRepo,
		deliveryRepo: deliveryRepo,
		auditRepo:    auditRepo,
		rewards:      rewards,
		notifier:     notifier,
		logger:       log.WithComponent("reconcile_service"),
	}
}

// ProcessNotification validates and applies one gateway callback.
// ErrInvalidNotification means the request failed signature or merchant
// checks and deserves a 4xx; every other outcome, including order-not-
// found and partial update failures, is logged and acknowledged so the
// gateway stops redelivering.
func (s *ReconcileService) ProcessNotification(ctx context.Context, fields map[string]string) (*NotificationResult, error) {
	validation := s.gateway.ValidatePayment(fields)
	if !validation.IsValid {
		s.logger.Warn("Rejected gateway notification", "reason", validation.Err)
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidNotification, validation.Err)
	}
	if validation.OrderID == "" {
		s.logger.Warn("Gateway notification without order id")
		return nil, fmt.Errorf("%w: no order ID", models.ErrInvalidNotification)
	}

	actualOrderID, isDelta := payfast.IsDeltaOrderID(validation.OrderID)

	order, err := s.orderRepo.GetByID(ctx, actualOrderID)
	if err != nil {
		s.logger.Error("Order not found for notification", "order_id", actualOrderID, "error", err)
		return nil, err
	}

	newPaymentStatus, newOrderStatus := mapGatewayStatus(validation.PaymentStatus, order.Status)

	providerRef := fields["pf_payment_id"]
	var capturedAt *time.Time
	if newPaymentStatus == models.PaymentPaid {
		now := time.Now().UTC()
		capturedAt = &now
	}

	// The payment row for a delta charge is keyed by the derived id, so
	// the raw gateway reference addresses the right attempt either way.
	if _, err := s.paymentRepo.ApplyCallback(ctx, validation.OrderID, providerPayFast, newPaymentStatus, providerRef, capturedAt); err != nil {
		s.logger.Error("Failed to update payment record", "order_id", validation.OrderID, "error", err)
	}

	if _, err := s.orderRepo.ApplyPaymentOutcome(ctx, actualOrderID, newPaymentStatus, newOrderStatus); err != nil {
		s.logger.Error("Failed to update order state", "order_id", actualOrderID, "error", err)
	}

	// Audit is attempted unconditionally, independent of the updates
	// above.
	if err := s.auditRepo.Append(ctx, &models.AuditLog{
		Entity:   "payments",
		EntityID: actualOrderID,
		Action:   "payfast_notification",
		Diff: map[string]interface{}{
			"payment_status":   newPaymentStatus,
			"payfast_status":   validation.PaymentStatus,
			"amount":           validation.Amount,
			"is_delta_payment": isDelta,
			"pf_payment_id":    providerRef,
		},
	}); err != nil {
		s.logger.Warn("Failed to write notification audit log", "order_id", actualOrderID, "error", err)
	}

	result := &NotificationResult{
		OrderID:        actualOrderID,
		IsDeltaPayment: isDelta,
		PaymentStatus:  newPaymentStatus,
		OrderStatus:    newOrderStatus,
	}

	if newPaymentStatus == models.PaymentPaid && !isDelta {
		created, err := s.deliveryRepo.CreateIfAbsent(ctx, actualOrderID)
		if err != nil {
			s.logger.Error("Failed to create delivery record", "order_id", actualOrderID, "error", err)
		}
		result.DeliveryCreated = created

		accrualBase := order.GrandTotalEst
		if order.GrandTotalFinal != nil {
			accrualBase = *order.GrandTotalFinal
		}
		points, err := s.rewards.AccrueForOrder(ctx, order.CustomerID, actualOrderID, accrualBase)
		if err != nil {
			s.logger.Error("Failed to accrue reward points", "order_id", actualOrderID, "error", err)
		}
		result.PointsAccrued = points
	}

	if newPaymentStatus == models.PaymentPaid {
		s.notifier.OrderPaymentConfirmed(ctx, order)
	}

	s.logger.Info("Processed gateway notification",
		"order_id", actualOrderID,
		"is_delta", isDelta,
		"payment_status", newPaymentStatus,
		"order_status", newOrderStatus,
		"delivery_created", result.DeliveryCreated,
		"points_accrued", result.PointsAccrued)

	return result, nil
}

// mapGatewayStatus translates the gateway's payment_status string into
// internal payment and order states. COMPLETE advances a PLACED order to
// PREPARING but never downgrades a further-advanced status; failures
// leave the order status untouched.
func mapGatewayStatus(gatewayStatus string, current models.OrderStatus) (models.PaymentStatus, models.OrderStatus) {
	switch gatewayStatus {
	case payfast.StatusComplete:
		if current == models.OrderPlaced {
			return models.PaymentPaid, models.OrderPreparing
		}
		return models.PaymentPaid, current
	case payfast.StatusFailed, payfast.StatusCancelled:
		return models.PaymentFailed, current
	default:
		return models.PaymentPending, current
	}
}
