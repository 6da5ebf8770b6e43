package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/TheoDuToit1/sella/models"
	"github.com/TheoDuToit1/sella/pkg/database"
	"github.com/TheoDuToit1/sella/pkg/logger"
)

type PaymentRepositoryInterface interface {
	Create(ctx context.Context, payment *models.Payment) error
	ApplyCallback(ctx context.Context, orderID, provider string, status models.PaymentStatus, providerRef string, capturedAt *time.Time) (bool, error)
}

type PaymentRepository struct {
	db     *database.DB
	logger *logger.Logger
}

func NewPaymentRepository(log *logger.Logger, db *database.DB) *PaymentRepository {
	return &PaymentRepository{
		db:     db,
		logger: log.WithComponent("payment_repository"),
	}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (id, order_id, provider, amount, currency, status, provider_ref, captured_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		payment.ID, payment.OrderID, payment.Provider, payment.Amount, payment.Currency,
		payment.Status, payment.ProviderRef, payment.CapturedAt, payment.CreatedAt, payment.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert payment", "order_id", payment.OrderID, "error", err)
		return fmt.Errorf("failed to insert payment: %v", err)
	}

	r.logger.Info("Created payment record",
		"order_id", payment.OrderID,
		"provider", payment.Provider,
		"amount", payment.Amount)
	return nil
}

// ApplyCallback records a gateway outcome on the payment matched by
// (order_id, provider). The state predicate makes duplicate callback
// delivery a no-op. Returns whether a row changed.
func (r *PaymentRepository) ApplyCallback(ctx context.Context, orderID, provider string, status models.PaymentStatus, providerRef string, capturedAt *time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = $3, provider_ref = $4, captured_at = $5, updated_at = $6
		WHERE order_id = $1 AND provider = $2
		  AND (status IS DISTINCT FROM $3 OR provider_ref IS DISTINCT FROM $4)`,
		orderID, provider, status, providerRef, capturedAt, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to update payment: %v", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %v", err)
	}
	return rows > 0, nil
}
