package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TheoDuToit1/sella/models"
	"github.com/TheoDuToit1/sella/pkg/database"
	"github.com/TheoDuToit1/sella/pkg/logger"
)

type DeliveryRepositoryInterface interface {
	CreateIfAbsent(ctx context.Context, orderID string) (bool, error)
}

type DeliveryRepository struct {
	db     *database.DB
	logger *logger.Logger
}

func NewDeliveryRepository(log *logger.Logger, db *database.DB) *DeliveryRepository {
	return &DeliveryRepository{
		db:     db,
		logger: log.WithComponent("delivery_repository"),
	}
}

// CreateIfAbsent inserts the delivery record for a paid order. The
// unique constraint on order_id plus DO NOTHING keeps a replayed
// callback from creating a second row. Returns whether a row was
// inserted.
func (r *DeliveryRepository) CreateIfAbsent(ctx context.Context, orderID string) (bool, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO deliveries (id, order_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_id) DO NOTHING`,
		uuid.NewString(), orderID, models.DeliveryAssigned, now, now)
	if err != nil {
		return false, fmt.Errorf("failed to insert delivery: %v", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %v", err)
	}

	if rows > 0 {
		r.logger.Info("Created delivery record", "order_id", orderID)
	} else {
		r.logger.Debug("Delivery record already exists", "order_id", orderID)
	}
	return rows > 0, nil
}
