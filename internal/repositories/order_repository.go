package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/TheoDuToit1/sella/models"
	"github.com/TheoDuToit1/sella/pkg/database"
	"github.com/TheoDuToit1/sella/pkg/logger"
)

type OrderRepositoryInterface interface {
	Create(ctx context.Context, order *models.Order, items []models.OrderItem) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*models.Order, error)
	ItemsByOrder(ctx context.Context, orderID string) ([]models.OrderItem, error)
	GetItemByID(ctx context.Context, itemID string) (*models.OrderItem, error)
	FinalizeItemWeight(ctx context.Context, itemID string, finalWeightG int, lineTotalFinal float64) (bool, error)
	SetGrandTotalFinal(ctx context.Context, orderID string, total float64) error
	ApplyPaymentOutcome(ctx context.Context, orderID string, paymentStatus models.PaymentStatus, status models.OrderStatus) (bool, error)
}

type OrderRepository struct {
	db     *database.DB
	logger *logger.Logger
}

func NewOrderRepository(log *logger.Logger, db *database.DB) *OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: log.WithComponent("order_repository"),
	}
}

const orderColumns = `id, customer_id, outlet_id, status, subtotal, delivery_fee, tax_total,
	discount_total, grand_total_est, grand_total_final, payment_status, payment_method,
	delivery_window_start, delivery_window_end, delivery_address_id, notes, created_at, updated_at`

const itemColumns = `id, order_id, product_id, name_snapshot, is_weight_based, est_weight_g,
	final_weight_g, unit_price, quantity, price_per_kg, line_total_est, line_total_final`

// Create persists the order header and its items as one transaction.
// When the transaction itself fails to open, the caller falls back to
// the compensating-delete path.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	err := r.db.ExecuteInTransaction(ctx, func(tx *sql.Tx) error {
		if err := r.insertOrder(ctx, tx, order); err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
			if err := r.insertItem(ctx, tx, &items[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to persist order", "order_id", order.ID, "error", err)
		return err
	}

	r.logger.Info("Persisted order", "order_id", order.ID, "items", len(items))
	return nil
}

func (r *OrderRepository) insertOrder(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		order.ID, order.CustomerID, order.OutletID, order.Status,
		order.Subtotal, order.DeliveryFee, order.TaxTotal, order.DiscountTotal,
		order.GrandTotalEst, order.GrandTotalFinal, order.PaymentStatus, order.PaymentMethod,
		order.DeliveryWindowStart, order.DeliveryWindowEnd, order.DeliveryAddressID,
		order.Notes, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %v", err)
	}
	return nil
}

func (r *OrderRepository) insertItem(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO order_items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		item.ID, item.OrderID, item.ProductID, item.NameSnapshot, item.IsWeightBased,
		item.EstWeightG, item.FinalWeightG, item.UnitPrice, item.Quantity,
		item.PricePerKg, item.LineTotalEst, item.LineTotalFinal)
	if err != nil {
		return fmt.Errorf("failed to insert order item: %v", err)
	}
	return nil
}

// Delete removes an order and its items. Used as the compensating
// action when item persistence fails after the order insert.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete order items: %v", err)
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %v", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return models.ErrOrderNotFound
	}
	r.logger.Info("Deleted order", "order_id", id)
	return nil
}

// GetByID retrieves an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		r.logger.Warn("Order not found", "order_id", id)
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %v", err)
	}

	items, err := r.ItemsByOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

// ListByCustomer returns a customer's orders, newest first, without
// items.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`,
		customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %v", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %v", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// ItemsByOrder returns all line items of an order.
func (r *OrderRepository) ItemsByOrder(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM order_items WHERE order_id = $1 ORDER BY id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %v", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %v", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// GetItemByID retrieves a single order item.
func (r *OrderRepository) GetItemByID(ctx context.Context, itemID string) (*models.OrderItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM order_items WHERE id = $1`, itemID)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrOrderItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order item: %v", err)
	}
	return item, nil
}

// FinalizeItemWeight sets the final weight and line total on a
// weight-based item. The update is conditional on final_weight_g still
// being null, so two concurrent finalizations cannot both succeed.
// Returns false when the guard rejected the write.
func (r *OrderRepository) FinalizeItemWeight(ctx context.Context, itemID string, finalWeightG int, lineTotalFinal float64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE order_items
		SET final_weight_g = $2, line_total_final = $3
		WHERE id = $1 AND is_weight_based AND final_weight_g IS NULL`,
		itemID, finalWeightG, lineTotalFinal)
	if err != nil {
		return false, fmt.Errorf("failed to finalize item weight: %v", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %v", err)
	}
	return rows > 0, nil
}

// SetGrandTotalFinal records the recomputed order total once every
// weight-based item has been finalized.
func (r *OrderRepository) SetGrandTotalFinal(ctx context.Context, orderID string, total float64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET grand_total_final = $2, updated_at = $3 WHERE id = $1`,
		orderID, total, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set final order total: %v", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return models.ErrOrderNotFound
	}
	return nil
}

// ApplyPaymentOutcome updates payment_status and status on the order.
// The predicate makes a replayed callback a no-op: the row is touched
// only when the target state differs from the current state. Returns
// whether anything changed.
func (r *OrderRepository) ApplyPaymentOutcome(ctx context.Context, orderID string, paymentStatus models.PaymentStatus, status models.OrderStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status = $2, status = $3, updated_at = $4
		WHERE id = $1 AND (payment_status IS DISTINCT FROM $2 OR status IS DISTINCT FROM $3)`,
		orderID, paymentStatus, status, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to update order payment state: %v", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %v", err)
	}
	return rows > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	err := row.Scan(
		&order.ID, &order.CustomerID, &order.OutletID, &order.Status,
		&order.Subtotal, &order.DeliveryFee, &order.TaxTotal, &order.DiscountTotal,
		&order.GrandTotalEst, &order.GrandTotalFinal, &order.PaymentStatus, &order.PaymentMethod,
		&order.DeliveryWindowStart, &order.DeliveryWindowEnd, &order.DeliveryAddressID,
		&order.Notes, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func scanItem(row rowScanner) (*models.OrderItem, error) {
	var item models.OrderItem
	err := row.Scan(
		&item.ID, &item.OrderID, &item.ProductID, &item.NameSnapshot, &item.IsWeightBased,
		&item.EstWeightG, &item.FinalWeightG, &item.UnitPrice, &item.Quantity,
		&item.PricePerKg, &item.LineTotalEst, &item.LineTotalFinal)
	if err != nil {
		return nil, err
	}
	return &item, nil
}
