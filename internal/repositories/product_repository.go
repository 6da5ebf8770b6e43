package repositories

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/TheoDuToit1/sella/models"
	"github.com/TheoDuToit1/sella/pkg/database"
	"github.com/TheoDuToit1/sella/pkg/logger"
)

type ProductRepositoryInterface interface {
	GetByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	FirstOutletForMerchant(ctx context.Context, merchantID string) (string, error)
}

type ProductRepository struct {
	db     *database.DB
	logger *logger.Logger
}

func NewProductRepository(log *logger.Logger, db *database.DB) *ProductRepository {
	return &ProductRepository{
		db:     db,
		logger: log.WithComponent("product_repository"),
	}
}

// GetByIDs returns the catalog rows for the given product ids.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, merchant_id, name, is_weight_based, unit_price, price_per_kg
		FROM products WHERE id = ANY($1)`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %v", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.MerchantID, &p.Name, &p.IsWeightBased, &p.UnitPrice, &p.PricePerKg); err != nil {
			return nil, fmt.Errorf("failed to scan product: %v", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// FirstOutletForMerchant resolves the outlet an order is routed to.
func (r *ProductRepository) FirstOutletForMerchant(ctx context.Context, merchantID string) (string, error) {
	var outletID string
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM merchant_outlets WHERE merchant_id = $1 ORDER BY created_at LIMIT 1`,
		merchantID).Scan(&outletID)
	if err != nil {
		return "", fmt.Errorf("merchant outlet not found: %v", err)
	}
	return outletID, nil
}
