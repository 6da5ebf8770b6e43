package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TheoDuToit1/sella/models"
	"github.com/TheoDuToit1/sella/pkg/database"
	"github.com/TheoDuToit1/sella/pkg/logger"
)

type RewardRepositoryInterface interface {
	GetOrCreateWallet(ctx context.Context, customerID string) (*models.RewardWallet, error)
	GetWalletByID(ctx context.Context, walletID string) (*models.RewardWallet, error)
	Redeem(ctx context.Context, walletID, orderID string, points int) error
	AccrueForOrder(ctx context.Context, walletID, orderID string, points int, memo string) (bool, error)
}

type RewardRepository struct {
	db     *database.DB
	logger *logger.Logger
}

func NewRewardRepository(log *logger.Logger, db *database.DB) *RewardRepository {
	return &RewardRepository{
		db:     db,
		logger: log.WithComponent("reward_repository"),
	}
}

const walletColumns = `id, customer_id, balance_points, created_at, updated_at`

// GetOrCreateWallet returns the customer's wallet, creating an empty one
// on first touch.
func (r *RewardRepository) GetOrCreateWallet(ctx context.Context, customerID string) (*models.RewardWallet, error) {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reward_wallets (id, customer_id, balance_points, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $4)
		ON CONFLICT (customer_id) DO NOTHING`,
		uuid.NewString(), customerID, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure wallet: %v", err)
	}

	var wallet models.RewardWallet
	err = r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM reward_wallets WHERE customer_id = $1`, customerID).
		Scan(&wallet.ID, &wallet.CustomerID, &wallet.BalancePoints, &wallet.CreatedAt, &wallet.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet: %v", err)
	}
	return &wallet, nil
}

func (r *RewardRepository) GetWalletByID(ctx context.Context, walletID string) (*models.RewardWallet, error) {
	var wallet models.RewardWallet
	err := r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM reward_wallets WHERE id = $1`, walletID).
		Scan(&wallet.ID, &wallet.CustomerID, &wallet.BalancePoints, &wallet.CreatedAt, &wallet.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet: %v", err)
	}
	return &wallet, nil
}

// Redeem decrements the balance and appends the redeem ledger row as one
// transaction. The balance guard in the UPDATE predicate is what keeps
// concurrent redemptions from over-drawing: whichever statement runs
// second sees the reduced balance.
func (r *RewardRepository) Redeem(ctx context.Context, walletID, orderID string, points int) error {
	err := r.db.ExecuteInTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE reward_wallets
			SET balance_points = balance_points - $2, updated_at = $3
			WHERE id = $1 AND balance_points >= $2`,
			walletID, points, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to decrement balance: %v", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %v", err)
		}
		if rows == 0 {
			return models.ErrInsufficientBalance
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO reward_transactions (id, wallet_id, type, points, memo, order_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.NewString(), walletID, models.RewardRedeem, -points,
			fmt.Sprintf("Redeemed %d points against order", points), orderID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to insert redeem transaction: %v", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("Redeemed points", "wallet_id", walletID, "order_id", orderID, "points", points)
	return nil
}

// AccrueForOrder appends an earn row and increments the balance, once
// per order: the insert is guarded by an existence check on an earlier
// earn row for the same order, so a duplicate callback cannot
// double-accrue. Returns whether points were awarded.
func (r *RewardRepository) AccrueForOrder(ctx context.Context, walletID, orderID string, points int, memo string) (bool, error) {
	var accrued bool
	err := r.db.ExecuteInTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO reward_transactions (id, wallet_id, type, points, memo, order_id, created_at)
			SELECT $1, $2, $3, $4, $5, $6, $7
			WHERE NOT EXISTS (
				SELECT 1 FROM reward_transactions WHERE order_id = $6 AND type = $3
			)`,
			uuid.NewString(), walletID, models.RewardEarn, points, memo, orderID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to insert earn transaction: %v", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %v", err)
		}
		if rows == 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE reward_wallets
			SET balance_points = balance_points + $2, updated_at = $3
			WHERE id = $1`,
			walletID, points, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to increment balance: %v", err)
		}

		accrued = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if accrued {
		r.logger.Info("Accrued points", "wallet_id", walletID, "order_id", orderID, "points", points)
	} else {
		r.logger.Debug("Points already accrued for order", "order_id", orderID)
	}
	return accrued, nil
}
