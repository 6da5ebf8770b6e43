package models

import "time"

// Reward points are cents-equivalent loyalty currency: 1 point = R0.01,
// earned at 1% of order value, redeemable in multiples of 100 (R10).

type RewardTxType string

const (
	RewardEarn   RewardTxType = "earn"
	RewardRedeem RewardTxType = "redeem"
	RewardExpire RewardTxType = "expire"
	RewardAdjust RewardTxType = "adjust"
)

// RewardWallet holds a customer's points balance. The balance is never
// negative and always equals the sum of the wallet's transactions.
type RewardWallet struct {
	ID            string    `json:"id" db:"id"`
	CustomerID    string    `json:"customer_id" db:"customer_id"`
	BalancePoints int       `json:"balance_points" db:"balance_points"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// RewardTransaction is an immutable ledger entry with a signed points
// delta.
type RewardTransaction struct {
	ID        string       `json:"id" db:"id"`
	WalletID  string       `json:"wallet_id" db:"wallet_id"`
	Type      RewardTxType `json:"type" db:"type"`
	Points    int          `json:"points" db:"points"`
	Memo      string       `json:"memo" db:"memo"`
	OrderID   string       `json:"order_id,omitempty" db:"order_id"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}
