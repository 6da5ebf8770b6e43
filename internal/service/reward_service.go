package service

import (
	"context"
	"fmt"
	"math"

	"github.com/TheoDuToit1/sella/internal/repositories"
	"github.com/TheoDuToit1/sella/models"
	"github.com/TheoDuToit1/sella/pkg/logger"
)

// Points are cents-equivalent: 100 points = R10. Accrual runs at 1% of
// the paid order value.
const (
	minRedemptionPoints   = 100
	redemptionGranularity = 100
	pointsPerRand         = 100
	accrualRate           = 0.01
)

type RewardServiceInterface interface {
	GetWallet(ctx context.Context, customerID string) (*models.RewardWallet, error)
	RedeemPoints(ctx context.Context, walletID, orderID string, points int) (float64, error)
	RedeemForCustomer(ctx context.Context, customerID, orderID string, points int) (float64, error)
	AccrueForOrder(ctx context.Context, customerID, orderID string, orderTotal float64) (int, error)
}

type RewardService struct {
	rewardRepo repositories.RewardRepositoryInterface
	logger     *logger.Logger
}

func NewRewardService(rewardRepo repositories.RewardRepositoryInterface, log *logger.Logger) *RewardService {
	return &RewardService{
		rewardRepo: rewardRepo,
		logger:     log.WithComponent("reward_service"),
	}
}

// GetWallet returns the customer's wallet, creating an empty one on
// first touch.
func (s *RewardService) GetWallet(ctx context.Context, customerID string) (*models.RewardWallet, error) {
	return s.rewardRepo.GetOrCreateWallet(ctx, customerID)
}

// RedeemPoints converts points into a rand discount. Redemption must be
// at least 100 points, in multiples of 100, and within the current
// balance; the balance check and ledger insert are one atomic unit in
// the repository.
func (s *RewardService) RedeemPoints(ctx context.Context, walletID, orderID string, points int) (float64, error) {
	if points < minRedemptionPoints {
		return 0, models.ErrBelowMinRedemption
	}
	if points%redemptionGranularity != 0 {
		return 0, models.ErrNotMultipleOf100
	}

	if err := s.rewardRepo.Redeem(ctx, walletID, orderID, points); err != nil {
		s.logger.Warn("Redemption rejected", "wallet_id", walletID, "order_id", orderID, "points", points, "error", err)
		return 0, err
	}

	discount := float64(points) / pointsPerRand
	s.logger.Info("Points redeemed", "wallet_id", walletID, "order_id", orderID, "points", points, "discount", discount)
	return discount, nil
}

// RedeemForCustomer resolves the customer's wallet and redeems against
// it.
func (s *RewardService) RedeemForCustomer(ctx context.Context, customerID, orderID string, points int) (float64, error) {
	wallet, err := s.rewardRepo.GetOrCreateWallet(ctx, customerID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve wallet: %v", err)
	}
	return s.RedeemPoints(ctx, wallet.ID, orderID, points)
}

// AccrueForOrder awards floor(total * 1%) in cents-points, once per
// order. A duplicate callback for the same order accrues nothing; the
// order id is the idempotency key.
func (s *RewardService) AccrueForOrder(ctx context.Context, customerID, orderID string, orderTotal float64) (int, error) {
	points := int(math.Floor(orderTotal * accrualRate * pointsPerRand))
	if points <= 0 {
		return 0, nil
	}

	wallet, err := s.rewardRepo.GetOrCreateWallet(ctx, customerID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve wallet: %v", err)
	}

	memo := fmt.Sprintf("Earned %d points on order", points)
	accrued, err := s.rewardRepo.AccrueForOrder(ctx, wallet.ID, orderID, points, memo)
	if err != nil {
		return 0, err
	}
	if !accrued {
		s.logger.Debug("Accrual skipped, already recorded", "order_id", orderID)
		return 0, nil
	}

	return points, nil
}
