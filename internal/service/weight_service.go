package service

import (
	"context"
	"fmt"
	"math"

	"github.com/TheoDuToit1/sella/internal/repositories"
	"github.com/TheoDuToit1/sella/models"
	"github.com/TheoDuToit1/sella/pkg/logger"
)

// significantDeviationRatio flags finalized weights differing from the
// estimate by more than 10%. Advisory only.
const significantDeviationRatio = 0.10

// settlementTolerance is the delta below which no charge or refund is
// raised.
const settlementTolerance = 0.01

// SettlementAction says what the finalized order total requires from the
// payment side.
type SettlementAction string

const (
	SettlementCharge SettlementAction = "CHARGE"
	SettlementRefund SettlementAction = "REFUND"
	SettlementNone   SettlementAction = "NONE"
)

// Settlement is the signed outcome of total finalization. Amount is
// always positive; Action carries the direction.
type Settlement struct {
	Action SettlementAction `json:"action"`
	Amount float64          `json:"amount"`
}

// FinalizeResult reports one successful weight finalization.
type FinalizeResult struct {
	OrderID              string      `json:"order_id"`
	NewLineTotal         float64     `json:"new_line_total"`
	SignificantDeviation bool        `json:"significant_deviation"`
	OrderFinalized       bool        `json:"order_finalized"`
	GrandTotalFinal      *float64    `json:"grand_total_final,omitempty"`
	Settlement           *Settlement `json:"settlement,omitempty"`
}

type WeightServiceInterface interface {
	FinalizeWeight(ctx context.Context, orderItemID string, finalWeightG int) (*FinalizeResult, error)
}

type WeightService struct {
	orderRepo repositories.OrderRepositoryInterface
	auditRepo repositories.AuditRepositoryInterface
	logger    *logger.Logger
}

func NewWeightService(
	orderRepo repositories.OrderRepositoryInterface,
	auditRepo repositories.AuditRepositoryInterface,
	log *logger.Logger,
) *WeightService {
	return &WeightService{
		orderRepo: orderRepo,
		auditRepo: auditRepo,
		logger:    log.WithComponent("weight_service"),
	}
}

// FinalizeWeight applies a measured weight to a weight-based line item.
// The transition null→set happens exactly once: the repository update is
// conditional on final_weight_g still being null, so a concurrent second
// call loses and gets ErrAlreadyFinalized. When the last weight-based
// item of the order is finalized, the order total is recomputed and a
// settlement decision returned.
func (s *WeightService) FinalizeWeight(ctx context.Context, orderItemID string, finalWeightG int) (*FinalizeResult, error) {
	if finalWeightG <= 0 {
		return nil, models.ErrInvalidWeight
	}

	item, err := s.orderRepo.GetItemByID(ctx, orderItemID)
	if err != nil {
		return nil, err
	}
	if !item.IsWeightBased {
		return nil, models.ErrNotWeightBased
	}
	if item.Finalized() {
		return nil, models.ErrAlreadyFinalized
	}
	if item.PricePerKg == nil {
		return nil, fmt.Errorf("order item %s has no price per kg", orderItemID)
	}

	lineTotal := float64(finalWeightG) / 1000 * *item.PricePerKg

	updated, err := s.orderRepo.FinalizeItemWeight(ctx, orderItemID, finalWeightG, lineTotal)
	if err != nil {
		return nil, err
	}
	if !updated {
		// Lost the race against a concurrent finalization.
		return nil, models.ErrAlreadyFinalized
	}

	result := &FinalizeResult{
		OrderID:      item.OrderID,
		NewLineTotal: lineTotal,
	}
	if item.EstWeightG != nil {
		est := float64(*item.EstWeightG)
		result.SignificantDeviation = math.Abs(float64(finalWeightG)-est) > significantDeviationRatio*est
	}

	s.logger.Info("Finalized item weight",
		"order_item_id", orderItemID,
		"order_id", item.OrderID,
		"final_weight_g", finalWeightG,
		"new_line_total", lineTotal,
		"significant_deviation", result.SignificantDeviation)

	if err := s.maybeFinalizeOrder(ctx, item.OrderID, result); err != nil {
		// The line item is committed; total recomputation failing is
		// surfaced but does not undo the finalization.
		s.logger.Error("Order total recomputation failed", "order_id", item.OrderID, "error", err)
		return result, nil
	}

	if err := s.auditRepo.Append(ctx, &models.AuditLog{
		Entity:   "order_items",
		EntityID: orderItemID,
		Action:   "finalize_weight",
		Diff: map[string]interface{}{
			"final_weight_g":        finalWeightG,
			"line_total_final":      lineTotal,
			"significant_deviation": result.SignificantDeviation,
			"order_finalized":       result.OrderFinalized,
		},
	}); err != nil {
		s.logger.Warn("Failed to write finalization audit log", "order_item_id", orderItemID, "error", err)
	}

	return result, nil
}

// maybeFinalizeOrder recomputes grand_total_final once every
// weight-based item carries a final weight. Until then the order stays
// estimate-priced.
func (s *WeightService) maybeFinalizeOrder(ctx context.Context, orderID string, result *FinalizeResult) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	subtotal := 0.0
	for _, item := range order.Items {
		if item.IsWeightBased {
			if !item.Finalized() || item.LineTotalFinal == nil {
				return nil
			}
			subtotal += *item.LineTotalFinal
		} else {
			subtotal += item.LineTotalEst
		}
	}

	taxTotal := subtotal * taxRate
	grandTotal := subtotal + taxTotal + order.DeliveryFee - order.DiscountTotal

	if err := s.orderRepo.SetGrandTotalFinal(ctx, orderID, grandTotal); err != nil {
		return err
	}

	result.OrderFinalized = true
	result.GrandTotalFinal = &grandTotal
	result.Settlement = settle(grandTotal - order.GrandTotalEst)

	s.logger.Info("Order totals finalized",
		"order_id", orderID,
		"grand_total_final", grandTotal,
		"grand_total_est", order.GrandTotalEst,
		"settlement_action", result.Settlement.Action,
		"settlement_amount", result.Settlement.Amount)
	return nil
}

// settle maps a signed total delta onto an explicit settlement: a
// positive delta becomes a make-up charge, a negative one a refund
// obligation, anything within tolerance no action.
func settle(delta float64) *Settlement {
	switch {
	case delta > settlementTolerance:
		return &Settlement{Action: SettlementCharge, Amount: delta}
	case delta < -settlementTolerance:
		return &Settlement{Action: SettlementRefund, Amount: -delta}
	default:
		return &Settlement{Action: SettlementNone}
	}
}
