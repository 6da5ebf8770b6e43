package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheoDuToit1/sella/models"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func testProducts() []models.Product {
	return []models.Product{
		{ID: "prod-fixed", MerchantID: "merch-1", Name: "Oat Milk", UnitPrice: floatPtr(25)},
		{ID: "prod-weight", MerchantID: "merch-1", Name: "Lamb Chops", IsWeightBased: true, PricePerKg: floatPtr(100)},
		{ID: "prod-other", MerchantID: "merch-2", Name: "Rye Bread", UnitPrice: floatPtr(30)},
	}
}

func newOrderServiceForTest(orderRepo *fakeOrderRepo, rewards *fakeRewards) (*OrderService, *fakeAuditRepo) {
	audit := &fakeAuditRepo{}
	svc := NewOrderService(orderRepo, newFakeProductRepo(testProducts()...), audit, rewards, newTestLogger())
	svc.now = func() time.Time {
		return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	}
	return svc, audit
}

// Two fixed units at R25 plus 500g at R100/kg: subtotal 100, 15% tax,
// R35 delivery fee, grand total estimate 150.
func validCreateRequest() CreateOrderRequest {
	return CreateOrderRequest{
		CustomerID:        "cust-1",
		DeliveryAddressID: "addr-1",
		DeliveryWindow:    "10:00 - 12:00",
		PaymentMethod:     models.MethodPayFast,
		Items: []CreateOrderItemRequest{
			{ProductID: "prod-fixed", Name: "Oat Milk", Quantity: 2, UnitPrice: floatPtr(25), EstimatedTotal: 50},
			{ProductID: "prod-weight", Name: "Lamb Chops", IsWeightBased: true, EstimatedWeightG: intPtr(500), Quantity: 1, PricePerKg: floatPtr(100), EstimatedTotal: 50},
		},
		Subtotal:      100,
		DeliveryFee:   35,
		TaxTotal:      15,
		GrandTotalEst: 150,
	}
}

func TestCreateOrder(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	rewards := &fakeRewards{}
	svc, audit := newOrderServiceForTest(orderRepo, rewards)

	order, err := svc.CreateOrder(context.Background(), validCreateRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, models.OrderPlaced, order.Status)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
	assert.Equal(t, "outlet-1", order.OutletID)
	assert.InDelta(t, 150, order.GrandTotalEst, 0.001)
	assert.Len(t, order.Items, 2)

	require.NotNil(t, order.DeliveryWindowStart)
	require.NotNil(t, order.DeliveryWindowEnd)
	assert.Equal(t, 10, order.DeliveryWindowStart.Hour())
	assert.Equal(t, 12, order.DeliveryWindowEnd.Hour())

	stored, err := orderRepo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)

	assert.Empty(t, rewards.redeemCalls)
	assert.Equal(t, 1, audit.count())
}

func TestCreateOrderRedeemsPoints(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	rewards := &fakeRewards{}
	svc, _ := newOrderServiceForTest(orderRepo, rewards)

	req := validCreateRequest()
	req.RewardPointsUsed = 200

	_, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []int{200}, rewards.redeemCalls)
}

func TestCreateOrderRedemptionFailureDoesNotFailOrder(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	rewards := &fakeRewards{redeemErr: models.ErrInsufficientBalance}
	svc, _ := newOrderServiceForTest(orderRepo, rewards)

	req := validCreateRequest()
	req.RewardPointsUsed = 500

	order, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _ := newOrderServiceForTest(newFakeOrderRepo(), &fakeRewards{})

	req := validCreateRequest()
	req.CustomerID = ""
	req.Items[0].Quantity = 0

	_, err := svc.CreateOrder(context.Background(), req)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Fields, 2)
}

func TestCreateOrderUnsupportedPaymentMethod(t *testing.T) {
	svc, _ := newOrderServiceForTest(newFakeOrderRepo(), &fakeRewards{})

	req := validCreateRequest()
	req.PaymentMethod = "BITCOIN"

	_, err := svc.CreateOrder(context.Background(), req)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "payment_method", vErr.Fields[0].Field)
}

func TestCreateOrderCrossMerchantCart(t *testing.T) {
	svc, _ := newOrderServiceForTest(newFakeOrderRepo(), &fakeRewards{})

	req := validCreateRequest()
	req.Items = append(req.Items, CreateOrderItemRequest{
		ProductID: "prod-other", Name: "Rye Bread", Quantity: 1, EstimatedTotal: 30,
	})
	req.Subtotal = 130
	req.TaxTotal = 19.5
	req.GrandTotalEst = 184.5

	_, err := svc.CreateOrder(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrCrossMerchantCart)
}

func TestCreateOrderTotalsMismatch(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateOrderRequest)
	}{
		{"line total", func(r *CreateOrderRequest) { r.Items[0].EstimatedTotal = 60 }},
		{"subtotal", func(r *CreateOrderRequest) { r.Subtotal = 90 }},
		{"tax", func(r *CreateOrderRequest) { r.TaxTotal = 10 }},
		{"grand total", func(r *CreateOrderRequest) { r.GrandTotalEst = 140 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newOrderServiceForTest(newFakeOrderRepo(), &fakeRewards{})
			req := validCreateRequest()
			tt.mutate(&req)

			_, err := svc.CreateOrder(context.Background(), req)
			assert.ErrorIs(t, err, models.ErrTotalsMismatch)
		})
	}
}

func TestCreateOrderToleratesRoundingDrift(t *testing.T) {
	svc, _ := newOrderServiceForTest(newFakeOrderRepo(), &fakeRewards{})

	req := validCreateRequest()
	req.TaxTotal = 15.005

	_, err := svc.CreateOrder(context.Background(), req)
	assert.NoError(t, err)
}

func TestCreateOrderInvalidWindow(t *testing.T) {
	svc, _ := newOrderServiceForTest(newFakeOrderRepo(), &fakeRewards{})

	req := validCreateRequest()
	req.DeliveryWindow = "14:00 - 12:00"

	_, err := svc.CreateOrder(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrInvalidTimeWindow)
}

func TestCreateOrderCompensatingDelete(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	orderRepo.createErr = errors.New("connection reset")
	svc, _ := newOrderServiceForTest(orderRepo, &fakeRewards{})

	_, err := svc.CreateOrder(context.Background(), validCreateRequest())
	require.Error(t, err)
	assert.Len(t, orderRepo.deleted, 1)
}

func TestGetOrderByID(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	orderRepo.add(&models.Order{ID: "ord-1", CustomerID: "cust-1"})
	svc, _ := newOrderServiceForTest(orderRepo, &fakeRewards{})

	order, err := svc.GetOrderByID(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "ord-1", order.ID)

	_, err = svc.GetOrderByID(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrOrderNotFound)

	_, err = svc.GetOrderByID(context.Background(), "")
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestParseDeliveryWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	t.Run("future window stays today", func(t *testing.T) {
		start, end, err := ParseDeliveryWindow("10:00 - 12:00", now)
		require.NoError(t, err)
		assert.Equal(t, 10, start.Day())
		assert.Equal(t, 10, start.Hour())
		assert.Equal(t, 12, end.Hour())
	})

	t.Run("elapsed window rolls to tomorrow", func(t *testing.T) {
		start, end, err := ParseDeliveryWindow("06:00 - 07:00", now)
		require.NoError(t, err)
		assert.Equal(t, 11, start.Day())
		assert.Equal(t, 11, end.Day())
	})

	t.Run("end before start rejected", func(t *testing.T) {
		_, _, err := ParseDeliveryWindow("14:00 - 12:00", now)
		assert.ErrorIs(t, err, models.ErrInvalidTimeWindow)
	})

	t.Run("zero-length window rejected", func(t *testing.T) {
		_, _, err := ParseDeliveryWindow("12:00 - 12:00", now)
		assert.ErrorIs(t, err, models.ErrInvalidTimeWindow)
	})

	t.Run("malformed input", func(t *testing.T) {
		for _, window := range []string{"", "10:00", "10:00-12:00", "ten - noon"} {
			_, _, err := ParseDeliveryWindow(window, now)
			assert.Error(t, err, "window %q", window)
		}
	})
}
