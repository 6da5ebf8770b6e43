package handler_test

import (
	"context"

	"github.com/TheoDuToit1/sella/internal/service"
	"github.com/TheoDuToit1/sella/models"
	"github.com/TheoDuToit1/sella/pkg/logger"
)

func newTestLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.LevelError, Format: "text", Output: "stderr"})
}

type stubOrderService struct {
	createOrder func(context.Context, service.CreateOrderRequest) (*models.Order, error)
	getByID     func(context.Context, string) (*models.Order, error)
	list        func(context.Context, string) ([]*models.Order, error)
}

func (s *stubOrderService) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*models.Order, error) {
	return s.createOrder(ctx, req)
}

func (s *stubOrderService) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	return s.getByID(ctx, id)
}

func (s *stubOrderService) ListOrdersByCustomer(ctx context.Context, customerID string) ([]*models.Order, error) {
	return s.list(ctx, customerID)
}

type stubPaymentService struct {
	initiate      func(context.Context, service.InitiatePaymentRequest) (*service.PaymentInitiation, error)
	initiateDelta func(context.Context, string, float64, string, string) (*service.PaymentInitiation, error)
}

func (s *stubPaymentService) InitiatePayment(ctx context.Context, req service.InitiatePaymentRequest) (*service.PaymentInitiation, error) {
	return s.initiate(ctx, req)
}

func (s *stubPaymentService) InitiateDeltaPayment(ctx context.Context, orderID string, deltaAmount float64, customerEmail, customerName string) (*service.PaymentInitiation, error) {
	return s.initiateDelta(ctx, orderID, deltaAmount, customerEmail, customerName)
}

type stubReconcileService struct {
	lastFields map[string]string
	result     *service.NotificationResult
	err        error
}

func (s *stubReconcileService) ProcessNotification(ctx context.Context, fields map[string]string) (*service.NotificationResult, error) {
	s.lastFields = fields
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubWeightService struct {
	finalize func(context.Context, string, int) (*service.FinalizeResult, error)
}

func (s *stubWeightService) FinalizeWeight(ctx context.Context, orderItemID string, finalWeightG int) (*service.FinalizeResult, error) {
	return s.finalize(ctx, orderItemID, finalWeightG)
}
