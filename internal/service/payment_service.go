package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TheoDuToit1/sella/internal/payfast"
	"github.com/TheoDuToit1/sella/internal/repositories"
	"github.com/TheoDuToit1/sella/models"
	"github.com/TheoDuToit1/sella/pkg/logger"
)

const providerPayFast = "PAYFAST"

type InitiatePaymentRequest struct {
	OrderID       string `json:"orderId"`
	CustomerEmail string `json:"customerEmail"`
	CustomerName  string `json:"customerName"`
	ReturnURL     string `json:"returnUrl,omitempty"`
	CancelURL     string `json:"cancelUrl,omitempty"`
}

// PaymentInitiation carries everything the client needs to submit the
// redirect form to the gateway.
type PaymentInitiation struct {
	PaymentURL  string            `json:"paymentUrl"`
	PaymentData map[string]string `json:"paymentData"`
	Amount      float64           `json:"amount"`
	OrderID     string            `json:"orderId"`
}

type PaymentServiceInterface interface {
	InitiatePayment(ctx context.Context, req InitiatePaymentRequest) (*PaymentInitiation, error)
	InitiateDeltaPayment(ctx context.Context, orderID string, deltaAmount float64, customerEmail, customerName string) (*PaymentInitiation, error)
}

type PaymentService struct {
	orderRepo   repositories.OrderRepositoryInterface
	paymentRepo repositories.PaymentRepositoryInterface
	gateway     *payfast.Service
	baseURL     string
	logger      *logger.Logger
}

func NewPaymentService(
	orderRepo repositories.OrderRepositoryInterface,
	paymentRepo repositories.PaymentRepositoryInterface,
	gateway *payfast.Service,
	baseURL string,
	log *logger.Logger,
) *PaymentService {
	return &PaymentService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		gateway:     gateway,
		baseURL:     baseURL,
		logger:      log.WithComponent("payment_service"),
	}
}

// InitiatePayment builds the signed gateway payload for an order and
// records a PENDING payment attempt. There is no synchronous
// confirmation: the client submits the payload as a form POST and the
// outcome arrives later on the notify webhook.
func (s *PaymentService) InitiatePayment(ctx context.Context, req InitiatePaymentRequest) (*PaymentInitiation, error) {
	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus != models.PaymentPending {
		s.logger.Warn("Payment already processed", "order_id", order.ID, "payment_status", order.PaymentStatus)
		return nil, models.ErrPaymentNotPending
	}

	// Charge the finalized total when weights are in, else the estimate.
	amount := order.GrandTotalEst
	if order.GrandTotalFinal != nil {
		amount = *order.GrandTotalFinal
	}

	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = fmt.Sprintf("%s/customer/orders/%s/payment/success", s.baseURL, order.ID)
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = fmt.Sprintf("%s/customer/orders/%s/payment/cancelled", s.baseURL, order.ID)
	}

	shortRef := order.ID
	if len(shortRef) > 8 {
		shortRef = shortRef[len(shortRef)-8:]
	}

	paymentData := s.gateway.CreatePayment(payfast.PaymentRequest{
		OrderID:         order.ID,
		Amount:          amount,
		CustomerEmail:   req.CustomerEmail,
		CustomerName:    req.CustomerName,
		ItemName:        "Sella order",
		ItemDescription: fmt.Sprintf("Order #%s", shortRef),
		ReturnURL:       returnURL,
		CancelURL:       cancelURL,
		NotifyURL:       s.notifyURL(),
	})

	now := time.Now().UTC()
	payment := &models.Payment{
		ID:        uuid.NewString(),
		OrderID:   order.ID,
		Provider:  providerPayFast,
		Amount:    amount,
		Currency:  "ZAR",
		Status:    models.PaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to store payment record: %v", err)
	}

	s.logger.Info("Payment initiated", "order_id", order.ID, "amount", amount)

	return &PaymentInitiation{
		PaymentURL:  s.gateway.PaymentURL(),
		PaymentData: paymentData,
		Amount:      amount,
		OrderID:     order.ID,
	}, nil
}

// InitiateDeltaPayment raises a make-up charge after weight
// finalization. The payment row is keyed by the derived delta id so the
// callback channel can tell it apart from the primary payment.
func (s *PaymentService) InitiateDeltaPayment(ctx context.Context, orderID string, deltaAmount float64, customerEmail, customerName string) (*PaymentInitiation, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	paymentData := s.gateway.CreateDeltaPayment(payfast.DeltaRequest{
		OriginalOrderID: order.ID,
		DeltaAmount:     deltaAmount,
		CustomerEmail:   customerEmail,
		CustomerName:    customerName,
		ReturnURL:       fmt.Sprintf("%s/customer/orders/%s/payment/success", s.baseURL, order.ID),
		CancelURL:       fmt.Sprintf("%s/customer/orders/%s/payment/cancelled", s.baseURL, order.ID),
		NotifyURL:       s.notifyURL(),
	})

	deltaID := paymentData["m_payment_id"]
	amount := deltaAmount
	if amount < 0 {
		amount = -amount
	}

	now := time.Now().UTC()
	payment := &models.Payment{
		ID:        uuid.NewString(),
		OrderID:   deltaID,
		Provider:  providerPayFast,
		Amount:    amount,
		Currency:  "ZAR",
		Status:    models.PaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to store delta payment record: %v", err)
	}

	s.logger.Info("Delta payment initiated",
		"order_id", order.ID,
		"delta_payment_id", deltaID,
		"amount", amount)

	return &PaymentInitiation{
		PaymentURL:  s.gateway.PaymentURL(),
		PaymentData: paymentData,
		Amount:      amount,
		OrderID:     deltaID,
	}, nil
}

func (s *PaymentService) notifyURL() string {
	return s.baseURL + "/api/payments/payfast/notify"
}
