package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/TheoDuToit1/sella/internal/service"
	"github.com/TheoDuToit1/sella/models"
	"github.com/TheoDuToit1/sella/pkg/logger"
)

// notifyTimeout bounds webhook processing so the gateway gets its
// acknowledgement quickly.
const notifyTimeout = 10 * time.Second

type PaymentHandler struct {
	paymentService   service.PaymentServiceInterface
	reconcileService service.ReconcileServiceInterface
	logger           *logger.Logger
}

func NewPaymentHandler(paymentService service.PaymentServiceInterface, reconcileService service.ReconcileServiceInterface, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService:   paymentService,
		reconcileService: reconcileService,
		logger:           log.WithComponent("payment_handler"),
	}
}

// CreatePayment handles POST /api/payments/payfast
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	reqCtx := &logger.RequestContext{
		Method:     r.Method,
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
		StartTime:  time.Now(),
	}
	h.logger.LogRequest(reqCtx)

	var payReq service.InitiatePaymentRequest
	if err := parseRequestBody(r, &payReq); err != nil {
		h.logger.Warn("Invalid request body for create payment", "error", err)
		writeErrorResponse(w, h.logger, http.StatusBadRequest, "Invalid request body")
		reqCtx.StatusCode = http.StatusBadRequest
		h.logger.LogResponse(reqCtx)
		return
	}

	if payReq.OrderID == "" {
		writeErrorResponse(w, h.logger, http.StatusBadRequest, "orderId is required")
		reqCtx.StatusCode = http.StatusBadRequest
		h.logger.LogResponse(reqCtx)
		return
	}

	initiation, err := h.paymentService.InitiatePayment(r.Context(), payReq)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, models.ErrOrderNotFound) {
			statusCode = http.StatusNotFound
		} else if errors.Is(err, models.ErrPaymentNotPending) {
			statusCode = http.StatusBadRequest
		}

		h.logger.Warn("Failed to initiate payment", "order_id", payReq.OrderID, "error", err)
		writeErrorResponse(w, h.logger, statusCode, err.Error())
		reqCtx.StatusCode = statusCode
		h.logger.LogResponse(reqCtx)
		return
	}

	writeJSONResponse(w, h.logger, http.StatusOK, map[string]interface{}{
		"success": true,
		"payment": initiation,
	})
	reqCtx.StatusCode = http.StatusOK
	h.logger.LogResponse(reqCtx)
}

// Notify handles POST /api/payments/payfast/notify — the asynchronous
// gateway callback. The body arrives as URL-encoded form fields, not
// JSON. Any parseable request is acknowledged with 200 so the gateway
// stops redelivering; only malformed bodies and signature/merchant
// failures get a 4xx.
func (h *PaymentHandler) Notify(w http.ResponseWriter, r *http.Request) {
	reqCtx := &logger.RequestContext{
		Method:     r.Method,
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
		StartTime:  time.Now(),
	}
	h.logger.LogRequest(reqCtx)

	if err := r.ParseForm(); err != nil {
		h.logger.Warn("Malformed notification body", "error", err)
		writeErrorResponse(w, h.logger, http.StatusBadRequest, "Malformed notification")
		reqCtx.StatusCode = http.StatusBadRequest
		h.logger.LogResponse(reqCtx)
		return
	}

	fields := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), notifyTimeout)
	defer cancel()

	result, err := h.reconcileService.ProcessNotification(ctx, fields)
	if err != nil {
		if errors.Is(err, models.ErrInvalidNotification) {
			writeErrorResponse(w, h.logger, http.StatusBadRequest, "Invalid notification")
			reqCtx.StatusCode = http.StatusBadRequest
			h.logger.LogResponse(reqCtx)
			return
		}

		// Logically rejected but structurally valid: acknowledge so the
		// gateway does not retry-storm.
		h.logger.Error("Notification processing failed", "error", err)
		writeJSONResponse(w, h.logger, http.StatusOK, map[string]interface{}{"success": false})
		reqCtx.StatusCode = http.StatusOK
		h.logger.LogResponse(reqCtx)
		return
	}

	writeJSONResponse(w, h.logger, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result,
	})
	reqCtx.StatusCode = http.StatusOK
	h.logger.LogResponse(reqCtx)
}

// NotifyProbe handles GET /api/payments/payfast/notify. The gateway
// sends bare GETs to test endpoint liveness.
func (h *PaymentHandler) NotifyProbe(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, h.logger, http.StatusOK, map[string]string{
		"status": "PayFast webhook endpoint active",
	})
}
