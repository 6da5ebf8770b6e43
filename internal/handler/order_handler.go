package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/TheoDuToit1/sella/internal/service"
	"github.com/TheoDuToit1/sella/models"
	"github.com/TheoDuToit1/sella/pkg/logger"
)

type OrderHandler struct {
	orderService service.OrderServiceInterface
	logger       *logger.Logger
}

func NewOrderHandler(orderService service.OrderServiceInterface, log *logger.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       log.WithComponent("order_handler"),
	}
}

// CreateOrder handles POST /api/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	reqCtx := &logger.RequestContext{
		Method:     r.Method,
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
		StartTime:  time.Now(),
	}
	h.logger.LogRequest(reqCtx)

	var createReq service.CreateOrderRequest
	if err := parseRequestBody(r, &createReq); err != nil {
		h.logger.Warn("Invalid request body for create order", "error", err)
		writeErrorResponse(w, h.logger, http.StatusBadRequest, "Invalid request body")
		reqCtx.StatusCode = http.StatusBadRequest
		h.logger.LogResponse(reqCtx)
		return
	}

	order, err := h.orderService.CreateOrder(r.Context(), createReq)
	if err != nil {
		statusCode := orderCreateStatus(err)

		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			writeJSONResponse(w, h.logger, statusCode, map[string]interface{}{
				"error":   "Invalid request data",
				"details": validationErr.Fields,
			})
		} else {
			writeErrorResponse(w, h.logger, statusCode, err.Error())
		}

		h.logger.Warn("Failed to create order", "error", err)
		reqCtx.StatusCode = statusCode
		h.logger.LogResponse(reqCtx)
		return
	}

	writeJSONResponse(w, h.logger, http.StatusCreated, map[string]interface{}{
		"success": true,
		"orderId": order.ID,
		"message": "Order created successfully",
	})
	reqCtx.StatusCode = http.StatusCreated
	h.logger.LogResponse(reqCtx)
}

// GetOrderByID handles GET /api/orders/{id}
func (h *OrderHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	reqCtx := &logger.RequestContext{
		Method:     r.Method,
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
		StartTime:  time.Now(),
	}
	h.logger.LogRequest(reqCtx)

	id := chi.URLParam(r, "id")

	order, err := h.orderService.GetOrderByID(r.Context(), id)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if errors.Is(err, models.ErrOrderNotFound) {
			statusCode = http.StatusNotFound
		}
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			statusCode = http.StatusBadRequest
		}

		h.logger.Warn("Failed to get order", "order_id", id, "error", err)
		writeErrorResponse(w, h.logger, statusCode, "Order not found")
		reqCtx.StatusCode = statusCode
		h.logger.LogResponse(reqCtx)
		return
	}

	writeJSONResponse(w, h.logger, http.StatusOK, order)
	reqCtx.StatusCode = http.StatusOK
	h.logger.LogResponse(reqCtx)
}

// ListOrders handles GET /api/orders?customer_id={id}
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	reqCtx := &logger.RequestContext{
		Method:     r.Method,
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
		StartTime:  time.Now(),
	}
	h.logger.LogRequest(reqCtx)

	customerID := r.URL.Query().Get("customer_id")

	orders, err := h.orderService.ListOrdersByCustomer(r.Context(), customerID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			statusCode = http.StatusBadRequest
		}

		h.logger.Warn("Failed to list orders", "customer_id", customerID, "error", err)
		writeErrorResponse(w, h.logger, statusCode, "Failed to fetch orders")
		reqCtx.StatusCode = statusCode
		h.logger.LogResponse(reqCtx)
		return
	}

	writeJSONResponse(w, h.logger, http.StatusOK, orders)
	reqCtx.StatusCode = http.StatusOK
	h.logger.LogResponse(reqCtx)
}

func orderCreateStatus(err error) int {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, models.ErrCrossMerchantCart),
		errors.Is(err, models.ErrTotalsMismatch),
		errors.Is(err, models.ErrInvalidTimeWindow):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
