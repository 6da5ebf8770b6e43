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

type WeightHandler struct {
	weightService service.WeightServiceInterface
	logger        *logger.Logger
}

func NewWeightHandler(weightService service.WeightServiceInterface, log *logger.Logger) *WeightHandler {
	return &WeightHandler{
		weightService: weightService,
		logger:        log.WithComponent("weight_handler"),
	}
}

type finalizeWeightRequest struct {
	FinalWeightG int `json:"final_weight_g"`
}

// FinalizeWeight handles POST /api/order-items/{id}/finalize-weight
func (h *WeightHandler) FinalizeWeight(w http.ResponseWriter, r *http.Request) {
	reqCtx := &logger.RequestContext{
		Method:     r.Method,
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
		StartTime:  time.Now(),
	}
	h.logger.LogRequest(reqCtx)

	itemID := chi.URLParam(r, "id")
	if itemID == "" {
		writeErrorResponse(w, h.logger, http.StatusBadRequest, "Order item ID is required")
		reqCtx.StatusCode = http.StatusBadRequest
		h.logger.LogResponse(reqCtx)
		return
	}

	var finalizeReq finalizeWeightRequest
	if err := parseRequestBody(r, &finalizeReq); err != nil {
		h.logger.Warn("Invalid request body for finalize weight", "error", err)
		writeErrorResponse(w, h.logger, http.StatusBadRequest, "Invalid request body")
		reqCtx.StatusCode = http.StatusBadRequest
		h.logger.LogResponse(reqCtx)
		return
	}

	result, err := h.weightService.FinalizeWeight(r.Context(), itemID, finalizeReq.FinalWeightG)
	if err != nil {
		statusCode := http.StatusInternalServerError
		switch {
		case errors.Is(err, models.ErrOrderItemNotFound):
			statusCode = http.StatusNotFound
		case errors.Is(err, models.ErrAlreadyFinalized):
			// Surfaces to the merchant operator as "already finalized",
			// never a silent overwrite.
			statusCode = http.StatusConflict
		case errors.Is(err, models.ErrInvalidWeight), errors.Is(err, models.ErrNotWeightBased):
			statusCode = http.StatusBadRequest
		}

		h.logger.Warn("Failed to finalize weight", "order_item_id", itemID, "error", err)
		writeJSONResponse(w, h.logger, statusCode, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		reqCtx.StatusCode = statusCode
		h.logger.LogResponse(reqCtx)
		return
	}

	writeJSONResponse(w, h.logger, http.StatusOK, map[string]interface{}{
		"success":              true,
		"newLineTotal":         result.NewLineTotal,
		"significantDeviation": result.SignificantDeviation,
		"orderFinalized":       result.OrderFinalized,
		"grandTotalFinal":      result.GrandTotalFinal,
		"settlement":           result.Settlement,
	})
	reqCtx.StatusCode = http.StatusOK
	h.logger.LogResponse(reqCtx)
}
