package handler

import (
	"net/http"

	"github.com/TheoDuToit1/sella/pkg/database"
	"github.com/TheoDuToit1/sella/pkg/logger"
)

type HealthHandler struct {
	db     *database.DB
	logger *logger.Logger
}

func NewHealthHandler(db *database.DB, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: log.WithComponent("health_handler"),
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.HealthCheck(); err != nil {
		writeJSONResponse(w, h.logger, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "unhealthy",
			"database": "down",
		})
		return
	}

	writeJSONResponse(w, h.logger, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"database": "up",
	})
}
