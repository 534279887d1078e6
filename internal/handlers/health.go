package handlers

import (
	"net/http"
	"time"

	"github.com/sbilibin2017/gw-payment-webhooks/internal/models"
)

// NewHealthHandler returns a liveness handler.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router / [get]
func NewHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.HealthResponse{
			Status:      "HEALTHY",
			CurrentTime: time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}
