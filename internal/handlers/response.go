package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sbilibin2017/gw-payment-webhooks/internal/logger"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Errorw("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}
