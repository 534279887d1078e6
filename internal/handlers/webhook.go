package handlers

//go:generate mockgen -source=webhook.go -destination=webhook_mock.go -package=handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sbilibin2017/gw-payment-webhooks/internal/logger"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/models"
)

// TransactionIngester defines the service method needed by the webhook handler.
type TransactionIngester interface {
	Ingest(ctx context.Context, req models.WebhookRequest) (models.IngestOutcome, error)
}

// NewTransactionWebhookHandler returns an HTTP handler that accepts transaction webhooks.
// When ackOnStorageFailure is set, storage failures are still acknowledged with 202.
// @Summary Receive transaction webhook
// @Description Records the transaction and schedules settlement. Duplicate deliveries are acknowledged without reprocessing.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param request body models.WebhookRequest true "Transaction webhook"
// @Success 202 {object} models.WebhookAcceptedResponse "Accepted"
// @Failure 400 {object} models.ErrorResponse "Malformed JSON"
// @Failure 422 {object} models.ErrorResponse "Missing or invalid fields"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /v1/webhooks/transactions [post]
func NewTransactionWebhookHandler(svc TransactionIngester, ackOnStorageFailure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.WebhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Log.Warnw("failed to decode webhook", "error", err)
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				writeError(w, http.StatusBadRequest, "Invalid request body")
				return
			}
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		if err := req.Validate(); err != nil {
			logger.Log.Warnw("invalid webhook", "transaction_id", req.TransactionID, "error", err)
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		outcome, err := svc.Ingest(r.Context(), req)
		if err != nil {
			if errors.Is(err, models.ErrStorageFailure) && ackOnStorageFailure {
				logger.Log.Errorw("acknowledging webhook despite storage failure",
					"transaction_id", req.TransactionID,
					"error", err,
				)
				writeJSON(w, http.StatusAccepted, models.WebhookAcceptedResponse{})
				return
			}
			logger.Log.Errorw("failed to ingest webhook", "transaction_id", req.TransactionID, "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		logger.Log.Infow("webhook acknowledged", "transaction_id", req.TransactionID, "outcome", outcome)
		writeJSON(w, http.StatusAccepted, models.WebhookAcceptedResponse{})
	}
}
