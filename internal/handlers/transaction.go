package handlers

//go:generate mockgen -source=transaction.go -destination=transaction_mock.go -package=handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/logger"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/models"
)

// TransactionStatusReader defines the service method needed by the status handler.
type TransactionStatusReader interface {
	GetTransaction(ctx context.Context, transactionID string) (*models.TransactionDB, error)
}

// NewGetTransactionHandler returns an HTTP handler for single transaction lookups.
// @Summary Get transaction
// @Description Returns the stored transaction and its processing status.
// @Tags transactions
// @Produce json
// @Param transaction_id path string true "Transaction ID"
// @Success 200 {object} models.TransactionResponse "Transaction"
// @Failure 404 {object} models.ErrorResponse "Transaction not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /v1/transactions/{transaction_id} [get]
func NewGetTransactionHandler(svc TransactionStatusReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		transactionID := chi.URLParam(r, "transaction_id")

		tx, err := svc.GetTransaction(r.Context(), transactionID)
		switch {
		case errors.Is(err, models.ErrTransactionNotFound):
			writeError(w, http.StatusNotFound, "Transaction not found")
			return
		case err != nil:
			logger.Log.Errorw("failed to get transaction", "transaction_id", transactionID, "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		writeJSON(w, http.StatusOK, models.NewTransactionResponse(tx))
	}
}
