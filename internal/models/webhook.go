package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// WebhookRequest represents the JSON body of an inbound transaction webhook
// swagger:model WebhookRequest
type WebhookRequest struct {
	// External transaction identifier
	// required: true
	// example: tx1
	TransactionID string `json:"transaction_id"`

	// Source account
	// required: true
	// example: acc_user_789
	SourceAccount string `json:"source_account"`

	// Destination account
	// required: true
	// example: acc_merchant_456
	DestinationAccount string `json:"destination_account"`

	// Amount, stored as-is
	// required: true
	// example: 10.00
	Amount decimal.NullDecimal `json:"amount" swaggertype:"number"`

	// Currency code
	// required: true
	// example: USD
	Currency string `json:"currency"`
}

// Column limits of the transactions table.
const (
	MaxIdentifierLength = 255
	MaxCurrencyLength   = 10
	AmountScale         = 2
	AmountIntegerDigits = 16
)

var maxAmount = decimal.New(1, AmountIntegerDigits)

// Validate checks that every field of the payload is present and fits the
// columns it is stored in.
func (r WebhookRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.TransactionID) == "" {
		missing = append(missing, "transaction_id")
	}
	if strings.TrimSpace(r.SourceAccount) == "" {
		missing = append(missing, "source_account")
	}
	if strings.TrimSpace(r.DestinationAccount) == "" {
		missing = append(missing, "destination_account")
	}
	if !r.Amount.Valid {
		missing = append(missing, "amount")
	}
	if strings.TrimSpace(r.Currency) == "" {
		missing = append(missing, "currency")
	}
	if len(missing) > 0 {
		return errors.New("missing required fields: " + strings.Join(missing, ", "))
	}

	var invalid []string
	for _, f := range []struct {
		name  string
		value string
		max   int
	}{
		{"transaction_id", r.TransactionID, MaxIdentifierLength},
		{"source_account", r.SourceAccount, MaxIdentifierLength},
		{"destination_account", r.DestinationAccount, MaxIdentifierLength},
		{"currency", r.Currency, MaxCurrencyLength},
	} {
		if utf8.RuneCountInString(f.value) > f.max {
			invalid = append(invalid, fmt.Sprintf("%s exceeds %d characters", f.name, f.max))
		}
	}
	if r.Amount.Decimal.Round(AmountScale).Abs().GreaterThanOrEqual(maxAmount) {
		invalid = append(invalid, fmt.Sprintf("amount exceeds %d integer digits", AmountIntegerDigits))
	}
	if len(invalid) > 0 {
		return errors.New("invalid fields: " + strings.Join(invalid, "; "))
	}
	return nil
}

// WebhookAcceptedResponse is the empty body returned with 202 Accepted
// swagger:model WebhookAcceptedResponse
type WebhookAcceptedResponse struct{}

// ErrorResponse represents an error response
// swagger:model ErrorResponse
type ErrorResponse struct {
	// Error message
	// example: Transaction not found
	Error string `json:"error"`
}

// TransactionResponse is the public view of a transaction
// swagger:model TransactionResponse
type TransactionResponse struct {
	TransactionID      string      `json:"transaction_id" example:"tx1"`
	SourceAccount      string      `json:"source_account" example:"acc_user_789"`
	DestinationAccount string      `json:"destination_account" example:"acc_merchant_456"`
	Amount             json.Number `json:"amount" swaggertype:"number" example:"10.00"`
	Currency           string      `json:"currency" example:"USD"`
	Status             string      `json:"status" example:"PROCESSED"`
	CreatedAt          time.Time   `json:"created_at"`
	ProcessedAt        *time.Time  `json:"processed_at"`
}

// NewTransactionResponse maps a stored record to its public view.
// last_error is intentionally not exposed.
func NewTransactionResponse(tx *TransactionDB) TransactionResponse {
	return TransactionResponse{
		TransactionID:      tx.TransactionID,
		SourceAccount:      tx.SourceAccount,
		DestinationAccount: tx.DestinationAccount,
		Amount:             json.Number(tx.Amount.StringFixed(2)),
		Currency:           tx.Currency,
		Status:             string(tx.Status),
		CreatedAt:          tx.CreatedAt,
		ProcessedAt:        tx.ProcessedAt,
	}
}

// HealthResponse is returned by the health endpoint
// swagger:model HealthResponse
type HealthResponse struct {
	Status      string `json:"status" example:"HEALTHY"`
	CurrentTime string `json:"current_time" example:"2025-01-01T00:00:00Z"`
}
