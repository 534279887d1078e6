package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the processing state of a transaction.
type TransactionStatus string

// Transaction statuses. PROCESSED and FAILED are terminal.
const (
	StatusProcessing TransactionStatus = "PROCESSING"
	StatusProcessed  TransactionStatus = "PROCESSED"
	StatusFailed     TransactionStatus = "FAILED"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

// TransactionDB represents a transaction row in the database
type TransactionDB struct {
	ID                 int64             `json:"-" db:"id"`                                    // Surrogate primary key
	TransactionID      string            `json:"transaction_id" db:"transaction_id"`           // External identifier, unique
	SourceAccount      string            `json:"source_account" db:"source_account"`           // Debited account
	DestinationAccount string            `json:"destination_account" db:"destination_account"` // Credited account
	Amount             decimal.Decimal   `json:"amount" db:"amount"`                           // Opaque amount
	Currency           string            `json:"currency" db:"currency"`                       // Opaque currency code
	Status             TransactionStatus `json:"status" db:"status"`                           // Processing state
	CreatedAt          time.Time         `json:"created_at" db:"created_at"`                   // Set on first insert
	EnqueuedAt         *time.Time        `json:"enqueued_at,omitempty" db:"enqueued_at"`       // Set when the first job was published
	ProcessedAt        *time.Time        `json:"processed_at,omitempty" db:"processed_at"`     // Set on PROCESSED
	LastError          *string           `json:"last_error,omitempty" db:"last_error"`         // Set on FAILED
}

// NewTransaction builds a PROCESSING record for a freshly received webhook.
func NewTransaction(req WebhookRequest, now time.Time) *TransactionDB {
	return &TransactionDB{
		TransactionID:      req.TransactionID,
		SourceAccount:      req.SourceAccount,
		DestinationAccount: req.DestinationAccount,
		Amount:             req.Amount.Decimal,
		Currency:           req.Currency,
		Status:             StatusProcessing,
		CreatedAt:          now,
		EnqueuedAt:         &now,
	}
}
