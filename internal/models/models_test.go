package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusProcessed.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}

func TestWebhookRequest_Validate(t *testing.T) {
	var req WebhookRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"transaction_id": "tx1",
		"source_account": "acc_user_789",
		"destination_account": "acc_merchant_456",
		"amount": 10.00,
		"currency": "USD"
	}`), &req))
	assert.NoError(t, req.Validate())

	var partial WebhookRequest
	require.NoError(t, json.Unmarshal([]byte(`{"transaction_id":" ","amount":null,"currency":"USD"}`), &partial))
	assert.EqualError(t, partial.Validate(),
		"missing required fields: transaction_id, source_account, destination_account, amount")
}

func TestWebhookRequest_ValidateColumnLimits(t *testing.T) {
	valid := func() WebhookRequest {
		return WebhookRequest{
			TransactionID:      "tx1",
			SourceAccount:      "acc_user_789",
			DestinationAccount: "acc_merchant_456",
			Amount:             decimal.NewNullDecimal(decimal.RequireFromString("10.00")),
			Currency:           "USD",
		}
	}
	amount := func(s string) decimal.NullDecimal {
		return decimal.NewNullDecimal(decimal.RequireFromString(s))
	}

	tests := []struct {
		name    string
		modify  func(r *WebhookRequest)
		wantErr string
	}{
		{
			name:   "identifiers at the limit",
			modify: func(r *WebhookRequest) { r.TransactionID = strings.Repeat("a", MaxIdentifierLength) },
		},
		{
			name:   "multibyte identifier counted in characters",
			modify: func(r *WebhookRequest) { r.SourceAccount = strings.Repeat("ж", MaxIdentifierLength) },
		},
		{
			name:    "transaction id too long",
			modify:  func(r *WebhookRequest) { r.TransactionID = strings.Repeat("a", 300) },
			wantErr: "invalid fields: transaction_id exceeds 255 characters",
		},
		{
			name: "accounts too long",
			modify: func(r *WebhookRequest) {
				r.SourceAccount = strings.Repeat("s", 256)
				r.DestinationAccount = strings.Repeat("d", 256)
			},
			wantErr: "invalid fields: source_account exceeds 255 characters; destination_account exceeds 255 characters",
		},
		{
			name:    "currency too long",
			modify:  func(r *WebhookRequest) { r.Currency = strings.Repeat("X", 16) },
			wantErr: "invalid fields: currency exceeds 10 characters",
		},
		{
			name:   "largest storable amount",
			modify: func(r *WebhookRequest) { r.Amount = amount("9999999999999999.99") },
		},
		{
			name:   "extra decimals within range",
			modify: func(r *WebhookRequest) { r.Amount = amount("-9999999999999999.994") },
		},
		{
			name:    "amount rounding past the limit",
			modify:  func(r *WebhookRequest) { r.Amount = amount("9999999999999999.995") },
			wantErr: "invalid fields: amount exceeds 16 integer digits",
		},
		{
			name:    "huge amount",
			modify:  func(r *WebhookRequest) { r.Amount = amount("1e20") },
			wantErr: "invalid fields: amount exceeds 16 integer digits",
		},
		{
			name:    "huge negative amount",
			modify:  func(r *WebhookRequest) { r.Amount = amount("-10000000000000000") },
			wantErr: "invalid fields: amount exceeds 16 integer digits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.modify(&req)
			err := req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestNewTransaction(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	req := WebhookRequest{
		TransactionID:      "tx1",
		SourceAccount:      "acc_user_789",
		DestinationAccount: "acc_merchant_456",
		Amount:             decimal.NewNullDecimal(decimal.RequireFromString("10.00")),
		Currency:           "USD",
	}

	tx := NewTransaction(req, now)

	assert.Equal(t, StatusProcessing, tx.Status)
	assert.Equal(t, now, tx.CreatedAt)
	require.NotNil(t, tx.EnqueuedAt)
	assert.Equal(t, now, *tx.EnqueuedAt)
	assert.Nil(t, tx.ProcessedAt)
	assert.Nil(t, tx.LastError)
}

func TestNewTransactionResponse(t *testing.T) {
	cause := "rejected"
	tx := &TransactionDB{
		TransactionID:      "tx2",
		SourceAccount:      "a",
		DestinationAccount: "b",
		Amount:             decimal.RequireFromString("7.5"),
		Currency:           "EUR",
		Status:             StatusFailed,
		CreatedAt:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		LastError:          &cause,
	}

	data, err := json.Marshal(NewTransactionResponse(tx))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"transaction_id": "tx2",
		"source_account": "a",
		"destination_account": "b",
		"amount": 7.50,
		"currency": "EUR",
		"status": "FAILED",
		"created_at": "2025-01-01T00:00:00Z",
		"processed_at": null
	}`, string(data))
	assert.NotContains(t, string(data), "last_error")
	assert.Contains(t, string(data), `"amount":7.50`)
}
