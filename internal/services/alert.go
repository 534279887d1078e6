package services

import (
	"context"

	"github.com/sbilibin2017/gw-payment-webhooks/internal/logger"
)

// LogAlerter reports alerts as error logs tagged alert=true.
type LogAlerter struct{}

func NewLogAlerter() *LogAlerter {
	return &LogAlerter{}
}

func (a *LogAlerter) Alert(ctx context.Context, transactionID string, msg string, err error) {
	logger.Log.Errorw(msg,
		"alert", true,
		"transaction_id", transactionID,
		"error", err,
	)
}
