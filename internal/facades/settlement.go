package facades

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/sbilibin2017/gw-payment-webhooks/internal/logger"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/models"
)

// SettlementFacade stands in for the external settlement API.
// Each call blocks for a fixed delay; ids matching failPattern are rejected.
type SettlementFacade struct {
	delay       time.Duration
	failPattern *regexp.Regexp
}

// NewSettlementFacade creates a facade. An empty failPattern never fails.
func NewSettlementFacade(delay time.Duration, failPattern string) (*SettlementFacade, error) {
	f := &SettlementFacade{delay: delay}
	if failPattern != "" {
		re, err := regexp.Compile(failPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid settlement fail pattern: %w", err)
		}
		f.failPattern = re
	}
	return f, nil
}

// Settle simulates the downstream call. It returns ctx.Err() if the context
// ends before the delay elapses.
func (f *SettlementFacade) Settle(ctx context.Context, tx *models.TransactionDB) error {
	logger.Log.Infow("calling settlement API",
		"transaction_id", tx.TransactionID,
		"amount", tx.Amount.String(),
		"currency", tx.Currency,
		"delay", f.delay,
	)

	timer := time.NewTimer(f.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	if f.failPattern != nil && f.failPattern.MatchString(tx.TransactionID) {
		return fmt.Errorf("%w: rejected by settlement API for %s", models.ErrSettlementFailed, tx.TransactionID)
	}
	return nil
}
