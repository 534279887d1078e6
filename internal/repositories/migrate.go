package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema is the DDL for the transactions table. Statements are idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
		id                  BIGSERIAL PRIMARY KEY,
		transaction_id      VARCHAR(255) NOT NULL,
		source_account      VARCHAR(255) NOT NULL,
		destination_account VARCHAR(255) NOT NULL,
		amount              NUMERIC(18,2) NOT NULL,
		currency            VARCHAR(10) NOT NULL,
		status              VARCHAR(16) NOT NULL DEFAULT 'PROCESSING'
			CHECK (status IN ('PROCESSING', 'PROCESSED', 'FAILED')),
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		enqueued_at         TIMESTAMPTZ NULL,
		processed_at        TIMESTAMPTZ NULL,
		last_error          TEXT NULL,
		CONSTRAINT uq_transactions_transaction_id UNIQUE (transaction_id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_processing_enqueued_at
		ON transactions (enqueued_at)
		WHERE status = 'PROCESSING';`,
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
