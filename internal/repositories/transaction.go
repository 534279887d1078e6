package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/logger"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/models"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const transactionColumns = `id, transaction_id, source_account, destination_account, amount, currency,
	status, created_at, enqueued_at, processed_at, last_error`

// TransactionWriteRepository handles transaction write operations and row locking
type TransactionWriteRepository struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
}

func NewTransactionWriteRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *TransactionWriteRepository {
	return &TransactionWriteRepository{db: db, txGetter: txGetter}
}

func (r *TransactionWriteRepository) executor(ctx context.Context) sqlx.ExtContext {
	if r.txGetter != nil {
		if tx := r.txGetter(ctx); tx != nil {
			return tx
		}
	}
	return r.db
}

// Insert creates a new transaction row. It returns models.ErrDuplicateTransaction
// when the transaction_id is already taken.
func (r *TransactionWriteRepository) Insert(ctx context.Context, tx *models.TransactionDB) error {
	const query = `
		INSERT INTO transactions (transaction_id, source_account, destination_account, amount, currency,
			status, created_at, enqueued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	args := []any{
		tx.TransactionID, tx.SourceAccount, tx.DestinationAccount, tx.Amount, tx.Currency,
		string(tx.Status), tx.CreatedAt, tx.EnqueuedAt,
	}

	err := r.executor(ctx).QueryRowxContext(ctx, query, args...).Scan(&tx.ID, &tx.CreatedAt)
	logQuery(query, args, tx.ID, err)

	if isUniqueViolation(err) {
		return models.ErrDuplicateTransaction
	}
	return err
}

// MarkEnqueued sets enqueued_at only if it is still unset and the record is not terminal.
// Exactly one concurrent caller observes true.
func (r *TransactionWriteRepository) MarkEnqueued(ctx context.Context, transactionID string, at time.Time) (bool, error) {
	const query = `
		UPDATE transactions
		SET enqueued_at = $2
		WHERE transaction_id = $1
		  AND enqueued_at IS NULL
		  AND status = 'PROCESSING'
	`
	return r.execConditional(ctx, query, transactionID, at)
}

// MarkProcessed moves a PROCESSING record to PROCESSED.
func (r *TransactionWriteRepository) MarkProcessed(ctx context.Context, transactionID string, at time.Time) (bool, error) {
	const query = `
		UPDATE transactions
		SET status = 'PROCESSED', processed_at = $2
		WHERE transaction_id = $1
		  AND status = 'PROCESSING'
	`
	return r.execConditional(ctx, query, transactionID, at)
}

// MarkFailed moves a PROCESSING record to FAILED and records the cause.
func (r *TransactionWriteRepository) MarkFailed(ctx context.Context, transactionID string, cause string) (bool, error) {
	const query = `
		UPDATE transactions
		SET status = 'FAILED', last_error = $2
		WHERE transaction_id = $1
		  AND status = 'PROCESSING'
	`
	return r.execConditional(ctx, query, transactionID, cause)
}

// LockForUpdate reads the row and holds an exclusive lock on it until the
// surrounding transaction ends. It must be called inside TxManager.WithinTransaction.
func (r *TransactionWriteRepository) LockForUpdate(ctx context.Context, transactionID string) (*models.TransactionDB, error) {
	if r.txGetter == nil || r.txGetter(ctx) == nil {
		return nil, models.ErrNoTransactionScope
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1 FOR UPDATE`

	var tx models.TransactionDB
	err := sqlx.GetContext(ctx, r.txGetter(ctx), &tx, query, transactionID)
	logQuery(query, []any{transactionID}, tx.Status, err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// ClaimStale re-stamps enqueued_at on up to limit PROCESSING rows whose job looks lost
// and returns their ids. Rows locked by a worker are skipped.
func (r *TransactionWriteRepository) ClaimStale(ctx context.Context, olderThan, now time.Time, limit int) ([]string, error) {
	const query = `
		UPDATE transactions
		SET enqueued_at = $2
		WHERE id IN (
			SELECT id FROM transactions
			WHERE status = 'PROCESSING'
			  AND (enqueued_at IS NULL OR enqueued_at < $1)
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING transaction_id
	`
	args := []any{olderThan, now, limit}

	var ids []string
	err := sqlx.SelectContext(ctx, r.executor(ctx), &ids, query, args...)
	logQuery(query, args, ids, err)

	return ids, err
}

func (r *TransactionWriteRepository) execConditional(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.executor(ctx).ExecContext(ctx, query, args...)
	var rowsAffected int64
	if err == nil {
		rowsAffected, err = res.RowsAffected()
	}
	logQuery(query, args, rowsAffected, err)

	if err != nil {
		return false, err
	}
	return rowsAffected == 1, nil
}

// TransactionReadRepository handles transaction read operations
type TransactionReadRepository struct {
	db *sqlx.DB
}

func NewTransactionReadRepository(db *sqlx.DB) *TransactionReadRepository {
	return &TransactionReadRepository{db: db}
}

// GetByTransactionID returns the record or models.ErrTransactionNotFound.
func (r *TransactionReadRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.TransactionDB, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1`

	var tx models.TransactionDB
	err := r.db.GetContext(ctx, &tx, query, transactionID)
	logQuery(query, []any{transactionID}, tx.Status, err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", transactionID, err)
	}
	return &tx, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// logQuery logs query, args, result, error with the query on a single line
func logQuery(query string, args []any, result any, err error) {
	logger.Log.Debugw("query",
		"query", strings.Join(strings.Fields(query), " "),
		"args", args,
		"result", result,
		"error", err,
	)
}
