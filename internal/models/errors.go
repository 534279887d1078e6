package models

import "errors"

var (
	// ErrDuplicateTransaction is returned when the transaction_id already exists.
	ErrDuplicateTransaction = errors.New("transaction already exists")
	// ErrTransactionNotFound is returned when no row matches the transaction_id.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrSettlementFailed is returned by the downstream settlement call.
	ErrSettlementFailed = errors.New("settlement failed")
	// ErrStorageFailure wraps unexpected store errors surfaced to callers.
	ErrStorageFailure = errors.New("storage failure")
	// ErrNoTransactionScope is returned when a row lock is requested outside a transaction.
	ErrNoTransactionScope = errors.New("no transaction in context")
	// ErrCacheMiss is returned by the status cache when the key is absent.
	ErrCacheMiss = errors.New("cache miss")
)
