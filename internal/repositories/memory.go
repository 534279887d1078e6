package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sbilibin2017/gw-payment-webhooks/internal/models"
)

// MemoryTransactionStore is an in-memory implementation of the transaction store.
// It enforces transaction_id uniqueness, conditional writes and per-row exclusive
// locks scoped to WithinTransaction. Writes are applied immediately and are not
// rolled back when the scope fails.
type MemoryTransactionStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[string]*models.TransactionDB
	locks  map[string]chan struct{}
}

// NewMemoryTransactionStore creates an empty store.
func NewMemoryTransactionStore() *MemoryTransactionStore {
	return &MemoryTransactionStore{
		rows:  make(map[string]*models.TransactionDB),
		locks: make(map[string]chan struct{}),
	}
}

type memoryScopeKey struct{}

// memoryScope tracks the row locks held by one WithinTransaction call.
type memoryScope struct {
	held map[string]chan struct{}
}

// WithinTransaction opens a lock scope; every row lock taken inside fn is
// released when fn returns.
func (s *MemoryTransactionStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(memoryScopeKey{}).(*memoryScope); ok {
		return fn(ctx)
	}

	scope := &memoryScope{held: make(map[string]chan struct{})}
	defer func() {
		for _, lock := range scope.held {
			<-lock
		}
	}()

	return fn(context.WithValue(ctx, memoryScopeKey{}, scope))
}

// Insert creates a new row or returns models.ErrDuplicateTransaction.
func (s *MemoryTransactionStore) Insert(ctx context.Context, tx *models.TransactionDB) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[tx.TransactionID]; ok {
		return models.ErrDuplicateTransaction
	}

	s.nextID++
	tx.ID = s.nextID
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	s.rows[tx.TransactionID] = cloneTransaction(tx)
	return nil
}

// GetByTransactionID returns a copy of the row or models.ErrTransactionNotFound.
func (s *MemoryTransactionStore) GetByTransactionID(ctx context.Context, transactionID string) (*models.TransactionDB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[transactionID]
	if !ok {
		return nil, models.ErrTransactionNotFound
	}
	return cloneTransaction(row), nil
}

// MarkEnqueued sets enqueued_at if unset on a PROCESSING row.
func (s *MemoryTransactionStore) MarkEnqueued(ctx context.Context, transactionID string, at time.Time) (bool, error) {
	return s.update(ctx, transactionID, func(row *models.TransactionDB) bool {
		if row.EnqueuedAt != nil || row.Status != models.StatusProcessing {
			return false
		}
		row.EnqueuedAt = &at
		return true
	})
}

// MarkProcessed moves a PROCESSING row to PROCESSED.
func (s *MemoryTransactionStore) MarkProcessed(ctx context.Context, transactionID string, at time.Time) (bool, error) {
	return s.update(ctx, transactionID, func(row *models.TransactionDB) bool {
		if row.Status != models.StatusProcessing {
			return false
		}
		row.Status = models.StatusProcessed
		row.ProcessedAt = &at
		return true
	})
}

// MarkFailed moves a PROCESSING row to FAILED.
func (s *MemoryTransactionStore) MarkFailed(ctx context.Context, transactionID string, cause string) (bool, error) {
	return s.update(ctx, transactionID, func(row *models.TransactionDB) bool {
		if row.Status != models.StatusProcessing {
			return false
		}
		row.Status = models.StatusFailed
		row.LastError = &cause
		return true
	})
}

// LockForUpdate blocks until the row lock is free, then returns a copy of the row.
// The lock is held until the enclosing WithinTransaction returns.
func (s *MemoryTransactionStore) LockForUpdate(ctx context.Context, transactionID string) (*models.TransactionDB, error) {
	scope, ok := ctx.Value(memoryScopeKey{}).(*memoryScope)
	if !ok {
		return nil, models.ErrNoTransactionScope
	}

	if _, held := scope.held[transactionID]; !held {
		s.mu.Lock()
		if _, found := s.rows[transactionID]; !found {
			s.mu.Unlock()
			return nil, models.ErrTransactionNotFound
		}
		lock, exists := s.locks[transactionID]
		if !exists {
			lock = make(chan struct{}, 1)
			s.locks[transactionID] = lock
		}
		s.mu.Unlock()

		select {
		case lock <- struct{}{}:
			scope.held[transactionID] = lock
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return s.GetByTransactionID(ctx, transactionID)
}

// ClaimStale re-stamps enqueued_at on stale PROCESSING rows that are not locked.
func (s *MemoryTransactionStore) ClaimStale(ctx context.Context, olderThan, now time.Time, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := make([]*models.TransactionDB, 0)
	for id, row := range s.rows {
		if row.Status != models.StatusProcessing {
			continue
		}
		if row.EnqueuedAt != nil && !row.EnqueuedAt.Before(olderThan) {
			continue
		}
		if lock, ok := s.locks[id]; ok && len(lock) > 0 {
			continue
		}
		candidates = append(candidates, row)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	ids := make([]string, 0, limit)
	for _, row := range candidates {
		if len(ids) >= limit {
			break
		}
		stamp := now
		row.EnqueuedAt = &stamp
		ids = append(ids, row.TransactionID)
	}
	return ids, nil
}

// Len returns the number of stored rows.
func (s *MemoryTransactionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *MemoryTransactionStore) update(ctx context.Context, transactionID string, apply func(row *models.TransactionDB) bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[transactionID]
	if !ok {
		return false, nil
	}
	return apply(row), nil
}

func cloneTransaction(tx *models.TransactionDB) *models.TransactionDB {
	c := *tx
	if tx.EnqueuedAt != nil {
		t := *tx.EnqueuedAt
		c.EnqueuedAt = &t
	}
	if tx.ProcessedAt != nil {
		t := *tx.ProcessedAt
		c.ProcessedAt = &t
	}
	if tx.LastError != nil {
		e := *tx.LastError
		c.LastError = &e
	}
	return &c
}
