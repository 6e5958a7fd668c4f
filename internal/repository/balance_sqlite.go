package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"mediahub-credits-api/internal/model"
)

// SQLiteBalanceRepository implements BalanceRepository using SQLite.
// Per-user atomicity: the delta is applied in a single guarded UPDATE inside
// a transaction, serialized by the repository mutex and SQLite's single
// writer. No cross-user atomicity is provided.
type SQLiteBalanceRepository struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteBalanceRepository creates a balance repository over the shared
// settlement database.
func NewSQLiteBalanceRepository(db *sql.DB) *SQLiteBalanceRepository {
	return &SQLiteBalanceRepository{db: db}
}

// Get returns the current balance. Balances are created lazily at zero, so
// an unseen user reads as 0.
func (r *SQLiteBalanceRepository) Get(ctx context.Context, userID string) (int64, error) {
	var amount int64
	err := r.db.QueryRowContext(ctx,
		`SELECT amount FROM balances WHERE user_id = ?`, userID).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: get balance: %v", model.ErrStoreUnavailable, err)
	}
	return amount, nil
}

// ApplyDelta applies a signed delta and returns the new amount. A negative
// delta that would drive the amount below zero fails with
// model.ErrInsufficientFunds and leaves the balance untouched.
func (r *SQLiteBalanceRepository) ApplyDelta(ctx context.Context, userID string, delta int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin apply delta: %v", model.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()

	// Lazy zero-row so the guarded update below always has a target.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO balances (user_id, amount, updated_at) VALUES (?, 0, ?)
		 ON CONFLICT(user_id) DO NOTHING`, userID, now); err != nil {
		return 0, fmt.Errorf("%w: init balance: %v", model.ErrStoreUnavailable, err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE balances SET amount = amount + ?, updated_at = ?
		 WHERE user_id = ? AND amount + ? >= 0`, delta, now, userID, delta)
	if err != nil {
		return 0, fmt.Errorf("%w: apply delta: %v", model.ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: apply delta: %v", model.ErrStoreUnavailable, err)
	}
	if affected == 0 {
		return 0, fmt.Errorf("%w: balance of %s cannot absorb delta %d", model.ErrInsufficientFunds, userID, delta)
	}

	var amount int64
	if err := tx.QueryRowContext(ctx,
		`SELECT amount FROM balances WHERE user_id = ?`, userID).Scan(&amount); err != nil {
		return 0, fmt.Errorf("%w: read new balance: %v", model.ErrStoreUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit apply delta: %v", model.ErrStoreUnavailable, err)
	}
	return amount, nil
}

// Ensure SQLiteBalanceRepository implements BalanceRepository
var _ BalanceRepository = (*SQLiteBalanceRepository)(nil)
