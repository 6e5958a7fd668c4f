package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"mediahub-credits-api/internal/model"
)

// SQLiteIdempotencyRepository maps idempotency keys to settlement outcomes
// using SQLite. First writer wins: a concurrent retry that races the
// original request keeps the original outcome.
type SQLiteIdempotencyRepository struct {
	db *sql.DB
}

// NewSQLiteIdempotencyRepository creates an idempotency repository over the
// shared settlement database.
func NewSQLiteIdempotencyRepository(db *sql.DB) *SQLiteIdempotencyRepository {
	return &SQLiteIdempotencyRepository{db: db}
}

// Get returns the stored record for a key, or nil if the key is unseen.
func (r *SQLiteIdempotencyRepository) Get(ctx context.Context, key string) (*model.IdempotencyRecord, error) {
	var rec model.IdempotencyRecord
	var result string
	var createdAt int64
	err := r.db.QueryRowContext(ctx, `
		SELECT key, buyer_id, media_id, status, error_kind, result, created_at
		FROM idempotency_keys WHERE key = ?`, key).Scan(
		&rec.Key, &rec.BuyerID, &rec.MediaID, &rec.Status, &rec.ErrorKind, &result, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get idempotency key: %v", model.ErrStoreUnavailable, err)
	}
	if result != "" {
		rec.Result = []byte(result)
	}
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &rec, nil
}

// Put stores the final outcome for a key. Existing records are not
// overwritten so replays always observe the first completed outcome.
func (r *SQLiteIdempotencyRepository) Put(ctx context.Context, rec *model.IdempotencyRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO idempotency_keys (key, buyer_id, media_id, status, error_kind, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING`,
		rec.Key, rec.BuyerID, rec.MediaID, rec.Status, rec.ErrorKind, string(rec.Result), createdAt.Unix())
	if err != nil {
		return fmt.Errorf("%w: put idempotency key: %v", model.ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteExpired removes records older than the retention window.
func (r *SQLiteIdempotencyRepository) DeleteExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM idempotency_keys WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: delete expired idempotency keys: %v", model.ErrStoreUnavailable, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Printf("[SQLiteIdempotencyRepository] Purged %d expired keys (retention: %v)", deleted, retention)
	}
	return deleted, nil
}

// Ensure SQLiteIdempotencyRepository implements IdempotencyRepository
var _ IdempotencyRepository = (*SQLiteIdempotencyRepository)(nil)
