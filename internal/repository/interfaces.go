package repository

import (
	"context"
	"time"

	"mediahub-credits-api/internal/model"
)

// BalanceRepository defines durable per-user credit balance access.
// ApplyDelta is atomic per user_id; no cross-user atomicity is provided here,
// that is the settlement engine's job.
type BalanceRepository interface {
	// Get returns the current balance, 0 for unseen users.
	Get(ctx context.Context, userID string) (int64, error)

	// ApplyDelta applies a signed delta and returns the new amount.
	// Returns model.ErrInsufficientFunds if a negative delta would drive
	// the amount below zero.
	ApplyDelta(ctx context.Context, userID string, delta int64) (int64, error)
}

// GrantRepository defines durable unlock grant access.
type GrantRepository interface {
	// GetActive returns the active grant for the (user, media) pair, or nil.
	GetActive(ctx context.Context, userID, mediaID string) (*model.UnlockGrant, error)

	// Put upserts a grant. If an active grant already exists for the same
	// pair, the stored expiry becomes the later of the two (extension
	// semantics, not duplication). Returns the stored grant.
	Put(ctx context.Context, grant *model.UnlockGrant) (*model.UnlockGrant, error)

	// ListForUser returns all grants for a user, newest first.
	ListForUser(ctx context.Context, userID string) ([]model.UnlockGrant, error)
}

// SaleRepository defines the append-only sale ledger. There is deliberately
// no update or delete operation.
type SaleRepository interface {
	// Append writes one record and returns its id.
	Append(ctx context.Context, rec *model.SaleRecord) (string, error)

	// ListBySeller returns sales for a seller, newest first.
	ListBySeller(ctx context.Context, sellerID string) ([]model.SaleRecord, error)
}

// IdempotencyRepository maps idempotency keys to settlement outcomes.
type IdempotencyRepository interface {
	// Get returns the record for a key, or nil if unseen.
	Get(ctx context.Context, key string) (*model.IdempotencyRecord, error)

	// Put stores the final outcome for a key.
	Put(ctx context.Context, rec *model.IdempotencyRecord) error

	// DeleteExpired removes records older than the retention window and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, retention time.Duration) (int64, error)
}

// MediaRepository reads the external content catalog. Read-only for this
// core; ownership and lifecycle are managed elsewhere.
type MediaRepository interface {
	// GetByID returns the media item or model.ErrMediaNotFound.
	GetByID(ctx context.Context, mediaID string) (*model.MediaItem, error)

	// Close closes the repository connection.
	Close() error
}

// StatsProvider exposes store statistics for the admin surface.
type StatsProvider interface {
	GetStats(ctx context.Context) (map[string]interface{}, error)
}
