package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"mediahub-credits-api/internal/model"
)

// SQLiteGrantRepository implements GrantRepository using SQLite.
// At most one active grant exists per (user, media) pair; expired rows are
// retained for audit and never deleted here.
type SQLiteGrantRepository struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteGrantRepository creates a grant repository over the shared
// settlement database.
func NewSQLiteGrantRepository(db *sql.DB) *SQLiteGrantRepository {
	return &SQLiteGrantRepository{db: db}
}

// GetActive returns the active grant for the pair, or nil if none.
// Active means the current time is before expires_at.
func (r *SQLiteGrantRepository) GetActive(ctx context.Context, userID, mediaID string) (*model.UnlockGrant, error) {
	return r.activeGrantTx(ctx, r.db.QueryRowContext, userID, mediaID, time.Now())
}

type rowQuerier func(ctx context.Context, query string, args ...interface{}) *sql.Row

func (r *SQLiteGrantRepository) activeGrantTx(ctx context.Context, queryRow rowQuerier, userID, mediaID string, now time.Time) (*model.UnlockGrant, error) {
	query := `
		SELECT id, user_id, media_id, credits_spent, granted_at, expires_at
		FROM unlock_grants
		WHERE user_id = ? AND media_id = ? AND expires_at > ?
		ORDER BY expires_at DESC LIMIT 1`

	var g model.UnlockGrant
	var grantedAt, expiresAt int64
	err := queryRow(ctx, query, userID, mediaID, now.Unix()).Scan(
		&g.ID, &g.UserID, &g.MediaID, &g.CreditsSpent, &grantedAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get active grant: %v", model.ErrStoreUnavailable, err)
	}
	g.GrantedAt = time.Unix(grantedAt, 0).UTC()
	g.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &g, nil
}

// Put upserts a grant. When an active grant already exists for the same
// (user, media) pair, the stored expiry becomes the later of the existing
// and the new expiry; no second active row is created.
func (r *SQLiteGrantRepository) Put(ctx context.Context, grant *model.UnlockGrant) (*model.UnlockGrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin put grant: %v", model.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	existing, err := r.activeGrantTx(ctx, tx.QueryRowContext, grant.UserID, grant.MediaID, grant.GrantedAt)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		// Extension semantics: keep the row, push out the expiry.
		if grant.ExpiresAt.After(existing.ExpiresAt) {
			if _, err := tx.ExecContext(ctx,
				`UPDATE unlock_grants SET expires_at = ? WHERE id = ?`,
				grant.ExpiresAt.Unix(), existing.ID); err != nil {
				return nil, fmt.Errorf("%w: extend grant: %v", model.ErrStoreUnavailable, err)
			}
			existing.ExpiresAt = grant.ExpiresAt.UTC()
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("%w: commit put grant: %v", model.ErrStoreUnavailable, err)
		}
		return existing, nil
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO unlock_grants (id, user_id, media_id, credits_spent, granted_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		grant.ID, grant.UserID, grant.MediaID, grant.CreditsSpent,
		grant.GrantedAt.Unix(), grant.ExpiresAt.Unix()); err != nil {
		return nil, fmt.Errorf("%w: insert grant: %v", model.ErrStoreUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit put grant: %v", model.ErrStoreUnavailable, err)
	}

	stored := *grant
	stored.GrantedAt = time.Unix(grant.GrantedAt.Unix(), 0).UTC()
	stored.ExpiresAt = time.Unix(grant.ExpiresAt.Unix(), 0).UTC()
	return &stored, nil
}

// ListForUser returns all grants for a user, newest first. Expired grants
// are included; callers decide what "active" means for display.
func (r *SQLiteGrantRepository) ListForUser(ctx context.Context, userID string) ([]model.UnlockGrant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, media_id, credits_spent, granted_at, expires_at
		FROM unlock_grants
		WHERE user_id = ?
		ORDER BY granted_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list grants: %v", model.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	grants := []model.UnlockGrant{}
	for rows.Next() {
		var g model.UnlockGrant
		var grantedAt, expiresAt int64
		if err := rows.Scan(&g.ID, &g.UserID, &g.MediaID, &g.CreditsSpent, &grantedAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("%w: scan grant: %v", model.ErrStoreUnavailable, err)
		}
		g.GrantedAt = time.Unix(grantedAt, 0).UTC()
		g.ExpiresAt = time.Unix(expiresAt, 0).UTC()
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list grants: %v", model.ErrStoreUnavailable, err)
	}
	return grants, nil
}

// Ensure SQLiteGrantRepository implements GrantRepository
var _ GrantRepository = (*SQLiteGrantRepository)(nil)
