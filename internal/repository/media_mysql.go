package repository

import (
	"context"
	"database/sql"
	"fmt"

	"mediahub-credits-api/internal/model"
)

// MySQLMediaRepository implements MediaRepository against the shared
// platform catalog in MySQL. Read-only: the settlement core never owns or
// mutates catalog rows.
type MySQLMediaRepository struct {
	db *sql.DB
}

// NewMySQLMediaRepository creates a media repository over an existing MySQL
// connection. The connection is owned by the caller.
func NewMySQLMediaRepository(db *sql.DB) *MySQLMediaRepository {
	return &MySQLMediaRepository{db: db}
}

// GetByID returns the media item or model.ErrMediaNotFound.
func (r *MySQLMediaRepository) GetByID(ctx context.Context, mediaID string) (*model.MediaItem, error) {
	query := `
		SELECT id, owner_creator_id, price, kind, title
		FROM media_items
		WHERE id = ?
		LIMIT 1`

	var m model.MediaItem
	err := r.db.QueryRowContext(ctx, query, mediaID).Scan(
		&m.ID, &m.OwnerCreatorID, &m.Price, &m.Kind, &m.Title)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", model.ErrMediaNotFound, mediaID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get media: %v", model.ErrStoreUnavailable, err)
	}
	return &m, nil
}

// Close is a no-op; the underlying connection is shared and closed by the
// caller.
func (r *MySQLMediaRepository) Close() error {
	return nil
}

// Ensure MySQLMediaRepository implements MediaRepository
var _ MediaRepository = (*MySQLMediaRepository)(nil)
