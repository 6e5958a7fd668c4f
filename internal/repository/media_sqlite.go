package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"mediahub-credits-api/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteMediaRepository implements MediaRepository using a local SQLite
// catalog. Default backend for development and tests; production points at
// the shared platform catalog in MySQL instead.
type SQLiteMediaRepository struct {
	db *sql.DB
}

// NewSQLiteMediaRepository opens (and if needed initializes) a local media
// catalog at dbPath.
func NewSQLiteMediaRepository(dbPath string) (*SQLiteMediaRepository, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	query := `
	CREATE TABLE IF NOT EXISTS media_items (
		id TEXT PRIMARY KEY,
		owner_creator_id TEXT NOT NULL,
		price INTEGER NOT NULL,
		kind TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_media_owner ON media_items(owner_creator_id);
	`
	if _, err := db.Exec(query); err != nil {
		return nil, fmt.Errorf("failed to create media tables: %w", err)
	}

	log.Printf("[SQLiteMediaRepository] Initialized with database: %s", dbPath)
	return &SQLiteMediaRepository{db: db}, nil
}

// GetByID returns the media item or model.ErrMediaNotFound.
func (r *SQLiteMediaRepository) GetByID(ctx context.Context, mediaID string) (*model.MediaItem, error) {
	var m model.MediaItem
	err := r.db.QueryRowContext(ctx, `
		SELECT id, owner_creator_id, price, kind, title
		FROM media_items WHERE id = ?`, mediaID).Scan(
		&m.ID, &m.OwnerCreatorID, &m.Price, &m.Kind, &m.Title)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", model.ErrMediaNotFound, mediaID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get media: %v", model.ErrStoreUnavailable, err)
	}
	return &m, nil
}

// Upsert seeds or updates a catalog entry. Used by dev tooling and tests;
// the settlement core itself never writes the catalog.
func (r *SQLiteMediaRepository) Upsert(ctx context.Context, item *model.MediaItem) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO media_items (id, owner_creator_id, price, kind, title)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_creator_id = excluded.owner_creator_id,
			price = excluded.price,
			kind = excluded.kind,
			title = excluded.title`,
		item.ID, item.OwnerCreatorID, item.Price, item.Kind, item.Title)
	if err != nil {
		return fmt.Errorf("failed to upsert media item %s: %w", item.ID, err)
	}
	return nil
}

// Close closes the database connection.
func (r *SQLiteMediaRepository) Close() error {
	return r.db.Close()
}

// Ensure SQLiteMediaRepository implements MediaRepository
var _ MediaRepository = (*SQLiteMediaRepository)(nil)
