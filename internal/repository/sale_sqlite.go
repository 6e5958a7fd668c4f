package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mediahub-credits-api/internal/model"
	"mediahub-credits-api/pkg/uid"
)

// SQLiteSaleRepository implements the append-only sale ledger using SQLite.
// Records are write-once; there is no update or delete path.
type SQLiteSaleRepository struct {
	db *sql.DB
}

// NewSQLiteSaleRepository creates a sale ledger over the shared settlement
// database.
func NewSQLiteSaleRepository(db *sql.DB) *SQLiteSaleRepository {
	return &SQLiteSaleRepository{db: db}
}

// Append writes one sale record and returns its id. Ids are random UUIDs so
// records from concurrent purchases cannot collide.
func (r *SQLiteSaleRepository) Append(ctx context.Context, rec *model.SaleRecord) (string, error) {
	id := rec.ID
	if id == "" {
		id = uid.New()
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sales (id, seller_id, buyer_id, media_id, media_title,
			credits_spent, creator_share, platform_share, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.SellerID, rec.BuyerID, rec.MediaID, rec.MediaTitle,
		rec.CreditsSpent, rec.CreatorShare, rec.PlatformShare, createdAt.Unix())
	if err != nil {
		return "", fmt.Errorf("%w: append sale: %v", model.ErrStoreUnavailable, err)
	}
	return id, nil
}

// ListBySeller returns sales for a seller, newest first.
func (r *SQLiteSaleRepository) ListBySeller(ctx context.Context, sellerID string) ([]model.SaleRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, seller_id, buyer_id, media_id, media_title,
			credits_spent, creator_share, platform_share, created_at
		FROM sales
		WHERE seller_id = ?
		ORDER BY created_at DESC, id`, sellerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list sales: %v", model.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	sales := []model.SaleRecord{}
	for rows.Next() {
		var s model.SaleRecord
		var createdAt int64
		if err := rows.Scan(&s.ID, &s.SellerID, &s.BuyerID, &s.MediaID, &s.MediaTitle,
			&s.CreditsSpent, &s.CreatorShare, &s.PlatformShare, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan sale: %v", model.ErrStoreUnavailable, err)
		}
		s.CreatedAt = time.Unix(createdAt, 0).UTC()
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list sales: %v", model.ErrStoreUnavailable, err)
	}
	return sales, nil
}

// Ensure SQLiteSaleRepository implements SaleRepository
var _ SaleRepository = (*SQLiteSaleRepository)(nil)
