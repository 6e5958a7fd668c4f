package repository

import (
	"context"
	"database/sql"
)

// SQLiteStatsRepository reads store statistics from the settlement database
// for the admin surface.
type SQLiteStatsRepository struct {
	db *sql.DB
}

// NewSQLiteStatsRepository creates a stats repository over the shared
// settlement database.
func NewSQLiteStatsRepository(db *sql.DB) *SQLiteStatsRepository {
	return &SQLiteStatsRepository{db: db}
}

// GetStats returns row counts per store plus the approximate database size.
func (r *SQLiteStatsRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	counts := map[string]string{
		"balances":         "SELECT COUNT(*) FROM balances",
		"unlock_grants":    "SELECT COUNT(*) FROM unlock_grants",
		"sales":            "SELECT COUNT(*) FROM sales",
		"idempotency_keys": "SELECT COUNT(*) FROM idempotency_keys",
	}
	for name, query := range counts {
		var count int64
		if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return nil, err
		}
		stats[name] = count
	}

	var totalCredits sql.NullInt64
	if err := r.db.QueryRowContext(ctx, "SELECT SUM(amount) FROM balances").Scan(&totalCredits); err == nil && totalCredits.Valid {
		stats["total_credits_in_circulation"] = totalCredits.Int64
	}

	// Approximate file size from page count
	var pageCount, pageSize int64
	r.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	r.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

// Ensure SQLiteStatsRepository implements StatsProvider
var _ StatsProvider = (*SQLiteStatsRepository)(nil)
