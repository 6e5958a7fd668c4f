package repository

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// OpenSQLite opens the settlement database holding balances, unlock grants,
// the sale ledger and idempotency keys. The returned handle is shared by the
// per-concern repositories.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	// WAL mode for concurrent reads while settlements write
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSettlementTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLite] Settlement database ready: %s", dbPath)
	return db, nil
}

// createSettlementTables creates the keyed stores. Timestamps are stored as
// unix seconds so expiry comparisons are unambiguous.
func createSettlementTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS balances (
		user_id TEXT PRIMARY KEY,
		amount INTEGER NOT NULL DEFAULT 0 CHECK (amount >= 0),
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS unlock_grants (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		media_id TEXT NOT NULL,
		credits_spent INTEGER NOT NULL,
		granted_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_grants_pair ON unlock_grants(user_id, media_id, expires_at);
	CREATE INDEX IF NOT EXISTS idx_grants_user ON unlock_grants(user_id, granted_at);
	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		buyer_id TEXT NOT NULL,
		media_id TEXT NOT NULL,
		media_title TEXT NOT NULL DEFAULT '',
		credits_spent INTEGER NOT NULL,
		creator_share INTEGER NOT NULL,
		platform_share INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sales_seller ON sales(seller_id, created_at);
	CREATE TABLE IF NOT EXISTS idempotency_keys (
		key TEXT PRIMARY KEY,
		buyer_id TEXT NOT NULL,
		media_id TEXT NOT NULL,
		status TEXT NOT NULL,
		error_kind TEXT NOT NULL DEFAULT '',
		result TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_idempotency_created ON idempotency_keys(created_at);
	`
	_, err := db.Exec(query)
	return err
}
