package model

import "time"

// SaleRecord is an append-only record of a completed purchase, used for
// history and creator-earnings aggregation. Immutable once written.
type SaleRecord struct {
	ID            string    `json:"id"`
	SellerID      string    `json:"seller_id"`
	BuyerID       string    `json:"buyer_id"`
	MediaID       string    `json:"media_id"`
	MediaTitle    string    `json:"media_title,omitempty"`
	CreditsSpent  int64     `json:"credits_spent"`
	CreatorShare  int64     `json:"creator_share"`
	PlatformShare int64     `json:"platform_share"`
	CreatedAt     time.Time `json:"created_at"`
}
