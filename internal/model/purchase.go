package model

import (
	"encoding/json"
	"time"
)

// PurchaseIntent is the transient input to a purchase. It is not persisted
// beyond settlement except through the idempotency record.
type PurchaseIntent struct {
	BuyerID        string `json:"buyer_id"`
	MediaID        string `json:"media_id"`
	IdempotencyKey string `json:"idempotency_key"`
}

// PurchaseResult is the outcome of a successful settlement.
type PurchaseResult struct {
	Grant         *UnlockGrant `json:"grant"`
	SaleID        string       `json:"sale_id,omitempty"`
	CreditsSpent  int64        `json:"credits_spent"`
	CreatorShare  int64        `json:"creator_share"`
	PlatformShare int64        `json:"platform_share"`
	BuyerBalance  int64        `json:"buyer_balance"`
}

// Idempotency record statuses.
const (
	IdempotencyStatusSucceeded = "succeeded"
	IdempotencyStatusFailed    = "failed"
)

// IdempotencyRecord pins an idempotency key to the final settlement outcome
// so retries return the same result without re-executing mutating steps.
// Records are garbage-collected after the retention window.
type IdempotencyRecord struct {
	Key       string          `json:"key"`
	BuyerID   string          `json:"buyer_id"`
	MediaID   string          `json:"media_id"`
	Status    string          `json:"status"`
	ErrorKind string          `json:"error_kind,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
