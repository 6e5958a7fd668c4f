package model

import "errors"

// Settlement error taxonomy. The engine surfaces only these categories;
// user-facing messaging is the UI layer's job.
var (
	// ErrUnauthenticated means no acting user could be resolved.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidPurchase covers self-purchase and malformed intents.
	// Safe to retry after correction; nothing was mutated.
	ErrInvalidPurchase = errors.New("invalid purchase")

	// ErrInsufficientFunds means the buyer balance cannot cover the price.
	// Rejected before any mutation.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrMediaNotFound means the media item does not exist in the catalog.
	ErrMediaNotFound = errors.New("media item not found")

	// ErrStoreUnavailable is a transient durability failure. Callers retry
	// with the same idempotency key.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrSettlementFailed means a mid-sequence step failed and all prior
	// balance mutations were compensated. The buyer is not net-debited.
	ErrSettlementFailed = errors.New("settlement failed")

	// ErrSettlementInconsistent means compensation itself failed. Escalated
	// to manual reconciliation; must not be retried automatically.
	ErrSettlementInconsistent = errors.New("settlement inconsistent")
)
