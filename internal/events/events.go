package events

import (
	"context"
	"time"
)

// Event types published by the settlement engine.
const (
	TypePurchaseCompleted = "purchase.completed"
)

// Event tells interested collaborators (balance display, chat overlay) that
// balances or unlock state changed. Delivery is at-most-once with no
// ordering guarantee; consumers must also support polling the balance and
// grant endpoints and never rely on events as the sole source of truth.
type Event struct {
	Type            string    `json:"type"`
	BuyerID         string    `json:"buyer_id"`
	CreatorID       string    `json:"creator_id"`
	MediaID         string    `json:"media_id"`
	GrantID         string    `json:"grant_id,omitempty"`
	BalancesChanged []string  `json:"balances_changed"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Publisher fans out settlement events. Publish is fire-and-forget from the
// settlement engine's perspective: a delivery failure never rolls back or
// fails a settlement that already completed.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Multi publishes to several publishers, continuing past failures.
type Multi []Publisher

// Publish delivers the event to every publisher and returns the last error.
func (m Multi) Publish(ctx context.Context, event Event) error {
	var lastErr error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
