package model

import "time"

// UnlockGrant is a time-bounded permission record letting a user access a
// specific media item. Expired grants become inert but are retained for audit.
type UnlockGrant struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	MediaID      string    `json:"media_id"`
	CreditsSpent int64     `json:"credits_spent"`
	GrantedAt    time.Time `json:"granted_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ActiveAt reports whether the grant is still valid at the given time.
func (g *UnlockGrant) ActiveAt(now time.Time) bool {
	return now.Before(g.ExpiresAt)
}
