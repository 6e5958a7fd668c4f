package model

import "time"

// SessionData contains the data stored with a session token. The session is
// minted after an external auth collaborator has authenticated the user; the
// settlement core only needs a stable user identifier.
type SessionData struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}
