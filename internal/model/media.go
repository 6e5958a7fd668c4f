package model

// MediaItem is immutable reference data read from the content catalog.
// Ownership and lifecycle are managed externally; the settlement engine
// only reads the price and owner.
type MediaItem struct {
	ID             string `json:"id"`
	OwnerCreatorID string `json:"owner_creator_id"`
	Price          int64  `json:"price"`
	Kind           string `json:"kind"`
	Title          string `json:"title,omitempty"`
}
