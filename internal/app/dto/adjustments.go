package dto

type AdjustmentsSaved struct {
	ListingID string   `json:"listing_id"`
	Saved     []string `json:"saved"`
}
