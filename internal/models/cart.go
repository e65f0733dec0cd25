package models

// CartItem is one entry of a user's cart with the course's current price in
// minor units. The orchestrator reads these once at initiation; after that
// the transaction's own snapshot is authoritative.
type CartItem struct {
	CourseID string `json:"course_id"`
	Price    int64  `json:"price"`
}
