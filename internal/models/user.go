package models

import "time"

// User is the slice of the user directory this service reads. Account
// management lives elsewhere; payments only validate that the buyer exists.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
