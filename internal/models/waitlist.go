package models

import "time"

// WaitlistEntry is one captured launch-notification address.
type WaitlistEntry struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}
