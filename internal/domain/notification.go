package domain

import "time"

// Notification is a per-user alert created as a side effect of someone else's action.
type Notification struct {
	ID          string
	RecipientID string
	Message     string
	IsRead      bool
	TicketID    *string
	CreatedAt   time.Time
}
