package domain

import "time"

// Comment is a message in a ticket thread. Internal comments are staff-only notes.
type Comment struct {
	ID         string
	TicketID   string
	AuthorID   string
	Body       string
	IsInternal bool
	CreatedAt  time.Time
}
