package domain

import "time"

// ActivityKind captures what a state-changing operation did.
type ActivityKind string

const (
	ActivityCreate       ActivityKind = "create"
	ActivityUpdate       ActivityKind = "update"
	ActivityStatusChange ActivityKind = "status_change"
	ActivityAssign       ActivityKind = "assign"
	ActivityComment      ActivityKind = "comment"
)

// Activity is an immutable audit trail entry.
type Activity struct {
	ID       string
	TicketID string
	ActorID  string
	Kind     ActivityKind
	Detail   string
	// Internal marks entries that describe staff-only notes.
	Internal  bool
	CreatedAt time.Time
}
