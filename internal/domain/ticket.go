package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

var statusRank = map[TicketStatus]int{
	TicketStatusNew:        0,
	TicketStatusAssigned:   1,
	TicketStatusInProgress: 2,
	TicketStatusResolved:   3,
	TicketStatusClosed:     4,
}

// AllStatuses lists statuses in lifecycle order.
func AllStatuses() []TicketStatus {
	return []TicketStatus{
		TicketStatusNew,
		TicketStatusAssigned,
		TicketStatusInProgress,
		TicketStatusResolved,
		TicketStatusClosed,
	}
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank orders statuses along the lifecycle; unknown statuses rank -1.
func (s TicketStatus) Rank() int {
	if rank, ok := statusRank[s]; ok {
		return rank
	}
	return -1
}

// IsResolvedOrLater reports whether resolution fields must be populated.
func (s TicketStatus) IsResolvedOrLater() bool {
	return s.Rank() >= statusRank[TicketStatusResolved]
}

// IsActive reports whether the ticket still needs work.
func (s TicketStatus) IsActive() bool {
	return s.Valid() && !s.IsResolvedOrLater()
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID           string
	Number       string
	Title        string
	Description  string
	Category     *string
	Status       TicketStatus
	Priority     TicketPriority
	CreatorID    string
	AssigneeID   *string
	Department   *string
	SLAHours     *int
	ResolvedAt   *time.Time
	ResolvedByID *string
	ChannelID    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAssignedTo reports whether userID is the current assignee.
func (t *Ticket) IsAssignedTo(userID string) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

// IsUnassigned reports whether the ticket sits in the shared pool.
func (t *Ticket) IsUnassigned() bool {
	return t.AssigneeID == nil
}

// SLADeadline returns when the SLA window closes, if the ticket has one.
func (t *Ticket) SLADeadline() *time.Time {
	if t.SLAHours == nil || t.CreatedAt.IsZero() {
		return nil
	}
	deadline := t.CreatedAt.Add(time.Duration(*t.SLAHours) * time.Hour)
	return &deadline
}

// TicketStats summarizes the ticket base for the admin dashboard.
type TicketStats struct {
	ByStatus      map[TicketStatus]int
	Total         int
	Active        int
	UrgentActive  int
	ResolvedSince int
}
