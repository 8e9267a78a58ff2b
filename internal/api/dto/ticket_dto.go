package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Priority    *domain.TicketPriority `json:"priority"`
	Category    *string                `json:"category"`
	Department  *string                `json:"department"`
}

// UpdateTicketRequest is a partial update; omitted fields are left alone and
// an empty string clears assignee_id, category or department.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Priority    *domain.TicketPriority `json:"priority"`
	Category    *string                `json:"category"`
	Department  *string                `json:"department"`
	Status      *domain.TicketStatus   `json:"status"`
	AssigneeID  *string                `json:"assignee_id"`
}

// AssignTicketRequest payload. An empty agent_id assigns the caller.
type AssignTicketRequest struct {
	AgentID string `json:"agent_id"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content    string `json:"content"`
	IsInternal bool   `json:"is_internal"`
}

// TicketResponse is the ticket as rendered to clients.
type TicketResponse struct {
	ID           string                `json:"id"`
	Number       string                `json:"ticket_number"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Category     *string               `json:"category"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	CreatorID    string                `json:"creator_id"`
	AssigneeID   *string               `json:"assignee_id"`
	Department   *string               `json:"department"`
	SLAHours     *int                  `json:"sla_hours"`
	SLADeadline  *time.Time            `json:"sla_deadline"`
	ResolvedAt   *time.Time            `json:"resolved_at"`
	ResolvedByID *string               `json:"resolved_by_id"`
	ChannelID    *string               `json:"channel_id,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// TicketDetailResponse adds participants and the visible thread.
type TicketDetailResponse struct {
	TicketResponse
	Creator    *UserSummary       `json:"creator"`
	Assignee   *UserSummary       `json:"assignee"`
	Comments   []CommentResponse  `json:"comments"`
	Activities []ActivityResponse `json:"activities"`
}

// CommentResponse represents one thread entry.
type CommentResponse struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	AuthorID   string    `json:"author_id"`
	Content    string    `json:"content"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// ActivityResponse represents one audit entry.
type ActivityResponse struct {
	ID        string              `json:"id"`
	TicketID  string              `json:"ticket_id"`
	ActorID   string              `json:"actor_id"`
	Kind      domain.ActivityKind `json:"kind"`
	Detail    string              `json:"detail"`
	CreatedAt time.Time           `json:"created_at"`
}

// CategoryResponse is one catalogue entry.
type CategoryResponse struct {
	Key         string                `json:"key"`
	Description string                `json:"description"`
	Tier        domain.CategoryTier   `json:"tier"`
	Priority    domain.TicketPriority `json:"priority"`
	SLAHours    int                   `json:"sla_hours"`
}

// StatsResponse feeds the admin dashboard.
type StatsResponse struct {
	Total         int                         `json:"total"`
	Active        int                         `json:"active"`
	UrgentActive  int                         `json:"urgent_active"`
	ResolvedToday int                         `json:"resolved_today"`
	ByStatus      map[domain.TicketStatus]int `json:"by_status"`
}
