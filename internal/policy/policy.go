// Package policy holds the role-based authorization rules for tickets.
// Every ticket operation consults CanAccess instead of checking roles inline.
package policy

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Action names what the actor wants to do with a ticket.
type Action string

const (
	ActionRead            Action = "read"
	ActionUpdate          Action = "update"
	ActionComment         Action = "comment"
	ActionCommentInternal Action = "comment_internal"
	ActionViewInternal    Action = "view_internal"
	ActionAssign          Action = "assign"
)

// CanAccess decides whether actor may perform action on ticket.
func CanAccess(actor *domain.User, ticket *domain.Ticket, action Action) bool {
	if actor == nil || ticket == nil {
		return false
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleAgent:
		return agentCan(actor, ticket, action)
	case domain.RoleUser:
		return userCan(actor, ticket, action)
	default:
		return false
	}
}

func agentCan(actor *domain.User, ticket *domain.Ticket, action Action) bool {
	switch action {
	case ActionViewInternal:
		return true
	case ActionRead, ActionUpdate, ActionComment, ActionCommentInternal, ActionAssign:
		return ticket.IsUnassigned() || ticket.IsAssignedTo(actor.ID)
	}
	return false
}

func userCan(actor *domain.User, ticket *domain.Ticket, action Action) bool {
	switch action {
	case ActionRead, ActionUpdate, ActionComment:
		return ticket.CreatorID == actor.ID
	}
	return false
}

// Authorize returns an AuthorizationError when CanAccess denies the action.
func Authorize(actor *domain.User, ticket *domain.Ticket, action Action) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !CanAccess(actor, ticket, action) {
		return apperrors.NewForbidden(deniedMessage(action))
	}
	return nil
}

// HasRole reports whether actor holds one of the allowed roles.
func HasRole(actor *domain.User, allowed ...domain.Role) bool {
	if actor == nil {
		return false
	}
	for _, role := range allowed {
		if actor.Role == role {
			return true
		}
	}
	return false
}

// CheckRole guards operations that do not target a specific ticket.
func CheckRole(actor *domain.User, allowed ...domain.Role) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !HasRole(actor, allowed...) {
		return apperrors.NewForbidden("insufficient role")
	}
	return nil
}

// CanViewComment hides internal notes from viewers without view_internal.
func CanViewComment(actor *domain.User, ticket *domain.Ticket, comment *domain.Comment) bool {
	if !comment.IsInternal {
		return true
	}
	return CanAccess(actor, ticket, ActionViewInternal)
}

func deniedMessage(action Action) string {
	switch action {
	case ActionCommentInternal:
		return "only agents and admins can post internal comments"
	case ActionAssign:
		return "not allowed to assign this ticket"
	case ActionRead:
		return "not allowed to view this ticket"
	case ActionComment:
		return "not allowed to comment on this ticket"
	default:
		return "not allowed to modify this ticket"
	}
}
