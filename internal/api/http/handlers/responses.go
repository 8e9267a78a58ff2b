package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return user, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:           ticket.ID,
		Number:       ticket.Number,
		Title:        ticket.Title,
		Description:  ticket.Description,
		Category:     ticket.Category,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		CreatorID:    ticket.CreatorID,
		AssigneeID:   ticket.AssigneeID,
		Department:   ticket.Department,
		SLAHours:     ticket.SLAHours,
		SLADeadline:  ticket.SLADeadline(),
		ResolvedAt:   ticket.ResolvedAt,
		ResolvedByID: ticket.ResolvedByID,
		ChannelID:    ticket.ChannelID,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
}

func commentResponses(comments []domain.Comment) []dto.CommentResponse {
	resp := make([]dto.CommentResponse, 0, len(comments))
	for _, comment := range comments {
		resp = append(resp, dto.CommentResponse{
			ID:         comment.ID,
			TicketID:   comment.TicketID,
			AuthorID:   comment.AuthorID,
			Content:    comment.Body,
			IsInternal: comment.IsInternal,
			CreatedAt:  comment.CreatedAt,
		})
	}
	return resp
}

func activityResponses(entries []domain.Activity) []dto.ActivityResponse {
	resp := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.ActivityResponse{
			ID:        entry.ID,
			TicketID:  entry.TicketID,
			ActorID:   entry.ActorID,
			Kind:      entry.Kind,
			Detail:    entry.Detail,
			CreatedAt: entry.CreatedAt,
		})
	}
	return resp
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:             user.ID,
		Username:       user.Username,
		FullName:       user.FullName,
		Email:          user.Email,
		Role:           user.Role,
		ExternalChatID: user.ExternalChatID,
		CreatedAt:      user.CreatedAt,
	}
}

func userResponses(users []domain.User) []dto.UserResponse {
	resp := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, userResponse(&users[i]))
	}
	return resp
}

func userSummary(user *domain.User) *dto.UserSummary {
	if user == nil {
		return nil
	}
	return &dto.UserSummary{ID: user.ID, Username: user.Username, FullName: user.FullName, Role: user.Role}
}

func authResponse(user *domain.User, token domain.Token) dto.AuthResponse {
	return dto.AuthResponse{Token: token.Value, ExpiresAt: token.ExpiresAt, User: userResponse(user)}
}
