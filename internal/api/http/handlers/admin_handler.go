package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// AdminHandler exposes account management and the dashboard.
type AdminHandler struct {
	users   *service.UserService
	tickets *service.TicketService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(userService *service.UserService, ticketService *service.TicketService) *AdminHandler {
	return &AdminHandler{users: userService, tickets: ticketService}
}

// ListUsers handles GET /admin/users?role=&search=&page=&page_size=.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter := service.UserListFilter{
		Search: optionalQuery(c, "search"),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	if role := optionalQuery(c, "role"); role != nil {
		r := domain.Role(*role)
		filter.Role = &r
	}
	users, err := h.users.ListUsers(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponses(users)})
}

// UpdateUser handles PATCH /admin/users/:id.
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.AdminUpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.UpdateUser(c.UserContext(), actor, c.Params("id"), service.UserPatch{
		FullName:       req.FullName,
		Email:          req.Email,
		Role:           req.Role,
		ExternalChatID: req.ExternalChatID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	stats, err := h.tickets.Stats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StatsResponse{
		Total:         stats.Total,
		Active:        stats.Active,
		UrgentActive:  stats.UrgentActive,
		ResolvedToday: stats.ResolvedSince,
		ByStatus:      stats.ByStatus,
	}})
}

// RecentActivities handles GET /admin/activities?limit=.
func (h *AdminHandler) RecentActivities(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	activities, err := h.tickets.ListRecentActivities(c.UserContext(), actor, parseInt(c.Query("limit"), 50))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": activityResponses(activities)})
}
