package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const (
	maxTitleLength       = 200
	minDescriptionLength = 10
	activityAttempts     = 3
	defaultRecentLimit   = 50
	maxRecentLimit       = 200
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	activities repository.ActivityRepository
	users      repository.UserRepository
	notifier   *NotificationService
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
	newNumber  func(time.Time) string
	cfg        config.TicketsConfig
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	CommentRepo  repository.CommentRepository
	ActivityRepo repository.ActivityRepository
	UserRepo     repository.UserRepository
	Notifier     *NotificationService
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Config       config.TicketsConfig
	// Clock defaults to time.Now.
	Clock func() time.Time
	// NumberGenerator defaults to GenerateTicketNumber.
	NumberGenerator func(time.Time) string
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    *domain.TicketPriority
	Category    *string
	Department  *string
}

// TicketPatch lists the fields an update may change. A nil field is left
// untouched; an empty AssigneeID, Category or Department clears it.
type TicketPatch struct {
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
	Category    *string
	Department  *string
	Status      *domain.TicketStatus
	AssigneeID  *string
}

// TicketListFilter describes listing filters supplied by the caller.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Category   *string
	AssigneeID *string
	CreatorID  *string
	Unassigned bool
	Search     *string
	Limit      int
	Offset     int
}

// TicketDetail is a ticket with its participants and thread.
type TicketDetail struct {
	Ticket     domain.Ticket
	Creator    *domain.User
	Assignee   *domain.User
	Comments   []domain.Comment
	Activities []domain.Activity
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		activities: deps.ActivityRepo,
		users:      deps.UserRepo,
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Clock,
		newNumber:  deps.NumberGenerator,
		cfg:        deps.Config,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newNumber == nil {
		s.newNumber = GenerateTicketNumber
	}
	if s.cfg.NumberAttempts <= 0 {
		s.cfg.NumberAttempts = 5
	}
	if s.cfg.DefaultPageSize <= 0 {
		s.cfg.DefaultPageSize = 20
	}
	if s.cfg.MaxPageSize <= 0 {
		s.cfg.MaxPageSize = 100
	}
	return s
}

// GenerateTicketNumber returns TKT-YYMMDD-XXXXXX with six random hex digits.
func GenerateTicketNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("TKT-%s-%s", at.Format("060102"), suffix)
}

// CreateTicket files a new ticket on behalf of actor.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}

	now := s.now()
	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusNew,
		Priority:    domain.TicketPriorityMedium,
		CreatorID:   actor.ID,
		Department:  nonEmpty(input.Department),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, invalidField("priority", string(*input.Priority))
		}
		ticket.Priority = *input.Priority
	}
	if key := nonEmpty(input.Category); key != nil {
		category, ok := domain.LookupCategory(*key)
		if !ok {
			return nil, invalidField("category", *key)
		}
		ticket.Category = &category.Key
		sla := category.SLAHours
		ticket.SLAHours = &sla
		if input.Priority == nil {
			ticket.Priority = category.Priority
		}
	}

	if err := s.insertWithNumber(ctx, ticket); err != nil {
		return nil, err
	}

	s.appendActivity(ctx, &domain.Activity{
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Kind:     domain.ActivityCreate,
		Detail:   fmt.Sprintf("created ticket %s", ticket.Number),
	})

	staff, err := s.users.List(ctx, repository.UserFilter{Roles: []domain.Role{domain.RoleAgent, domain.RoleAdmin}})
	if err != nil {
		s.logger.Error("load staff for notification failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	recipients := make([]Recipient, 0, len(staff))
	for _, u := range staff {
		recipients = append(recipients, Recipient{
			UserID:  u.ID,
			Message: fmt.Sprintf("New ticket %s created: %s", ticket.Number, ticket.Title),
		})
	}
	s.notify(ctx, actor.ID, ticket.ID, recipients...)

	s.publish(ctx, events.EventTicketCreated, ticket.ID, actor.ID, events.TicketCreatedPayload{Ticket: *ticket})

	// subscribers may have attached a chat channel
	if stored, err := s.tickets.GetByID(ctx, ticket.ID); err == nil {
		ticket = stored
	} else {
		s.logger.Warn("reload created ticket failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	return ticket, nil
}

func (s *TicketService) insertWithNumber(ctx context.Context, ticket *domain.Ticket) error {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.NumberAttempts; attempt++ {
		ticket.Number = s.newNumber(ticket.CreatedAt)
		err := s.tickets.Create(ctx, ticket)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return apperrors.NewInternalError(fmt.Errorf("insert ticket: %w", err))
		}
		lastErr = err
		s.logger.Warn("ticket number collision", zap.String("number", ticket.Number), zap.Int("attempt", attempt))
	}
	conflict := apperrors.NewDomainError(apperrors.CodeConflict, "could not allocate a unique ticket number", http.StatusConflict, nil)
	conflict.Err = lastErr
	return conflict
}

// UpdateTicket applies patch to the ticket. Changing the assignee classifies
// the activity as assign, otherwise a status change as status_change.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.User, ticketID string, patch TicketPatch) (*domain.Ticket, error) {
	ticket, err := s.loadAuthorized(ctx, actor, ticketID, policy.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if err := s.validatePatch(actor, patch); err != nil {
		return nil, err
	}

	var newAssignee *domain.User
	assigneeChanged := false
	if patch.AssigneeID != nil {
		target := strings.TrimSpace(*patch.AssigneeID)
		switch {
		case target == "" && ticket.AssigneeID != nil:
			assigneeChanged = true
		case target != "" && !ticket.IsAssignedTo(target):
			newAssignee, err = s.loadAssignee(ctx, target)
			if err != nil {
				return nil, err
			}
			assigneeChanged = true
		}
	}

	now := s.now()
	oldStatus := ticket.Status
	changed := applyFieldPatch(ticket, patch)

	if assigneeChanged {
		if newAssignee == nil {
			ticket.AssigneeID = nil
		} else {
			ticket.AssigneeID = &newAssignee.ID
		}
	}
	statusChanged := patch.Status != nil && *patch.Status != oldStatus
	if statusChanged {
		ticket.Status = *patch.Status
		stampResolution(ticket, oldStatus, actor.ID, now)
	}
	ticket.UpdatedAt = now

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, s.mapTicketErr(err, ticketID)
	}

	activity := &domain.Activity{TicketID: ticket.ID, ActorID: actor.ID}
	switch {
	case assigneeChanged:
		activity.Kind = domain.ActivityAssign
		if newAssignee != nil {
			activity.Detail = fmt.Sprintf("assigned to %s", newAssignee.DisplayName())
		} else {
			activity.Detail = "unassigned"
		}
		if statusChanged {
			activity.Detail += "; " + statusDetail(oldStatus, ticket.Status)
		}
	case statusChanged:
		activity.Kind = domain.ActivityStatusChange
		activity.Detail = statusDetail(oldStatus, ticket.Status)
	default:
		activity.Kind = domain.ActivityUpdate
		activity.Detail = "updated ticket"
		if len(changed) > 0 {
			activity.Detail = "updated " + strings.Join(changed, ", ")
		}
	}
	if statusChanged && oldStatus == domain.TicketStatusClosed {
		s.logger.Warn("closed ticket reopened",
			zap.String("ticket_id", ticket.ID),
			zap.String("actor_id", actor.ID),
			zap.String("new_status", string(ticket.Status)),
		)
	}
	s.appendActivity(ctx, activity)

	recipients := []Recipient{{
		UserID:  ticket.CreatorID,
		Message: fmt.Sprintf("Your ticket %s has been updated", ticket.Number),
	}}
	if ticket.AssigneeID != nil {
		recipients = append(recipients, Recipient{
			UserID:  *ticket.AssigneeID,
			Message: fmt.Sprintf("Ticket %s you're assigned to has been updated", ticket.Number),
		})
	}
	s.notify(ctx, actor.ID, ticket.ID, recipients...)

	s.publish(ctx, events.EventTicketUpdated, ticket.ID, actor.ID, events.TicketUpdatedPayload{
		Kind:      activity.Kind,
		OldStatus: oldStatus,
		NewStatus: ticket.Status,
	})
	return ticket, nil
}

func (s *TicketService) validatePatch(actor *domain.User, patch TicketPatch) error {
	if patch.Title != nil {
		if err := validateTitle(strings.TrimSpace(*patch.Title)); err != nil {
			return err
		}
	}
	if patch.Description != nil {
		if err := validateDescription(strings.TrimSpace(*patch.Description)); err != nil {
			return err
		}
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return invalidField("priority", string(*patch.Priority))
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return invalidField("status", string(*patch.Status))
	}
	if key := nonEmpty(patch.Category); key != nil {
		if _, ok := domain.LookupCategory(*key); !ok {
			return invalidField("category", *key)
		}
	}

	if actor.Role == domain.RoleUser {
		if patch.AssigneeID != nil {
			return apperrors.NewForbidden("only agents and admins can change the assignee")
		}
		if patch.Department != nil {
			return apperrors.NewForbidden("only agents and admins can change the department")
		}
		if patch.Status != nil && *patch.Status != domain.TicketStatusClosed {
			return apperrors.NewForbidden("users can only close their tickets")
		}
	}
	return nil
}

// applyFieldPatch copies the plain fields and reports which ones changed.
func applyFieldPatch(ticket *domain.Ticket, patch TicketPatch) []string {
	var changed []string
	if patch.Title != nil {
		if title := strings.TrimSpace(*patch.Title); title != ticket.Title {
			ticket.Title = title
			changed = append(changed, "title")
		}
	}
	if patch.Description != nil {
		if description := strings.TrimSpace(*patch.Description); description != ticket.Description {
			ticket.Description = description
			changed = append(changed, "description")
		}
	}
	if patch.Priority != nil && *patch.Priority != ticket.Priority {
		ticket.Priority = *patch.Priority
		changed = append(changed, "priority")
	}
	if patch.Category != nil {
		key := nonEmpty(patch.Category)
		if !sameString(key, ticket.Category) {
			ticket.Category = key
			ticket.SLAHours = nil
			if key != nil {
				category, _ := domain.LookupCategory(*key)
				sla := category.SLAHours
				ticket.SLAHours = &sla
			}
			changed = append(changed, "category")
		}
	}
	if patch.Department != nil {
		department := nonEmpty(patch.Department)
		if !sameString(department, ticket.Department) {
			ticket.Department = department
			changed = append(changed, "department")
		}
	}
	return changed
}

// stampResolution keeps resolved-at/by consistent with the new status.
func stampResolution(ticket *domain.Ticket, oldStatus domain.TicketStatus, actorID string, now time.Time) {
	switch {
	case ticket.Status == domain.TicketStatusResolved:
		ticket.ResolvedAt = &now
		ticket.ResolvedByID = &actorID
	case ticket.Status == domain.TicketStatusClosed:
		if ticket.ResolvedAt == nil {
			ticket.ResolvedAt = &now
			ticket.ResolvedByID = &actorID
		}
	case oldStatus.IsResolvedOrLater():
		ticket.ResolvedAt = nil
		ticket.ResolvedByID = nil
	}
}

func statusDetail(from, to domain.TicketStatus) string {
	detail := fmt.Sprintf("status changed: %s → %s", from, to)
	if from == domain.TicketStatusClosed {
		detail = "reopened closed ticket: " + detail
	}
	return detail
}

// AssignTicket hands the ticket to an agent or admin.
func (s *TicketService) AssignTicket(ctx context.Context, actor *domain.User, ticketID, agentID string) (*domain.Ticket, error) {
	if err := policy.CheckRole(actor, domain.RoleAgent, domain.RoleAdmin); err != nil {
		return nil, err
	}
	ticket, err := s.loadAuthorized(ctx, actor, ticketID, policy.ActionAssign)
	if err != nil {
		return nil, err
	}
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return nil, apperrors.NewValidationError("agent id is required", map[string]any{"field": "agent_id"})
	}
	agent, err := s.loadAssignee(ctx, agentID)
	if err != nil {
		return nil, err
	}

	ticket.AssigneeID = &agent.ID
	if ticket.Status == domain.TicketStatusNew {
		ticket.Status = domain.TicketStatusAssigned
	}
	ticket.UpdatedAt = s.now()

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, s.mapTicketErr(err, ticketID)
	}

	s.appendActivity(ctx, &domain.Activity{
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Kind:     domain.ActivityAssign,
		Detail:   fmt.Sprintf("assigned to %s", agent.DisplayName()),
	})
	s.notify(ctx, actor.ID, ticket.ID,
		Recipient{UserID: agent.ID, Message: fmt.Sprintf("You have been assigned to ticket %s", ticket.Number)},
		Recipient{UserID: ticket.CreatorID, Message: fmt.Sprintf("Your ticket %s has been assigned to an agent", ticket.Number)},
	)
	s.publish(ctx, events.EventTicketAssigned, ticket.ID, actor.ID, events.TicketAssignedPayload{AssigneeID: agent.ID})
	return ticket, nil
}

func (s *TicketService) loadAssignee(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !user.Role.IsStaff() {
		return nil, apperrors.NewValidationError("assignee must be an agent or admin", map[string]any{"field": "agent_id"})
	}
	return user, nil
}

// AddComment posts a public comment or internal note on the ticket.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.User, ticketID, content string, internal bool) (*domain.Comment, error) {
	ticket, err := s.loadAuthorized(ctx, actor, ticketID, policy.ActionComment)
	if err != nil {
		return nil, err
	}
	if internal {
		if err := policy.Authorize(actor, ticket, policy.ActionCommentInternal); err != nil {
			return nil, err
		}
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("comment content is required", map[string]any{"field": "content"})
	}

	comment := &domain.Comment{
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		Body:       content,
		IsInternal: internal,
		CreatedAt:  s.now(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, s.mapTicketErr(err, ticketID)
	}

	detail := "added a comment"
	if internal {
		detail = "added an internal note"
	}
	s.appendActivity(ctx, &domain.Activity{
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Kind:     domain.ActivityComment,
		Detail:   detail,
		Internal: internal,
	})

	var recipients []Recipient
	if s.creatorMayHear(ctx, ticket, internal) {
		recipients = append(recipients, Recipient{
			UserID:  ticket.CreatorID,
			Message: fmt.Sprintf("New comment on your ticket %s", ticket.Number),
		})
	}
	if ticket.AssigneeID != nil {
		recipients = append(recipients, Recipient{
			UserID:  *ticket.AssigneeID,
			Message: fmt.Sprintf("New comment on ticket %s", ticket.Number),
		})
	}
	s.notify(ctx, actor.ID, ticket.ID, recipients...)

	s.publish(ctx, events.EventTicketCommentAdded, ticket.ID, actor.ID, events.TicketCommentAddedPayload{
		Ticket:     *ticket,
		Comment:    *comment,
		AuthorName: actor.DisplayName(),
	})
	return comment, nil
}

// creatorMayHear hides internal notes from user-role creators.
func (s *TicketService) creatorMayHear(ctx context.Context, ticket *domain.Ticket, internal bool) bool {
	if !internal {
		return true
	}
	creator, err := s.users.GetByID(ctx, ticket.CreatorID)
	if err != nil {
		s.logger.Warn("load ticket creator failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return false
	}
	return creator.Role.IsStaff()
}

// ListTickets returns the tickets the actor may see, filtered and paginated.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return nil, invalidField("status", string(status))
		}
	}
	for _, priority := range filter.Priorities {
		if !priority.Valid() {
			return nil, invalidField("priority", string(priority))
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultPageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	repoFilter := repository.TicketFilter{
		CreatorID:  nonEmpty(filter.CreatorID),
		AssigneeID: nonEmpty(filter.AssigneeID),
		Unassigned: filter.Unassigned,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Category:   nonEmpty(filter.Category),
		SearchTerm: nonEmpty(filter.Search),
		Limit:      limit,
		Offset:     offset,
	}
	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleAgent:
		repoFilter.AgentPoolID = &actor.ID
	case domain.RoleUser:
		repoFilter.OwnerID = &actor.ID
	default:
		return nil, apperrors.NewForbidden("unknown role")
	}

	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("list tickets: %w", err))
	}
	return tickets, nil
}

// GetTicket resolves ref as an id or a ticket number and returns the full view.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ref string) (*TicketDetail, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.findTicket(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, ticket, policy.ActionRead); err != nil {
		return nil, err
	}

	includeInternal := policy.CanAccess(actor, ticket, policy.ActionViewInternal)
	comments, err := s.comments.ListByTicket(ctx, ticket.ID, includeInternal)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	activities, err := s.activities.ListByTicket(ctx, ticket.ID, includeInternal)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	detail := &TicketDetail{
		Ticket:     *ticket,
		Comments:   comments,
		Activities: activities,
	}
	detail.Creator = s.lookupUser(ctx, ticket.CreatorID)
	if ticket.AssigneeID != nil {
		detail.Assignee = s.lookupUser(ctx, *ticket.AssigneeID)
	}
	return detail, nil
}

func (s *TicketService) findTicket(ctx context.Context, ref string) (*domain.Ticket, error) {
	ref = strings.TrimSpace(ref)
	var (
		ticket *domain.Ticket
		err    error
	)
	if _, parseErr := uuid.Parse(ref); parseErr == nil {
		ticket, err = s.tickets.GetByID(ctx, ref)
	} else {
		ticket, err = s.tickets.GetByNumber(ctx, strings.ToUpper(ref))
	}
	if err != nil {
		return nil, s.mapTicketErr(err, ref)
	}
	return ticket, nil
}

func (s *TicketService) lookupUser(ctx context.Context, id string) *domain.User {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		s.logger.Warn("load ticket participant failed", zap.String("user_id", id), zap.Error(err))
		return nil
	}
	return user
}

// ListComments returns the thread oldest first. Internal notes are omitted
// for viewers without view_internal.
func (s *TicketService) ListComments(ctx context.Context, actor *domain.User, ticketID string) ([]domain.Comment, error) {
	ticket, err := s.loadAuthorized(ctx, actor, ticketID, policy.ActionRead)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID, policy.CanAccess(actor, ticket, policy.ActionViewInternal))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return comments, nil
}

// ListActivities returns the ticket's audit trail, newest first.
func (s *TicketService) ListActivities(ctx context.Context, actor *domain.User, ticketID string) ([]domain.Activity, error) {
	ticket, err := s.loadAuthorized(ctx, actor, ticketID, policy.ActionRead)
	if err != nil {
		return nil, err
	}
	activities, err := s.activities.ListByTicket(ctx, ticket.ID, policy.CanAccess(actor, ticket, policy.ActionViewInternal))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return activities, nil
}

// ListRecentActivities is the global audit feed for admins.
func (s *TicketService) ListRecentActivities(ctx context.Context, actor *domain.User, limit int) ([]domain.Activity, error) {
	if err := policy.CheckRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	activities, err := s.activities.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return activities, nil
}

// Stats aggregates ticket counts; resolved-today counts from local midnight.
func (s *TicketService) Stats(ctx context.Context, actor *domain.User) (domain.TicketStats, error) {
	if err := policy.CheckRole(actor, domain.RoleAdmin); err != nil {
		return domain.TicketStats{}, err
	}
	now := s.now()
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	stats, err := s.tickets.Stats(ctx, midnight)
	if err != nil {
		return domain.TicketStats{}, apperrors.NewInternalError(err)
	}
	for _, status := range domain.AllStatuses() {
		if _, ok := stats.ByStatus[status]; !ok {
			stats.ByStatus[status] = 0
		}
	}
	return stats, nil
}

func (s *TicketService) loadAuthorized(ctx context.Context, actor *domain.User, ticketID string, action policy.Action) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, s.mapTicketErr(err, ticketID)
	}
	if err := policy.Authorize(actor, ticket, action); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) mapTicketErr(err error, ref string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"id": ref})
	}
	return apperrors.NewInternalError(err)
}

// appendActivity runs after the primary write has committed, so it retries and
// then gives up with an error log rather than failing the operation.
func (s *TicketService) appendActivity(ctx context.Context, activity *domain.Activity) {
	activity.CreatedAt = s.now()
	var err error
	for attempt := 1; attempt <= activityAttempts; attempt++ {
		activity.ID = ""
		if err = s.activities.Append(ctx, activity); err == nil {
			return
		}
		s.logger.Warn("activity append failed",
			zap.String("ticket_id", activity.TicketID),
			zap.String("kind", string(activity.Kind)),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	s.logger.Error("activity lost after retries",
		zap.String("ticket_id", activity.TicketID),
		zap.String("actor_id", activity.ActorID),
		zap.String("kind", string(activity.Kind)),
		zap.String("detail", activity.Detail),
		zap.Error(err),
	)
}

func (s *TicketService) notify(ctx context.Context, actorID, ticketID string, recipients ...Recipient) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, actorID, &ticketID, recipients...)
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, ticketID, actorID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.NewEvent(eventType, ticketID, actorID, s.now(), payload))
}

func validateTitle(title string) error {
	if title == "" {
		return apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return apperrors.NewValidationError(
			fmt.Sprintf("title must be at most %d characters", maxTitleLength),
			map[string]any{"field": "title"})
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) < minDescriptionLength {
		return apperrors.NewValidationError(
			fmt.Sprintf("description must be at least %d characters", minDescriptionLength),
			map[string]any{"field": "description"})
	}
	return nil
}

func invalidField(field, value string) error {
	return apperrors.NewValidationError(
		fmt.Sprintf("invalid %s %q", field, value),
		map[string]any{"field": field})
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
