package service

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

type lifecycleCast struct {
	userA, agentB, agentC, admin, userD *domain.User
}

func newCast(t *testing.T, h *harness) lifecycleCast {
	return lifecycleCast{
		userA:  h.user(t, "alice", domain.RoleUser),
		agentB: h.user(t, "bob", domain.RoleAgent),
		agentC: h.user(t, "carol", domain.RoleAgent),
		admin:  h.user(t, "root", domain.RoleAdmin),
		userD:  h.user(t, "dave", domain.RoleUser),
	}
}

func TestTicketLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := newCast(t, h)

	// user A files a ticket
	ticket := h.createTicket(t, c.userA, "Printer broken")
	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.Nil(t, ticket.ResolvedAt)
	assert.Nil(t, ticket.ResolvedByID)
	assert.Regexp(t, regexp.MustCompile(`^TKT-260302-[0-9A-F]{6}$`), ticket.Number)

	trail := h.trail(t, ticket.ID)
	require.Len(t, trail, 1)
	assert.Equal(t, domain.ActivityCreate, trail[0].Kind)
	assert.Equal(t, c.userA.ID, trail[0].ActorID)

	for _, staff := range []*domain.User{c.agentB, c.agentC, c.admin} {
		inbox := h.inbox(t, staff)
		require.Len(t, inbox, 1, staff.Username)
		assert.Equal(t, "New ticket "+ticket.Number+" created: Printer broken", inbox[0].Message)
		assert.Equal(t, ticket.ID, *inbox[0].TicketID)
	}
	assert.Empty(t, h.inbox(t, c.userA))
	assert.Empty(t, h.inbox(t, c.userD))

	// admin assigns agent B
	h.clock.Advance(time.Minute)
	assigned, err := h.tickets.AssignTicket(ctx, c.admin, ticket.ID, c.agentB.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, assigned.Status)
	assert.True(t, assigned.IsAssignedTo(c.agentB.ID))

	trail = h.trail(t, ticket.ID)
	require.Len(t, trail, 2)
	assert.Equal(t, domain.ActivityAssign, trail[0].Kind)
	assert.Equal(t, "assigned to bob full", trail[0].Detail)

	require.Len(t, h.inbox(t, c.agentB), 2)
	assert.Equal(t, "You have been assigned to ticket "+ticket.Number, h.inbox(t, c.agentB)[0].Message)
	require.Len(t, h.inbox(t, c.userA), 1)
	assert.Equal(t, "Your ticket "+ticket.Number+" has been assigned to an agent", h.inbox(t, c.userA)[0].Message)
	assert.Len(t, h.inbox(t, c.admin), 1)

	// agent B resolves
	h.clock.Advance(time.Hour)
	resolvedAt := h.clock.Now()
	resolved, err := h.tickets.UpdateTicket(ctx, c.agentB, ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusResolved)})
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	assert.True(t, resolvedAt.Equal(*resolved.ResolvedAt))
	assert.Equal(t, c.agentB.ID, *resolved.ResolvedByID)

	trail = h.trail(t, ticket.ID)
	require.Len(t, trail, 3)
	assert.Equal(t, domain.ActivityStatusChange, trail[0].Kind)
	assert.Equal(t, "status changed: assigned → resolved", trail[0].Detail)
	require.Len(t, h.inbox(t, c.userA), 2)
	assert.Equal(t, "Your ticket "+ticket.Number+" has been updated", h.inbox(t, c.userA)[0].Message)
	assert.Len(t, h.inbox(t, c.agentB), 2)

	// agent C is neither assignee nor creator
	_, err = h.tickets.AddComment(ctx, c.agentC, ticket.ID, "looking into it", true)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	_, err = h.tickets.AddComment(ctx, c.agentC, ticket.ID, "looking into it", false)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	assert.Len(t, h.trail(t, ticket.ID), 3)

	// listing round trip
	listA, err := h.tickets.ListTickets(ctx, c.userA, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, listA, 1)
	assert.Equal(t, ticket.ID, listA[0].ID)

	listD, err := h.tickets.ListTickets(ctx, c.userD, TicketListFilter{})
	require.NoError(t, err)
	assert.Empty(t, listD)
}

func TestAgentMayWorkUnassignedPool(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := newCast(t, h)
	ticket := h.createTicket(t, c.userA, "VPN drops")

	comment, err := h.tickets.AddComment(ctx, c.agentC, ticket.ID, "checking the gateway", true)
	require.NoError(t, err)
	assert.True(t, comment.IsInternal)

	_, err = h.tickets.UpdateTicket(ctx, c.agentC, ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusInProgress)})
	require.NoError(t, err)

	listC, err := h.tickets.ListTickets(ctx, c.agentC, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, listC, 1)

	_, err = h.tickets.AssignTicket(ctx, c.admin, ticket.ID, c.agentB.ID)
	require.NoError(t, err)

	listC, err = h.tickets.ListTickets(ctx, c.agentC, TicketListFilter{})
	require.NoError(t, err)
	assert.Empty(t, listC)

	_, err = h.tickets.GetTicket(ctx, c.agentC, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestAgentFilerLosesTicketAssignedElsewhere(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := newCast(t, h)
	ticket := h.createTicket(t, c.agentC, "Laptop for new hire")

	_, err := h.tickets.AssignTicket(ctx, c.admin, ticket.ID, c.agentB.ID)
	require.NoError(t, err)

	_, err = h.tickets.GetTicket(ctx, c.agentC, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = h.tickets.UpdateTicket(ctx, c.agentC, ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusClosed)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = h.tickets.AddComment(ctx, c.agentC, ticket.ID, "any news?", false)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	listC, err := h.tickets.ListTickets(ctx, c.agentC, TicketListFilter{})
	require.NoError(t, err)
	assert.Empty(t, listC)

	stored, err := h.store.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, stored.Status)
}

func TestCreateTicketValidation(t *testing.T) {
	h := newHarness(t)
	user := h.user(t, "alice", domain.RoleUser)

	long := make([]byte, maxTitleLength+1)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name  string
		input TicketCreateInput
		field string
	}{
		{"blank title", TicketCreateInput{Title: "   ", Description: "long enough text"}, "title"},
		{"title too long", TicketCreateInput{Title: string(long), Description: "long enough text"}, "title"},
		{"short description", TicketCreateInput{Title: "Printer", Description: "broken"}, "description"},
		{"unknown priority", TicketCreateInput{Title: "Printer", Description: "long enough text", Priority: ptr(domain.TicketPriority("critical"))}, "priority"},
		{"unknown category", TicketCreateInput{Title: "Printer", Description: "long enough text", Category: ptr("coffee_machine")}, "category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.tickets.CreateTicket(context.Background(), user, tt.input)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
			assert.Equal(t, tt.field, apperrors.ToDomainError(err).Details["field"])
		})
	}

	_, err := h.tickets.CreateTicket(context.Background(), nil, TicketCreateInput{Title: "x", Description: "long enough text"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}

func TestCreateTicketCategoryDefaults(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	user := h.user(t, "alice", domain.RoleUser)

	ticket, err := h.tickets.CreateTicket(ctx, user, TicketCreateInput{
		Title:       "No internet",
		Description: "The whole floor is offline.",
		Category:    ptr("internet_outage"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityUrgent, ticket.Priority)
	require.NotNil(t, ticket.SLAHours)
	assert.Equal(t, 4, *ticket.SLAHours)

	ticket, err = h.tickets.CreateTicket(ctx, user, TicketCreateInput{
		Title:       "No internet again",
		Description: "The whole floor is offline.",
		Category:    ptr("internet_outage"),
		Priority:    ptr(domain.TicketPriorityLow),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityLow, ticket.Priority)

	ticket, err = h.tickets.CreateTicket(ctx, user, TicketCreateInput{Title: "Plain", Description: "Nothing categorised here."})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Nil(t, ticket.SLAHours)
}

func TestCreateTicketRetriesNumberCollision(t *testing.T) {
	h := newHarness(t, withNumbers("TKT-260302-AAAAAA", "TKT-260302-AAAAAA", "TKT-260302-BBBBBB"))
	user := h.user(t, "alice", domain.RoleUser)

	first := h.createTicket(t, user, "First")
	second := h.createTicket(t, user, "Second")
	assert.Equal(t, "TKT-260302-AAAAAA", first.Number)
	assert.Equal(t, "TKT-260302-BBBBBB", second.Number)
	assert.Equal(t, 1, h.logs.FilterMessage("ticket number collision").Len())
}

func TestCreateTicketGivesUpAfterCollisions(t *testing.T) {
	h := newHarness(t, withNumbers("TKT-260302-AAAAAA"))
	user := h.user(t, "alice", domain.RoleUser)
	h.createTicket(t, user, "First")

	_, err := h.tickets.CreateTicket(context.Background(), user, TicketCreateInput{Title: "Second", Description: "long enough text"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Equal(t, 3, h.logs.FilterMessage("ticket number collision").Len())
}

func TestEveryMutationAppendsOneActivity(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := newCast(t, h)

	ticket := h.createTicket(t, c.userA, "Laptop fan")
	require.Len(t, h.trail(t, ticket.ID), 1)

	_, err := h.tickets.UpdateTicket(ctx, c.userA, ticket.ID, TicketPatch{Title: ptr("Laptop fan is loud")})
	require.NoError(t, err)
	require.Len(t, h.trail(t, ticket.ID), 2)

	_, err = h.tickets.AssignTicket(ctx, c.agentB, ticket.ID, c.agentB.ID)
	require.NoError(t, err)
	require.Len(t, h.trail(t, ticket.ID), 3)

	_, err = h.tickets.AddComment(ctx, c.userA, ticket.ID, "it is getting worse", false)
	require.NoError(t, err)
	trail := h.trail(t, ticket.ID)
	require.Len(t, trail, 4)
	assert.Equal(t, domain.ActivityComment, trail[0].Kind)
	assert.Equal(t, "added a comment", trail[0].Detail)
	for _, a := range trail {
		assert.Equal(t, ticket.ID, a.TicketID)
	}
}

func TestUpdateTicketClassification(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := newCast(t, h)
	ticket := h.createTicket(t, c.userA, "Monitor flicker")

	_, err := h.tickets.UpdateTicket(ctx, c.agentB, ticket.ID, TicketPatch{
		Title:    ptr("Monitor flickers"),
		Priority: ptr(domain.TicketPriorityHigh),
	})
	require.NoError(t, err)
	trail := h.trail(t, ticket.ID)
	assert.Equal(t, domain.ActivityUpdate, trail[0].Kind)
	assert.Equal(t, "updated title, priority", trail[0].Detail)

	updated, err := h.tickets.UpdateTicket(ctx, c.agentB, ticket.ID, TicketPatch{
		AssigneeID: ptr(c.agentB.ID),
		Status:     ptr(domain.TicketStatusInProgress),
	})
	require.NoError(t, err)
	assert.True(t, updated.IsAssignedTo(c.agentB.ID))
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	trail = h.trail(t, ticket.ID)
	assert.Equal(t, domain.ActivityAssign, trail[0].Kind)
	assert.Equal(t, "assigned to bob full; status changed: new → in_progress", trail[0].Detail)

	updated, err = h.tickets.UpdateTicket(ctx, c.admin, ticket.ID, TicketPatch{AssigneeID: ptr("")})
	require.NoError(t, err)
	assert.True(t, updated.IsUnassigned())
	assert.Equal(t, "unassigned", h.trail(t, ticket.ID)[0].Detail)
}

func TestUpdateTicketCategoryRefreshesSLA(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := newCast(t, h)
	ticket := h.createTicket(t, c.userA, "Mail on phone")

	updated, err := h.tickets.UpdateTicket(ctx, c.agentB, ticket.ID, TicketPatch{Category: ptr("mobile_email_setup")})
	require.NoError(t, err)
	require.NotNil(t, updated.SLAHours)
	assert.Equal(t, 48, *updated.SLAHours)
	assert.Equal(t, domain.TicketPriorityMedium, updated.Priority)

	updated, err = h.tickets.UpdateTicket(ctx, c.agentB, ticket.ID, TicketPatch{Category: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.Category)
	assert.Nil(t, updated.SLAHours)
}

func TestUserRoleUpdateRestrictions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := newCast(t, h)
	ticket := h.createTicket(t, c.userA, "Keyboard")

	forbidden := []TicketPatch{
		{AssigneeID: ptr(c.agentB.ID)},
		{Department: ptr("finance")},
		{Status: ptr(domain.TicketStatusResolved)},
		{Status: ptr(domain.TicketStatusInProgress)},
	}
	for _, patch := range forbidden {
		_, err := h.tickets.UpdateTicket(ctx, c.userA, ticket.ID, patch)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	}

	_, err := h.tickets.UpdateTicket(ctx, c.userD, ticket.ID, TicketPatch{Title: ptr("mine now")})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	_, err = h.tickets.GetTicket(ctx, c.userD, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	closed, err := h.tickets.UpdateTicket(ctx, c.userA, ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusClosed)})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	require.NotNil(t, closed.ResolvedByID)
	assert.Equal(t, c.userA.ID, *closed.ResolvedByID)

	_, err = h.tickets.AssignTicket(ctx, c.userA, ticket.ID, c.agentB.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestResolutionStamping(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := newCast(t, h)
	ticket := h.createTicket(t, c.userA, "Disk full")

	first := h.clock.Now()
	resolved, err := h.tickets.UpdateTicket(ctx, c.agentB, ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusResolved)})
	require.NoError(t, err)
	assert.True(t, first.Equal(*resolved.ResolvedAt))

	h.clock.Advance(time.Hour)
	closed, err := h.tickets.UpdateTicket(ctx, c.admin, ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusClosed)})
	require.NoError(t, err)
	assert.True(t, first.Equal(*closed.ResolvedAt), "closing keeps the first resolution")
	assert.Equal(t, c.agentB.ID, *closed.ResolvedByID)

	h.clock.Advance(time.Hour)
	reopened, err := h.tickets.UpdateTicket(ctx, c.agentB, ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusInProgress)})
	require.NoError(t, err)
	assert.Nil(t, reopened.ResolvedAt)
	assert.Nil(t, reopened.ResolvedByID)
	assert.Equal(t, "reopened closed ticket: status changed: closed → in_progress", h.trail(t, ticket.ID)[0].Detail)
	warnings := h.logs.FilterMessage("closed ticket reopened").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)

	h.clock.Advance(time.Hour)
	second := h.clock.Now()
	reresolved, err := h.tickets.UpdateTicket(ctx, c.admin, ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusResolved)})
	require.NoError(t, err)
	assert.True(t, second.Equal(*reresolved.ResolvedAt))
	assert.Equal(t, c.admin.ID, *reresolved.ResolvedByID)
}

func TestInternalNotesVisibility(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := newCast(t, h)
	ticket := h.createTicket(t, c.userA, "Account locked")
	_, err := h.tickets.AssignTicket(ctx, c.admin, ticket.ID, c.agentB.ID)
	require.NoError(t, err)
	before := len(h.inbox(t, c.userA))

	_, err = h.tickets.AddComment(ctx, c.userA, ticket.ID, "please hurry", true)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = h.tickets.AddComment(ctx, c.agentB, ticket.ID, "resetting via AD", true)
	require.NoError(t, err)
	_, err = h.tickets.AddComment(ctx, c.agentB, ticket.ID, "Your account is unlocked.", false)
	require.NoError(t, err)

	assert.Len(t, h.inbox(t, c.userA), before+1, "internal note does not notify the user")

	asUser, err := h.tickets.GetTicket(ctx, c.userA, ticket.Number)
	require.NoError(t, err)
	require.Len(t, asUser.Comments, 1)
	assert.False(t, asUser.Comments[0].IsInternal)
	for _, a := range asUser.Activities {
		assert.False(t, a.Internal)
	}
	require.NotNil(t, asUser.Creator)
	assert.Equal(t, c.userA.ID, asUser.Creator.ID)
	require.NotNil(t, asUser.Assignee)
	assert.Equal(t, c.agentB.ID, asUser.Assignee.ID)

	asAgent, err := h.tickets.GetTicket(ctx, c.agentB, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, asAgent.Comments, 2)
	assert.Equal(t, "resetting via AD", asAgent.Comments[0].Body)

	comments, err := h.tickets.ListComments(ctx, c.userA, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)

	activities, err := h.tickets.ListActivities(ctx, c.admin, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, activities, 4)
}

func TestAddCommentValidation(t *testing.T) {
	h := newHarness(t)
	c := newCast(t, h)
	ticket := h.createTicket(t, c.userA, "Scanner")

	_, err := h.tickets.AddComment(context.Background(), c.userA, ticket.ID, "   ", false)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.tickets.AddComment(context.Background(), c.userA, "8a2b0c6e-0000-4000-8000-000000000000", "hello", false)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestNotificationsSkipActorAndDeduplicate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := newCast(t, h)

	// agent B files a ticket, then gets it assigned; B is both creator and assignee
	ticket := h.createTicket(t, c.agentB, "Docking station")
	assert.Empty(t, h.inbox(t, c.agentB))

	_, err := h.tickets.AssignTicket(ctx, c.admin, ticket.ID, c.agentB.ID)
	require.NoError(t, err)
	inbox := h.inbox(t, c.agentB)
	require.Len(t, inbox, 1)
	assert.Equal(t, "You have been assigned to ticket "+ticket.Number, inbox[0].Message)

	_, err = h.tickets.AddComment(ctx, c.agentB, ticket.ID, "noted", true)
	require.NoError(t, err)
	assert.Len(t, h.inbox(t, c.agentB), 1)
}

func TestActivityAppendRetries(t *testing.T) {
	h := newHarness(t, withFlakyActivities(2))
	user := h.user(t, "alice", domain.RoleUser)

	ticket := h.createTicket(t, user, "Mouse")
	assert.Len(t, h.trail(t, ticket.ID), 1)
	assert.Equal(t, 2, h.logs.FilterMessage("activity append failed").Len())
	assert.Zero(t, h.logs.FilterMessage("activity lost after retries").Len())
}

func TestActivityLossDoesNotFailOperation(t *testing.T) {
	h := newHarness(t, withFlakyActivities(activityAttempts))
	user := h.user(t, "alice", domain.RoleUser)

	ticket := h.createTicket(t, user, "Mouse")
	assert.NotEmpty(t, ticket.ID)
	assert.Empty(t, h.trail(t, ticket.ID))

	lost := h.logs.FilterMessage("activity lost after retries").All()
	require.Len(t, lost, 1)
	assert.Equal(t, zapcore.ErrorLevel, lost[0].Level)
}

func TestAssignTicketValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := newCast(t, h)
	ticket := h.createTicket(t, c.userA, "Phone")

	_, err := h.tickets.AssignTicket(ctx, c.admin, ticket.ID, " ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.tickets.AssignTicket(ctx, c.admin, ticket.ID, c.userD.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.tickets.AssignTicket(ctx, c.admin, ticket.ID, "8a2b0c6e-0000-4000-8000-000000000000")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	assert.Len(t, h.trail(t, ticket.ID), 1)
}

func TestGetTicketByNumberAndMissing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := newCast(t, h)
	ticket := h.createTicket(t, c.userA, "Webcam")

	detail, err := h.tickets.GetTicket(ctx, c.userA, " "+strings.ToLower(ticket.Number)+" ")
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, detail.Ticket.ID)

	_, err = h.tickets.GetTicket(ctx, c.userA, "TKT-000000-000000")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = h.tickets.GetTicket(ctx, nil, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}

func TestListTicketsFiltersAndPaging(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := newCast(t, h)

	for _, title := range []string{"Printer jam", "Printer toner", "Wifi slow"} {
		h.createTicket(t, c.userA, title)
		h.clock.Advance(time.Minute)
	}

	all, err := h.tickets.ListTickets(ctx, c.admin, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Wifi slow", all[0].Title)

	printers, err := h.tickets.ListTickets(ctx, c.admin, TicketListFilter{Search: ptr("PRINTER")})
	require.NoError(t, err)
	assert.Len(t, printers, 2)

	paged, err := h.tickets.ListTickets(ctx, c.admin, TicketListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "Printer toner", paged[0].Title)

	_, err = h.tickets.ListTickets(ctx, c.admin, TicketListFilter{Statuses: []domain.TicketStatus{"open"}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	open, err := h.tickets.ListTickets(ctx, c.admin, TicketListFilter{Statuses: []domain.TicketStatus{domain.TicketStatusNew}, Unassigned: true})
	require.NoError(t, err)
	assert.Len(t, open, 3)
}

func TestStatsAndRecentActivity(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := newCast(t, h)

	first := h.createTicket(t, c.userA, "Server down")
	h.createTicket(t, c.userA, "Slow laptop")
	_, err := h.tickets.UpdateTicket(ctx, c.admin, first.ID, TicketPatch{
		Status:   ptr(domain.TicketStatusResolved),
		Priority: ptr(domain.TicketPriorityUrgent),
	})
	require.NoError(t, err)

	_, err = h.tickets.Stats(ctx, c.agentB)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	stats, err := h.tickets.Stats(ctx, c.admin)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.ResolvedSince)
	assert.Equal(t, 0, stats.UrgentActive)
	assert.Equal(t, 1, stats.ByStatus[domain.TicketStatusNew])
	assert.Equal(t, 0, stats.ByStatus[domain.TicketStatusClosed])
	assert.Len(t, stats.ByStatus, len(domain.AllStatuses()))

	_, err = h.tickets.ListRecentActivities(ctx, c.agentB, 10)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	recent, err := h.tickets.ListRecentActivities(ctx, c.admin, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, domain.ActivityStatusChange, recent[0].Kind)
}

func TestTicketEventsPublished(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := newCast(t, h)

	var seen []events.EventType
	record := func(_ context.Context, e events.Event) error {
		seen = append(seen, e.Type)
		return nil
	}
	for _, et := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketUpdated,
		events.EventTicketAssigned,
		events.EventTicketCommentAdded,
	} {
		h.dispatcher.Subscribe(et, record)
	}

	ticket := h.createTicket(t, c.userA, "Headset")
	_, err := h.tickets.AssignTicket(ctx, c.admin, ticket.ID, c.agentB.ID)
	require.NoError(t, err)
	_, err = h.tickets.UpdateTicket(ctx, c.agentB, ticket.ID, TicketPatch{Status: ptr(domain.TicketStatusInProgress)})
	require.NoError(t, err)
	_, err = h.tickets.AddComment(ctx, c.agentB, ticket.ID, "on it", false)
	require.NoError(t, err)

	assert.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketAssigned,
		events.EventTicketUpdated,
		events.EventTicketCommentAdded,
	}, seen)
}

func TestGenerateTicketNumber(t *testing.T) {
	at := time.Date(2026, time.December, 31, 23, 0, 0, 0, time.UTC)
	a, b := GenerateTicketNumber(at), GenerateTicketNumber(at)
	assert.Regexp(t, `^TKT-261231-[0-9A-F]{6}$`, a)
	assert.NotEqual(t, a, b)
}
