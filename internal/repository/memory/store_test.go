package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

var base = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newTicket(number, creator string, at time.Time) *domain.Ticket {
	return &domain.Ticket{
		Number:      number,
		Title:       "Printer jam " + number,
		Description: "Paper stuck in tray two",
		Status:      domain.TicketStatusNew,
		Priority:    domain.TicketPriorityMedium,
		CreatorID:   creator,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func TestUsersUniqueness(t *testing.T) {
	ctx := context.Background()
	users := NewStore().Users()

	alice := &domain.User{Username: "alice", Email: "alice@example.com", Role: domain.RoleUser}
	require.NoError(t, users.Create(ctx, alice))
	require.NotEmpty(t, alice.ID)

	err := users.Create(ctx, &domain.User{Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	err = users.Create(ctx, &domain.User{Username: "bob", Email: "ALICE@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	found, err := users.GetByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)

	_, err = users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUsersListByRole(t *testing.T) {
	ctx := context.Background()
	users := NewStore().Users()
	for _, u := range []*domain.User{
		{Username: "u1", Email: "u1@x", Role: domain.RoleUser},
		{Username: "a1", Email: "a1@x", Role: domain.RoleAgent},
		{Username: "root", Email: "root@x", Role: domain.RoleAdmin},
	} {
		require.NoError(t, users.Create(ctx, u))
	}

	staff, err := users.List(ctx, repository.UserFilter{Roles: []domain.Role{domain.RoleAgent, domain.RoleAdmin}})
	require.NoError(t, err)
	require.Len(t, staff, 2)
	assert.Equal(t, "a1", staff[0].Username)
	assert.Equal(t, "root", staff[1].Username)
}

func TestTicketNumberUnique(t *testing.T) {
	ctx := context.Background()
	tickets := NewStore().Tickets()

	require.NoError(t, tickets.Create(ctx, newTicket("TKT-260504-AAAAAA", "u1", base)))
	err := tickets.Create(ctx, newTicket("TKT-260504-AAAAAA", "u2", base))
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestTicketListOrderingAndScopes(t *testing.T) {
	ctx := context.Background()
	tickets := NewStore().Tickets()

	older := newTicket("TKT-1", "u1", base)
	newer := newTicket("TKT-2", "u1", base.Add(time.Minute))
	agent := "agent-b"
	other := "agent-c"
	assigned := newTicket("TKT-3", "u2", base)
	assigned.AssigneeID = &agent
	foreign := newTicket("TKT-4", "u2", base)
	foreign.AssigneeID = &other
	for _, tk := range []*domain.Ticket{older, newer, assigned, foreign} {
		require.NoError(t, tickets.Create(ctx, tk))
	}

	// bump the older ticket so it sorts first
	older.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, tickets.Update(ctx, older))

	owner := "u1"
	own, err := tickets.List(ctx, repository.TicketFilter{OwnerID: &owner})
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, "TKT-1", own[0].Number)
	assert.Equal(t, "TKT-2", own[1].Number)

	pool, err := tickets.List(ctx, repository.TicketFilter{AgentPoolID: &agent})
	require.NoError(t, err)
	numbers := make([]string, 0, len(pool))
	for _, tk := range pool {
		numbers = append(numbers, tk.Number)
	}
	assert.ElementsMatch(t, []string{"TKT-1", "TKT-2", "TKT-3"}, numbers)

	search := "TKT-4"
	found, err := tickets.List(ctx, repository.TicketFilter{SearchTerm: &search})
	require.NoError(t, err)
	require.Len(t, found, 1)

	limited, err := tickets.List(ctx, repository.TicketFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestCommentsAndActivitiesOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	ticket := newTicket("TKT-1", "u1", base)
	require.NoError(t, store.Tickets().Create(ctx, ticket))

	require.NoError(t, store.Comments().Create(ctx, &domain.Comment{TicketID: ticket.ID, AuthorID: "u1", Body: "first", CreatedAt: base}))
	require.NoError(t, store.Comments().Create(ctx, &domain.Comment{TicketID: ticket.ID, AuthorID: "a1", Body: "note", IsInternal: true, CreatedAt: base}))
	require.NoError(t, store.Comments().Create(ctx, &domain.Comment{TicketID: ticket.ID, AuthorID: "a1", Body: "second", CreatedAt: base}))

	public, err := store.Comments().ListByTicket(ctx, ticket.ID, false)
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, "first", public[0].Body)
	assert.Equal(t, "second", public[1].Body)

	all, err := store.Comments().ListByTicket(ctx, ticket.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	err = store.Comments().Create(ctx, &domain.Comment{TicketID: "missing", Body: "x"})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, store.Activities().Append(ctx, &domain.Activity{TicketID: ticket.ID, Kind: domain.ActivityCreate, CreatedAt: base}))
	require.NoError(t, store.Activities().Append(ctx, &domain.Activity{TicketID: ticket.ID, Kind: domain.ActivityComment, CreatedAt: base}))
	activities, err := store.Activities().ListByTicket(ctx, ticket.ID, true)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	assert.Equal(t, domain.ActivityComment, activities[0].Kind)
}

func TestNotificationsMarkRead(t *testing.T) {
	ctx := context.Background()
	notifications := NewStore().Notifications()

	mine := &domain.Notification{RecipientID: "u1", Message: "hello", CreatedAt: base}
	require.NoError(t, notifications.Create(ctx, mine))
	require.NoError(t, notifications.Create(ctx, &domain.Notification{RecipientID: "u1", Message: "again", CreatedAt: base}))

	assert.ErrorIs(t, notifications.MarkRead(ctx, mine.ID, "u2"), repository.ErrNotFound)
	require.NoError(t, notifications.MarkRead(ctx, mine.ID, "u1"))

	unread, err := notifications.ListByRecipient(ctx, "u1", true, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "again", unread[0].Message)

	n, err := notifications.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	tickets := NewStore().Tickets()

	urgent := newTicket("TKT-1", "u1", base)
	urgent.Priority = domain.TicketPriorityUrgent
	resolved := newTicket("TKT-2", "u1", base)
	resolved.Status = domain.TicketStatusResolved
	at := base.Add(2 * time.Hour)
	resolved.ResolvedAt = &at
	for _, tk := range []*domain.Ticket{urgent, resolved} {
		require.NoError(t, tickets.Create(ctx, tk))
	}

	stats, err := tickets.Stats(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.UrgentActive)
	assert.Equal(t, 1, stats.ResolvedSince)
	assert.Equal(t, 1, stats.ByStatus[domain.TicketStatusResolved])
}
