package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var priorityWeight = map[TicketPriority]int{
	TicketPriorityUrgent: 3,
	TicketPriorityHigh:   2,
	TicketPriorityMedium: 1,
	TicketPriorityLow:    0,
}

func TestCategoriesCatalogue(t *testing.T) {
	all := Categories()
	require.Len(t, all, 28)

	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		assert.LessOrEqual(t, prev.SLAHours, cur.SLAHours)
		// SLA never shrinks as priority drops.
		assert.GreaterOrEqual(t, priorityWeight[prev.Priority], priorityWeight[cur.Priority],
			"%s (%s) sorted before %s (%s)", prev.Key, prev.Priority, cur.Key, cur.Priority)
	}
}

func TestLookupCategory(t *testing.T) {
	tests := []struct {
		key      string
		priority TicketPriority
		sla      int
	}{
		{"internet_outage", TicketPriorityUrgent, 4},
		{"printer_issues", TicketPriorityMedium, 24},
		{"peripheral_setup", TicketPriorityLow, 48},
		{"cleanup_request", TicketPriorityLow, 72},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			category, ok := LookupCategory(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.priority, category.Priority)
			assert.Equal(t, tt.sla, category.SLAHours)
			assert.NotEmpty(t, category.Description)
		})
	}

	_, ok := LookupCategory("coffee_machine")
	assert.False(t, ok)
}

func TestStatusOrdering(t *testing.T) {
	assert.True(t, TicketStatusNew.Rank() < TicketStatusAssigned.Rank())
	assert.True(t, TicketStatusResolved.IsResolvedOrLater())
	assert.True(t, TicketStatusClosed.IsResolvedOrLater())
	assert.False(t, TicketStatusInProgress.IsResolvedOrLater())
	assert.False(t, TicketStatus("waiting").Valid())
	assert.Equal(t, -1, TicketStatus("waiting").Rank())
	assert.True(t, TicketStatusAssigned.IsActive())
	assert.False(t, TicketStatusClosed.IsActive())
}

func TestSLADeadline(t *testing.T) {
	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	hours := 4
	ticket := &Ticket{CreatedAt: created, SLAHours: &hours}
	require.NotNil(t, ticket.SLADeadline())
	assert.Equal(t, created.Add(4*time.Hour), *ticket.SLADeadline())

	ticket.SLAHours = nil
	assert.Nil(t, ticket.SLADeadline())
}
