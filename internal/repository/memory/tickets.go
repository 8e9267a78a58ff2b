package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type ticketRepository struct {
	s *Store
}

func (r *ticketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, rec := range r.s.tickets {
		if rec.value.Number == ticket.Number {
			return fmt.Errorf("%w: tickets_ticket_number_key", repository.ErrDuplicate)
		}
	}
	id, seq := r.s.next()
	ticket.ID = id
	r.s.tickets[id] = record[domain.Ticket]{value: *ticket, seq: seq}
	return nil
}

func (r *ticketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	updated := *ticket
	// number, creator and channel are not written by Update
	updated.Number = existing.value.Number
	updated.CreatorID = existing.value.CreatorID
	updated.ChannelID = existing.value.ChannelID
	updated.CreatedAt = existing.value.CreatedAt
	r.s.tickets[ticket.ID] = record[domain.Ticket]{value: updated, seq: existing.seq}
	return nil
}

func (r *ticketRepository) SetChannel(_ context.Context, id, channelID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	rec.value.ChannelID = &channelID
	r.s.tickets[id] = rec
	return nil
}

func (r *ticketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ticket := rec.value
	return &ticket, nil
}

func (r *ticketRepository) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, rec := range r.s.tickets {
		if rec.value.Number == number {
			ticket := rec.value
			return &ticket, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *ticketRepository) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]record[domain.Ticket], 0)
	for _, rec := range r.s.tickets {
		if matchTicket(rec.value, filter) {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].value, matched[j].value
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return matched[i].seq > matched[j].seq
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	result := make([]domain.Ticket, 0)
	for _, rec := range page(matched, limit, filter.Offset) {
		result = append(result, rec.value)
	}
	return result, nil
}

func matchTicket(t domain.Ticket, f repository.TicketFilter) bool {
	if f.OwnerID != nil && t.CreatorID != *f.OwnerID {
		return false
	}
	if f.AgentPoolID != nil && !t.IsUnassigned() && !t.IsAssignedTo(*f.AgentPoolID) {
		return false
	}
	if f.CreatorID != nil && t.CreatorID != *f.CreatorID {
		return false
	}
	if f.AssigneeID != nil && !t.IsAssignedTo(*f.AssigneeID) {
		return false
	}
	if f.Unassigned && !t.IsUnassigned() {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			found = found || s == t.Status
		}
		if !found {
			return false
		}
	}
	if len(f.Priorities) > 0 {
		found := false
		for _, p := range f.Priorities {
			found = found || p == t.Priority
		}
		if !found {
			return false
		}
	}
	if f.Category != nil && (t.Category == nil || *t.Category != *f.Category) {
		return false
	}
	if f.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*f.SearchTerm))
		if term != "" &&
			!strings.Contains(strings.ToLower(t.Title), term) &&
			!strings.Contains(strings.ToLower(t.Description), term) {
			return false
		}
	}
	return true
}

func (r *ticketRepository) Stats(_ context.Context, resolvedSince time.Time) (domain.TicketStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stats := domain.TicketStats{ByStatus: make(map[domain.TicketStatus]int)}
	for _, rec := range r.s.tickets {
		t := rec.value
		stats.ByStatus[t.Status]++
		stats.Total++
		if t.Status.IsActive() {
			stats.Active++
			if t.Priority == domain.TicketPriorityUrgent {
				stats.UrgentActive++
			}
		}
		if t.ResolvedAt != nil && !t.ResolvedAt.Before(resolvedSince) {
			stats.ResolvedSince++
		}
	}
	return stats, nil
}
