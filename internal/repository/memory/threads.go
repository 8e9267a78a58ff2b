package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type commentRepository struct {
	s *Store
}

func (r *commentRepository) Create(_ context.Context, comment *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tickets[comment.TicketID]; !ok {
		return repository.ErrNotFound
	}
	id, seq := r.s.next()
	comment.ID = id
	r.s.comments[id] = record[domain.Comment]{value: *comment, seq: seq}
	return nil
}

func (r *commentRepository) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]record[domain.Comment], 0)
	for _, rec := range r.s.comments {
		if rec.value.TicketID != ticketID || (rec.value.IsInternal && !includeInternal) {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.value.CreatedAt.Equal(b.value.CreatedAt) {
			return a.value.CreatedAt.Before(b.value.CreatedAt)
		}
		return a.seq < b.seq
	})

	result := make([]domain.Comment, 0, len(matched))
	for _, rec := range matched {
		result = append(result, rec.value)
	}
	return result, nil
}

type activityRepository struct {
	s *Store
}

func (r *activityRepository) Append(_ context.Context, activity *domain.Activity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, seq := r.s.next()
	activity.ID = id
	r.s.activities[id] = record[domain.Activity]{value: *activity, seq: seq}
	return nil
}

func (r *activityRepository) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.Activity, error) {
	return r.list(func(a domain.Activity) bool {
		return a.TicketID == ticketID && (includeInternal || !a.Internal)
	}, 0), nil
}

func (r *activityRepository) ListRecent(_ context.Context, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.list(func(domain.Activity) bool { return true }, limit), nil
}

func (r *activityRepository) list(match func(domain.Activity) bool, limit int) []domain.Activity {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]record[domain.Activity], 0)
	for _, rec := range r.s.activities {
		if match(rec.value) {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.value.CreatedAt.Equal(b.value.CreatedAt) {
			return a.value.CreatedAt.After(b.value.CreatedAt)
		}
		return a.seq > b.seq
	})

	result := make([]domain.Activity, 0, len(matched))
	for _, rec := range page(matched, limit, 0) {
		result = append(result, rec.value)
	}
	return result
}

type notificationRepository struct {
	s *Store
}

func (r *notificationRepository) Create(_ context.Context, notification *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, seq := r.s.next()
	notification.ID = id
	r.s.notifications[id] = record[domain.Notification]{value: *notification, seq: seq}
	return nil
}

func (r *notificationRepository) ListByRecipient(_ context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	matched := make([]record[domain.Notification], 0)
	for _, rec := range r.s.notifications {
		if rec.value.RecipientID != recipientID || (unreadOnly && rec.value.IsRead) {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.value.CreatedAt.Equal(b.value.CreatedAt) {
			return a.value.CreatedAt.After(b.value.CreatedAt)
		}
		return a.seq > b.seq
	})

	result := make([]domain.Notification, 0, len(matched))
	for _, rec := range page(matched, limit, 0) {
		result = append(result, rec.value)
	}
	return result, nil
}

func (r *notificationRepository) MarkRead(_ context.Context, id, recipientID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.notifications[id]
	if !ok || rec.value.RecipientID != recipientID {
		return repository.ErrNotFound
	}
	rec.value.IsRead = true
	r.s.notifications[id] = rec
	return nil
}

func (r *notificationRepository) MarkAllRead(_ context.Context, recipientID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, rec := range r.s.notifications {
		if rec.value.RecipientID == recipientID && !rec.value.IsRead {
			rec.value.IsRead = true
			r.s.notifications[id] = rec
			n++
		}
	}
	return n, nil
}
