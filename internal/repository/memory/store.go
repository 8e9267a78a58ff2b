// Package memory provides map-backed repositories for development without
// Postgres and for service tests. It mirrors the uniqueness and ordering
// guarantees of the SQL schema.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type record[T any] struct {
	value T
	seq   int64
}

// Store holds every table behind a single lock.
type Store struct {
	mu            sync.RWMutex
	seq           int64
	users         map[string]record[domain.User]
	tickets       map[string]record[domain.Ticket]
	comments      map[string]record[domain.Comment]
	activities    map[string]record[domain.Activity]
	notifications map[string]record[domain.Notification]
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:         make(map[string]record[domain.User]),
		tickets:       make(map[string]record[domain.Ticket]),
		comments:      make(map[string]record[domain.Comment]),
		activities:    make(map[string]record[domain.Activity]),
		notifications: make(map[string]record[domain.Notification]),
	}
}

// Users returns the identity store.
func (s *Store) Users() repository.UserRepository { return &userRepository{s: s} }

// Tickets returns the ticket store.
func (s *Store) Tickets() repository.TicketRepository { return &ticketRepository{s: s} }

// Comments returns the comment log.
func (s *Store) Comments() repository.CommentRepository { return &commentRepository{s: s} }

// Activities returns the audit log.
func (s *Store) Activities() repository.ActivityRepository { return &activityRepository{s: s} }

// Notifications returns the notification inbox.
func (s *Store) Notifications() repository.NotificationRepository {
	return &notificationRepository{s: s}
}

// next must be called with mu held for writing.
func (s *Store) next() (string, int64) {
	s.seq++
	return uuid.NewString(), s.seq
}
