package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const maxNotificationPage = 100

// Recipient is one addressee of a fan-out.
type Recipient struct {
	UserID  string
	Message string
}

// NotificationService is the per-user notification outbox.
type NotificationService struct {
	notifications repository.NotificationRepository
	logger        *zap.Logger
	now           func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(notifications repository.NotificationRepository, logger *zap.Logger, clock func() time.Time) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &NotificationService{
		notifications: notifications,
		logger:        logger,
		now:           clock,
	}
}

// Notify inserts one notification per distinct recipient other than the actor.
// The first message queued for a recipient wins. Insert failures are logged
// and skipped. It returns how many notifications were stored.
func (n *NotificationService) Notify(ctx context.Context, actorID string, ticketID *string, recipients ...Recipient) int {
	seen := make(map[string]struct{}, len(recipients))
	sent := 0
	for _, r := range recipients {
		if r.UserID == "" || r.UserID == actorID {
			continue
		}
		if _, dup := seen[r.UserID]; dup {
			continue
		}
		seen[r.UserID] = struct{}{}

		notification := &domain.Notification{
			RecipientID: r.UserID,
			Message:     r.Message,
			TicketID:    ticketID,
			CreatedAt:   n.now(),
		}
		if err := n.notifications.Create(ctx, notification); err != nil {
			n.logger.Error("notification insert failed",
				zap.String("recipient_id", r.UserID),
				zap.Stringp("ticket_id", ticketID),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	return sent
}

// List returns the actor's inbox, newest first.
func (n *NotificationService) List(ctx context.Context, actor *domain.User, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if limit <= 0 || limit > maxNotificationPage {
		limit = maxNotificationPage
	}
	items, err := n.notifications.ListByRecipient(ctx, actor.ID, unreadOnly, limit)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return items, nil
}

// MarkRead flags one of the actor's notifications as read. Notifications
// owned by someone else are reported as missing.
func (n *NotificationService) MarkRead(ctx context.Context, actor *domain.User, id string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := n.notifications.MarkRead(ctx, id, actor.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("notification", map[string]any{"id": id})
		}
		return apperrors.NewInternalError(err)
	}
	return nil
}

// MarkAllRead clears the actor's unread inbox.
func (n *NotificationService) MarkAllRead(ctx context.Context, actor *domain.User) (int64, error) {
	if actor == nil {
		return 0, apperrors.NewUnauthorized("authentication required")
	}
	count, err := n.notifications.MarkAllRead(ctx, actor.ID)
	if err != nil {
		return 0, apperrors.NewInternalError(err)
	}
	return count, nil
}
