package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/collab"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// BridgeRelay mirrors ticket events into the external chat service. It runs
// after the primary write; every failure is logged and dropped.
type BridgeRelay struct {
	bridge  collab.Bridge
	tickets repository.TicketRepository
	users   repository.UserRepository
	logger  *zap.Logger
	timeout time.Duration
}

// NewBridgeRelay creates the relay. A zero timeout leaves the caller's context as is.
func NewBridgeRelay(bridge collab.Bridge, tickets repository.TicketRepository, users repository.UserRepository, logger *zap.Logger, timeout time.Duration) *BridgeRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BridgeRelay{
		bridge:  bridge,
		tickets: tickets,
		users:   users,
		logger:  logger,
		timeout: timeout,
	}
}

// RegisterHandlers subscribes to events.
func (r *BridgeRelay) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil || r.bridge == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketCreated, r.handleTicketCreated)
	dispatcher.Subscribe(events.EventTicketCommentAdded, r.handleCommentAdded)
}

func (r *BridgeRelay) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	ticket := payload.Ticket

	participants := make([]string, 0, 2)
	for _, id := range []*string{&ticket.CreatorID, ticket.AssigneeID} {
		if id == nil {
			continue
		}
		user, err := r.users.GetByID(ctx, *id)
		if err != nil || user.ExternalChatID == nil {
			continue
		}
		participants = append(participants, *user.ExternalChatID)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	channelID, err := r.bridge.CreateChannelForTicket(ctx, ticket.Number, ticket.Title, participants)
	if errors.Is(err, collab.ErrDisabled) {
		return nil
	}
	if err != nil {
		r.logger.Warn("bridge channel creation failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("ticket_number", ticket.Number),
			zap.Error(err),
		)
		return nil
	}
	if err := r.tickets.SetChannel(ctx, ticket.ID, channelID); err != nil {
		r.logger.Error("store bridge channel failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("channel_id", channelID),
			zap.Error(err),
		)
		return nil
	}
	r.logger.Info("bridge channel attached", zap.String("ticket_id", ticket.ID), zap.String("channel_id", channelID))
	return nil
}

func (r *BridgeRelay) handleCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCommentAddedPayload)
	if !ok || payload.Comment.IsInternal || payload.Ticket.ChannelID == nil {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.bridge.PostMessage(ctx, *payload.Ticket.ChannelID, payload.Comment.Body, payload.AuthorName); err != nil {
		r.logger.Warn("bridge message mirror failed",
			zap.String("ticket_id", payload.Ticket.ID),
			zap.String("comment_id", payload.Comment.ID),
			zap.Error(err),
		)
	}
	return nil
}

func (r *BridgeRelay) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}
