// Package collab mirrors ticket conversations into an external chat service.
package collab

import (
	"context"
	"errors"
)

// ErrDisabled is returned by NoopBridge for channel creation.
var ErrDisabled = errors.New("collaboration bridge disabled")

// Bridge is the outbound contract to the chat service. Callers treat every
// error as best-effort and never fail the ticket operation on it.
type Bridge interface {
	CreateChannelForTicket(ctx context.Context, ticketNumber, title string, participantExternalIDs []string) (string, error)
	PostMessage(ctx context.Context, channelID, text, senderName string) error
}

// NoopBridge is used when the integration is switched off.
type NoopBridge struct{}

func (NoopBridge) CreateChannelForTicket(context.Context, string, string, []string) (string, error) {
	return "", ErrDisabled
}

func (NoopBridge) PostMessage(context.Context, string, string, string) error {
	return nil
}
