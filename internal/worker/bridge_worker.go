package worker

import (
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// StartBridgeRelay registers the chat bridge handlers on the dispatcher.
func StartBridgeRelay(relay *service.BridgeRelay, dispatcher events.Dispatcher) {
	if relay == nil {
		return
	}
	relay.RegisterHandlers(dispatcher)
}
