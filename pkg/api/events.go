package api

import (
	"context"

	"github.com/sipeed/picotune/pkg/bus"
	"github.com/sipeed/picotune/pkg/logger"
)

// EventBridge forwards bus system events (session lifecycle, notifier
// outcomes) to WebSocket clients.
// Component interactions must not be tapped here: the gateway treats zero
// deliveries as expired controls.
type EventBridge struct {
	bus *bus.MessageBus
	hub *WSHub
}

func NewEventBridge(mb *bus.MessageBus, hub *WSHub) *EventBridge {
	return &EventBridge{bus: mb, hub: hub}
}

// Run subscribes before returning, so events published afterwards are
// forwarded. Forwarding stops with ctx or when the bus closes.
func (eb *EventBridge) Run(ctx context.Context) {
	if eb.bus == nil {
		return
	}
	systemTap := eb.bus.SubscribeSystem("event-bridge")
	logger.InfoC("events", "Event bridge started")
	go eb.forwardSystem(ctx, systemTap)
}

func (eb *EventBridge) forwardSystem(ctx context.Context, tap <-chan interface{}) {
	for {
		select {
		case <-ctx.Done():
			logger.DebugC("events", "System event bridge stopped")
			return
		case raw, ok := <-tap:
			if !ok {
				return
			}
			if evt, ok := raw.(bus.SystemEvent); ok {
				eb.hub.Broadcast(evt.Type, map[string]interface{}{
					"source": evt.Source,
					"data":   evt.Data,
				})
			}
		}
	}
}
