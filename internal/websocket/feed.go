package websocket

import (
	"github.com/google/uuid"

	"github.com/lumenide/pluginhub/internal/reconcile"
)

// Feed bridges session events onto the hub. It implements
// reconcile.Listener; OnPluginEvent runs on the session loop, so the
// broadcast must never block.
type Feed struct {
	hub *Hub
}

// NewFeed creates a feed over the hub.
func NewFeed(hub *Hub) *Feed {
	return &Feed{hub: hub}
}

// OnPluginEvent converts a session event into a feed message.
func (f *Feed) OnPluginEvent(e reconcile.Event) {
	f.hub.Broadcast(&Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeEvent,
		Event:     string(e.Type),
		PluginID:  e.PluginID,
		Data:      e.Data,
		Timestamp: e.Timestamp,
	})
}
