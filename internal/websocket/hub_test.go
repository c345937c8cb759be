package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumenide/pluginhub/internal/reconcile"
)

func newHubClient(h *Hub) *Client {
	return &Client{
		ID:      "test-" + time.Now().Format("150405.000000000"),
		Filters: make(map[string]bool),
		hub:     h,
		send:    make(chan *Message, sendBufferSize),
		logger:  zap.NewNop(),
	}
}

func TestHubRegisterAndUnregister(t *testing.T) {
	h := NewHub(zap.NewNop())
	go h.Run()

	client := newHubClient(h)
	h.register <- client
	require.Eventually(t, func() bool { return h.GetClientCount() == 1 }, time.Second, 10*time.Millisecond)

	h.unregister <- client
	require.Eventually(t, func() bool { return h.GetClientCount() == 0 }, time.Second, 10*time.Millisecond)

	metrics := h.GetMetrics()
	assert.Equal(t, int64(1), metrics.TotalConnections)
	assert.Equal(t, int64(0), metrics.ActiveConnections)
}

func TestHubBroadcastReachesUnfilteredClients(t *testing.T) {
	h := NewHub(zap.NewNop())
	go h.Run()

	client := newHubClient(h)
	h.register <- client
	require.Eventually(t, func() bool { return h.GetClientCount() == 1 }, time.Second, 10*time.Millisecond)

	h.Broadcast(NewEventMessage("applied", "", map[string]any{"without_restart": true}))

	select {
	case msg := <-client.send:
		assert.Equal(t, MessageTypeEvent, msg.Type)
		assert.Equal(t, "applied", msg.Event)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestHubFilteredClientOnlyReceivesSubscribedTypes(t *testing.T) {
	h := NewHub(zap.NewNop())
	go h.Run()

	client := newHubClient(h)
	h.register <- client
	require.Eventually(t, func() bool { return h.GetClientCount() == 1 }, time.Second, 10*time.Millisecond)

	h.Subscribe(client, "install_finished")
	require.Eventually(t, func() bool { return h.GetSubscriberCount("install_finished") == 1 }, time.Second, 10*time.Millisecond)

	h.Broadcast(NewEventMessage("enablement_changed", "a", nil))
	h.Broadcast(NewEventMessage("install_finished", "b", nil))

	select {
	case msg := <-client.send:
		assert.Equal(t, "install_finished", msg.Event, "filtered client must skip other event types")
		assert.Equal(t, "b", msg.PluginID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for filtered broadcast")
	}
	assert.Empty(t, client.send)
}

func TestFeedBridgesSessionEvents(t *testing.T) {
	h := NewHub(zap.NewNop())
	go h.Run()

	client := newHubClient(h)
	h.register <- client
	require.Eventually(t, func() bool { return h.GetClientCount() == 1 }, time.Second, 10*time.Millisecond)

	feed := NewFeed(h)
	feed.OnPluginEvent(reconcile.Event{
		Type:      reconcile.EventEnablementChanged,
		PluginID:  "com.example.tool",
		Data:      map[string]any{"state": "DISABLED"},
		Timestamp: time.Now(),
	})

	select {
	case msg := <-client.send:
		assert.Equal(t, string(reconcile.EventEnablementChanged), msg.Event)
		assert.Equal(t, "com.example.tool", msg.PluginID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for bridged event")
	}
}
