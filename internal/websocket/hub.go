package websocket

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub maintains the active event-feed clients and fans session events out
// to them. Clients may narrow their feed to specific event types; an
// unfiltered client receives everything.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Clients subscribed per event type
	typeClients map[string]map[*Client]bool

	// Outbound events
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Subscription operations
	subscribe   chan *SubscribeOperation
	unsubscribe chan *SubscribeOperation

	// Mutex for thread-safe access
	mutex sync.RWMutex

	// Logger
	logger *zap.Logger

	// Metrics
	metrics *HubMetrics
}

// HubMetrics holds hub metrics
type HubMetrics struct {
	TotalConnections  int64
	ActiveConnections int64
	TotalMessages     int64
	TotalBroadcasts   int64
	DroppedBroadcasts int64
	mutex             sync.RWMutex
}

// SubscribeOperation represents an event-type subscription change
type SubscribeOperation struct {
	Client    *Client
	EventType string
}

// NewHub creates a new hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		typeClients: make(map[string]map[*Client]bool),
		broadcast:   make(chan *Message, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan *SubscribeOperation),
		unsubscribe: make(chan *SubscribeOperation),
		logger:      logger,
		metrics:     &HubMetrics{},
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case op := <-h.subscribe:
			h.handleSubscribe(op)

		case op := <-h.unsubscribe:
			h.handleUnsubscribe(op)

		case message := <-h.broadcast:
			h.handleBroadcast(message)
		}
	}
}

// registerClient registers a new client
func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true

	h.metrics.mutex.Lock()
	h.metrics.TotalConnections++
	h.metrics.ActiveConnections++
	h.metrics.mutex.Unlock()

	h.logger.Debug("event client registered", zap.String("client_id", client.ID))
}

// unregisterClient unregisters a client
func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)

		for eventType, clients := range h.typeClients {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.typeClients, eventType)
			}
		}

		h.metrics.mutex.Lock()
		h.metrics.ActiveConnections--
		h.metrics.mutex.Unlock()

		h.logger.Debug("event client unregistered", zap.String("client_id", client.ID))
	}
}

// handleSubscribe narrows a client's feed to the subscribed event types
func (h *Hub) handleSubscribe(op *SubscribeOperation) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.typeClients[op.EventType]; !ok {
		h.typeClients[op.EventType] = make(map[*Client]bool)
	}
	h.typeClients[op.EventType][op.Client] = true
	op.Client.Filters[op.EventType] = true

	h.logger.Debug("event client subscribed",
		zap.String("client_id", op.Client.ID),
		zap.String("event_type", op.EventType),
	)
}

// handleUnsubscribe removes one event type from a client's filter set
func (h *Hub) handleUnsubscribe(op *SubscribeOperation) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if clients, ok := h.typeClients[op.EventType]; ok {
		delete(clients, op.Client)
		if len(clients) == 0 {
			delete(h.typeClients, op.EventType)
		}
	}
	delete(op.Client.Filters, op.EventType)

	h.logger.Debug("event client unsubscribed",
		zap.String("client_id", op.Client.ID),
		zap.String("event_type", op.EventType),
	)
}

// handleBroadcast fans an event out to every client whose filter matches
func (h *Hub) handleBroadcast(message *Message) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	h.metrics.mutex.Lock()
	h.metrics.TotalBroadcasts++
	h.metrics.mutex.Unlock()

	for client := range h.clients {
		if len(client.Filters) > 0 && !client.Filters[message.Event] {
			continue
		}
		select {
		case client.send <- message:
			h.metrics.mutex.Lock()
			h.metrics.TotalMessages++
			h.metrics.mutex.Unlock()
		default:
			// Client's send buffer is full, skip
			h.logger.Warn("event client send buffer full",
				zap.String("client_id", client.ID),
			)
		}
	}
}

// Broadcast queues an event for all matching clients. It never blocks the
// caller; when the hub is saturated the event is dropped and counted.
func (h *Hub) Broadcast(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		h.metrics.mutex.Lock()
		h.metrics.DroppedBroadcasts++
		h.metrics.mutex.Unlock()
	}
}

// Subscribe narrows a client's feed to an event type
func (h *Hub) Subscribe(client *Client, eventType string) {
	h.subscribe <- &SubscribeOperation{Client: client, EventType: eventType}
}

// Unsubscribe removes an event type from a client's filter set
func (h *Hub) Unsubscribe(client *Client, eventType string) {
	h.unsubscribe <- &SubscribeOperation{Client: client, EventType: eventType}
}

// GetClientCount returns the number of active clients
func (h *Hub) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// GetSubscriberCount returns the number of clients filtered to an event type
func (h *Hub) GetSubscriberCount(eventType string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if clients, ok := h.typeClients[eventType]; ok {
		return len(clients)
	}
	return 0
}

// GetMetrics returns hub metrics
func (h *Hub) GetMetrics() HubMetrics {
	h.metrics.mutex.RLock()
	defer h.metrics.mutex.RUnlock()
	return HubMetrics{
		TotalConnections:  h.metrics.TotalConnections,
		ActiveConnections: h.metrics.ActiveConnections,
		TotalMessages:     h.metrics.TotalMessages,
		TotalBroadcasts:   h.metrics.TotalBroadcasts,
		DroppedBroadcasts: h.metrics.DroppedBroadcasts,
	}
}

// SendHeartbeat sends a ping event to all clients
func (h *Hub) SendHeartbeat() {
	h.Broadcast(&Message{
		Type:      MessageTypePing,
		Timestamp: time.Now(),
	})
}
