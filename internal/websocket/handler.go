package websocket

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lumenide/pluginhub/internal/config"
	"github.com/lumenide/pluginhub/internal/security"
)

// Handler handles event-feed WebSocket connections
type Handler struct {
	config      *config.EventsConfig
	authEnabled bool
	hub         *Hub
	upgrader    websocket.Upgrader
	jwtProvider *security.JWTProvider
	logger      *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(
	cfg *config.EventsConfig,
	authEnabled bool,
	hub *Hub,
	jwtProvider *security.JWTProvider,
	logger *zap.Logger,
) *Handler {
	h := &Handler{
		config:      cfg,
		authEnabled: authEnabled,
		hub:         hub,
		jwtProvider: jwtProvider,
		logger:      logger,
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   cfg.ReadBufferSize,
		WriteBufferSize:  cfg.WriteBufferSize,
		HandshakeTimeout: cfg.HandshakeTimeout,
		CheckOrigin:      h.checkOrigin,
	}

	return h
}

// RegisterRoutes registers WebSocket routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET(h.config.Path, h.handleWebSocket)
	router.GET(h.config.Path+"/status", h.handleStatus)
}

// handleWebSocket handles WebSocket upgrade requests. When API auth is
// enabled, a valid token is required via query parameter or header before
// the upgrade.
func (h *Handler) handleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
				token = parts[1]
			}
		}
	}

	if h.authEnabled {
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}
		if _, err := h.jwtProvider.ValidateToken(token); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, h.logger)
	h.hub.register <- client

	client.Send(&Message{
		Type:  MessageTypeEvent,
		Event: "connected",
		Data: map[string]any{
			"client_id": client.ID,
		},
		Timestamp: time.Now(),
	})

	go client.WritePump()
	go client.ReadPump()
}

// handleStatus returns event-feed hub status
func (h *Handler) handleStatus(c *gin.Context) {
	metrics := h.hub.GetMetrics()

	c.JSON(http.StatusOK, gin.H{
		"enabled":            h.config.Enabled,
		"active_connections": metrics.ActiveConnections,
		"total_connections":  metrics.TotalConnections,
		"total_messages":     metrics.TotalMessages,
		"total_broadcasts":   metrics.TotalBroadcasts,
		"dropped_broadcasts": metrics.DroppedBroadcasts,
	})
}

// checkOrigin checks if the origin is allowed
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}

// StartHeartbeat starts a goroutine that sends heartbeats
func (h *Handler) StartHeartbeat() {
	if h.config.HeartbeatInterval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(h.config.HeartbeatInterval)
		defer ticker.Stop()

		for range ticker.C {
			h.hub.SendHeartbeat()
		}
	}()
}

// GetHub returns the hub
func (h *Handler) GetHub() *Hub {
	return h.hub
}
