package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizlive/go/internal/auth"
	"github.com/mcdev12/quizlive/go/internal/realtime/timer"
)

// WebSocketHandler authenticates and upgrades realtime connections
type WebSocketHandler struct {
	authn    *Authenticator
	handler  MessageHandler
	rooms    *Registry
	timers   *timer.Manager
	config   ConnectionConfig
	upgrader websocket.Upgrader
	active   atomic.Int64
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(authn *Authenticator, handler MessageHandler, rooms *Registry, timers *timer.Manager, config ConnectionConfig) *WebSocketHandler {
	checkOrigin := config.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = AllowOrigins([]string{"*"})
	}
	return &WebSocketHandler{
		authn:   authn,
		handler: handler,
		rooms:   rooms,
		timers:  timers,
		config:  config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     checkOrigin,
		},
	}
}

// HandleConnection verifies the handshake credential and upgrades the request.
// Unauthenticated requests are refused with 401 and never become connections.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	hs := auth.HandshakeFromRequest(r)
	identity, err := h.authn.Connect(r.Context(), hs)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response
		log.Error().
			Err(err).
			Str("identity", identity.ID).
			Msg("failed to upgrade WebSocket connection")
		return
	}

	c := newConnection(ws, identity, hs, h.config)
	h.active.Add(1)

	log.Info().
		Str("connection_id", c.ID).
		Str("identity", identity.ID).
		Str("domain", string(identity.Domain)).
		Msg("client connected")

	go c.writePump()
	go func() {
		defer h.active.Add(-1)
		c.readPump(h.handler)
	}()
}

// ConnectionStats is the body of the stats endpoint
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveRooms      int            `json:"active_rooms"`
	ArmedTimers      int            `json:"armed_timers"`
	Rooms            map[string]int `json:"rooms"`
}

// Stats returns a snapshot of connection, room and timer counts
func (h *WebSocketHandler) Stats() ConnectionStats {
	return ConnectionStats{
		TotalConnections: int(h.active.Load()),
		ActiveRooms:      h.rooms.RoomCount(),
		ArmedTimers:      h.timers.Armed(),
		Rooms:            h.rooms.RoomSizes(),
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.Stats()); err != nil {
		log.Error().Err(err).Msg("failed to write connection stats")
	}
}

// RegisterRoutes registers the realtime endpoint at path and its stats under path/stats
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux, path string) {
	path = "/" + strings.Trim(path, "/")
	mux.HandleFunc(path, h.HandleConnection)
	mux.HandleFunc(path+"/stats", h.HandleConnectionStats)
}
