package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizlive/go/internal/auth"
)

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	// MessageTimeout bounds the work done for one inbound message
	MessageTimeout time.Duration
	CheckOrigin    func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		MessageTimeout:  10 * time.Second,
		CheckOrigin:     AllowOrigins([]string{"*"}),
	}
}

// MessageHandler processes frames read from a connection
type MessageHandler interface {
	HandleMessage(ctx context.Context, c *Connection, raw []byte)
	HandleDisconnect(c *Connection)
}

// Connection is one authenticated realtime client.
// The registry holds a non-owning reference; the read pump owns its lifetime.
type Connection struct {
	ID          string
	Identity    auth.Identity
	ConnectedAt time.Time

	handshake auth.Handshake
	ws        *websocket.Conn
	config    ConnectionConfig

	// send is never closed; done signals shutdown to the write pump
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	room string
}

func newConnection(ws *websocket.Conn, identity auth.Identity, hs auth.Handshake, config ConnectionConfig) *Connection {
	size := config.SendBufferSize
	if size <= 0 {
		size = 256
	}
	if config.MessageTimeout <= 0 {
		config.MessageTimeout = 10 * time.Second
	}
	return &Connection{
		ID:          uuid.New().String(),
		Identity:    identity,
		ConnectedAt: time.Now(),
		handshake:   hs,
		ws:          ws,
		config:      config,
		send:        make(chan []byte, size),
		done:        make(chan struct{}),
	}
}

// Room returns the session code the connection has joined, or ""
func (c *Connection) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// Emit sends an event to this connection only
func (c *Connection) Emit(event string, data any) error {
	msg, err := encodeEnvelope(event, data)
	if err != nil {
		return err
	}
	if !c.enqueue(msg) {
		return fmt.Errorf("connection %s is closed", c.ID)
	}
	return nil
}

// enqueue never blocks. A full send queue marks the client as too slow and closes it.
func (c *Connection) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		log.Warn().
			Str("connection_id", c.ID).
			Str("identity", c.Identity.ID).
			Msg("connection send buffer full, closing connection")
		c.Close()
		return false
	}
}

// Close signals the write pump to send a close frame and drop the socket.
// It is safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Closed reports whether Close has been called
func (c *Connection) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}

		case <-c.done:
			c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}

// readPump reads frames and hands them to the handler one at a time
func (c *Connection) readPump(handler MessageHandler) {
	defer func() {
		handler.HandleDisconnect(c)
		c.Close()
	}()

	c.ws.SetReadLimit(c.config.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.config.MessageTimeout)
		handler.HandleMessage(ctx, c, message)
		cancel()

		c.ws.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}
}
