package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/temantidur/server/internal/audio"
	"github.com/satriahrh/temantidur/server/internal/auth"
	"github.com/satriahrh/temantidur/server/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. One frame carries one WAV utterance.
	maxMessageSize = 10 << 20

	// Time allowed to answer one utterance. Must be less than pongWait, the
	// read deadline keeps running while a turn is answered.
	turnTimeout = 45 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Callers are authenticated by bearer token before the upgrade
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// VoiceResponder answers one recorded utterance
type VoiceResponder interface {
	HandleVoiceChat(ctx context.Context, upload usecase.AudioUpload) (*usecase.VoiceResponse, error)
}

// Hub maintains the set of active voice chat clients
type Hub struct {
	// Registered clients, keyed by connection ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	// Closed when Run returns
	done chan struct{}

	voice  VoiceResponder
	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(voice VoiceResponder, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		voice:      voice,
		logger:     logger,
	}
}

// Run starts the hub's main loop. It closes every connection when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("Client registered",
				zap.String("connectionID", client.id),
				zap.String("userID", client.userID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("connectionID", client.id))

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				client.conn.Close()
			}
			h.mu.Unlock()
			h.logger.Info("Hub stopped")
			return
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// WriteData is one outbound frame
type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	id     string
	userID string
	logger *zap.Logger
}

// HandleVoiceChat upgrades the request and serves voice turns until the
// peer disconnects. The caller must already be authenticated.
func HandleVoiceChat(hub *Hub, c echo.Context) error {
	userID := ""
	if identity, ok := auth.IdentityFrom(c); ok {
		userID = identity.UserID
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		hub.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	id := uuid.NewString()
	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan WriteData, 16),
		id:     id,
		userID: userID,
		logger: hub.logger.With(zap.String("connectionID", id)),
	}

	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return nil
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump reads frames from the connection. Utterances are answered one
// at a time, in the order they arrive.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			c.processUtterance(message)
			c.conn.SetReadDeadline(time.Now().Add(pongWait))
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.hub.done:
			return
		}
	}
}

// processMessage handles control frames
func (c *Client) processMessage(message []byte) {
	ping, err := ParseControlMessage(message)
	if err != nil {
		c.logger.Warn("Rejected control message", zap.Error(err))
		c.sendJSON(CreateErrorMessage(ErrorCodeInvalidMessage, err.Error()))
		return
	}
	c.sendJSON(CreatePongMessage(ping.MessageID, ping.Data))
}

// processUtterance answers one WAV utterance with a voice_response text
// frame followed by the binary WAV reply
func (c *Client) processUtterance(data []byte) {
	contentType := utteranceContentType(data)
	c.logger.Info("Received utterance", zap.Int("size", len(data)), zap.String("contentType", contentType))

	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	resp, err := c.hub.voice.HandleVoiceChat(ctx, usecase.AudioUpload{
		Data:        data,
		ContentType: contentType,
	})
	if err != nil {
		if inputErr, ok := usecase.AsInputError(err); ok {
			c.sendJSON(CreateErrorMessage(ErrorCodeUnsupportedAudio, inputErr.Message))
			return
		}
		c.logger.Error("Voice turn failed", zap.Error(err))
		c.sendJSON(CreateErrorMessage(ErrorCodeProcessingFailed, "Gagal memproses voice chat"))
		return
	}

	c.sendJSON(CreateVoiceResponseMessage(resp.UserText, resp.AIText, resp.AudioFormat, len(resp.Audio)))
	c.enqueue(WriteData{Type: websocket.BinaryMessage, Payload: resp.Audio})
}

// utteranceContentType labels a binary frame by its header, frames carry
// no declared type of their own
func utteranceContentType(data []byte) string {
	if audio.IsWAV(data) {
		return "audio/wav"
	}
	return "application/octet-stream"
}

func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}
	c.enqueue(WriteData{Type: websocket.TextMessage, Payload: payload})
}

func (c *Client) enqueue(data WriteData) {
	select {
	case c.send <- data:
	case <-c.hub.done:
	}
}
