package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SimplyPrint/pcsc"
	"github.com/SimplyPrint/pcsc/internal/logging"
	"github.com/SimplyPrint/pcsc/internal/monitor"
	"github.com/SimplyPrint/pcsc/internal/version"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local use
	},
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string          `json:"type"`              // Message type
	ID      string          `json:"id,omitempty"`      // Request ID for request/response matching
	Payload json.RawMessage `json:"payload,omitempty"` // Message payload
	Error   string          `json:"error,omitempty"`   // Error message if any
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	conn    *websocket.Conn
	send    chan []byte
	hub     *WSHub
	session Session
}

// WSHub manages all WebSocket connections
type WSHub struct {
	clients    map[*WSClient]bool
	broadcast  chan []byte
	register   chan *WSClient
	unregister chan *WSClient
	mu         sync.RWMutex
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
}

// Run starts the hub's main loop
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastEvent pushes a monitor event to every connected client.
func (h *WSHub) BroadcastEvent(ev monitor.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	message, err := json.Marshal(WSMessage{Type: "event", Payload: payload})
	if err != nil {
		return
	}
	h.broadcast <- message
}

// Handler returns the WebSocket endpoint, serving requests against
// the given session.
func (h *WSHub) Handler(session Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Error(logging.CatWebSocket, "WebSocket upgrade failed", map[string]any{
				"error":      err.Error(),
				"remoteAddr": r.RemoteAddr,
			})
			return
		}

		logging.Info(logging.CatWebSocket, "Client connected", map[string]any{
			"remoteAddr": r.RemoteAddr,
		})

		client := &WSClient{
			conn:    conn,
			send:    make(chan []byte, 256),
			hub:     h,
			session: session,
		}

		h.register <- client

		go client.writePump()
		go client.readPump()
	}
}

func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512 * 1024) // 512KB max message size
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn(logging.CatWebSocket, "WebSocket unexpected close", map[string]any{
					"error": err.Error(),
				})
			} else {
				logging.Debug(logging.CatWebSocket, "Client disconnected", nil)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("", "invalid message format")
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) handleMessage(msg WSMessage) {
	logging.Debug(logging.CatWebSocket, "Received message", map[string]any{
		"type": msg.Type,
		"id":   msg.ID,
	})

	switch msg.Type {
	case "list_readers":
		c.handleListReaders(msg.ID)
	case "reader_status":
		c.handleReaderStatus(msg.ID, msg.Payload)
	case "transmit":
		c.handleTransmit(msg.ID, msg.Payload)
	case "control":
		c.handleControl(msg.ID, msg.Payload)
	case "get_attribute":
		c.handleGetAttribute(msg.ID, msg.Payload)
	case "logs":
		c.handleLogs(msg.ID, msg.Payload)
	case "health":
		c.handleHealth(msg.ID)
	case "version":
		c.handleVersion(msg.ID, msg.Payload)
	default:
		logging.Warn(logging.CatWebSocket, "Unknown message type", map[string]any{
			"type": msg.Type,
		})
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

func (c *WSClient) sendResponse(id string, msgType string, payload interface{}) {
	payloadBytes, _ := json.Marshal(payload)
	response := WSMessage{
		Type:    msgType,
		ID:      id,
		Payload: payloadBytes,
	}
	responseBytes, _ := json.Marshal(response)
	c.send <- responseBytes
}

func (c *WSClient) sendError(id string, errMsg string) {
	response := WSMessage{
		Type:  "error",
		ID:    id,
		Error: errMsg,
	}
	responseBytes, _ := json.Marshal(response)
	c.send <- responseBytes
}

func (c *WSClient) handleListReaders(id string) {
	readers, err := c.session.ListReaders()
	if err != nil {
		c.sendError(id, err.Error())
		return
	}
	if readers == nil {
		readers = []string{}
	}
	c.sendResponse(id, "readers", readers)
}

func (c *WSClient) handleReaderStatus(id string, payload json.RawMessage) {
	var req struct {
		Reader string `json:"reader"`
	}
	if err := json.Unmarshal(payload, &req); err != nil || req.Reader == "" {
		c.sendError(id, "invalid payload")
		return
	}

	status, err := c.session.ReaderStatus(req.Reader)
	if err != nil {
		c.sendError(id, err.Error())
		return
	}
	c.sendResponse(id, "reader_status", status)
}

func (c *WSClient) handleTransmit(id string, payload json.RawMessage) {
	var req struct {
		Reader string `json:"reader"`
		Apdu   string `json:"apdu"` // hex encoded
	}
	if err := json.Unmarshal(payload, &req); err != nil || req.Reader == "" {
		c.sendError(id, "invalid payload")
		return
	}

	apdu, err := hex.DecodeString(req.Apdu)
	if err != nil || len(apdu) == 0 {
		c.sendError(id, "invalid apdu hex")
		return
	}

	resp, err := c.session.Transmit(req.Reader, apdu)
	if err != nil {
		c.sendError(id, err.Error())
		return
	}
	c.sendResponse(id, "response", map[string]string{
		"reader":   req.Reader,
		"response": hex.EncodeToString(resp),
	})
}

func (c *WSClient) handleControl(id string, payload json.RawMessage) {
	var req struct {
		Reader  string `json:"reader"`
		Code    uint32 `json:"code"`
		Payload string `json:"payload"` // hex encoded
	}
	if err := json.Unmarshal(payload, &req); err != nil || req.Reader == "" {
		c.sendError(id, "invalid payload")
		return
	}

	data, err := hex.DecodeString(req.Payload)
	if err != nil {
		c.sendError(id, "invalid payload hex")
		return
	}

	resp, err := c.session.Control(req.Reader, pcsc.CtlCode(req.Code), data)
	if err != nil {
		c.sendError(id, err.Error())
		return
	}
	c.sendResponse(id, "response", map[string]string{
		"reader":   req.Reader,
		"response": hex.EncodeToString(resp),
	})
}

func (c *WSClient) handleGetAttribute(id string, payload json.RawMessage) {
	var req struct {
		Reader    string `json:"reader"`
		Attribute uint32 `json:"attribute"`
	}
	if err := json.Unmarshal(payload, &req); err != nil || req.Reader == "" {
		c.sendError(id, "invalid payload")
		return
	}

	value, err := c.session.ReaderAttribute(req.Reader, pcsc.Attribute(req.Attribute))
	if err != nil {
		c.sendError(id, err.Error())
		return
	}
	c.sendResponse(id, "attribute", map[string]string{
		"reader": req.Reader,
		"value":  hex.EncodeToString(value),
	})
}

func (c *WSClient) handleLogs(id string, payload json.RawMessage) {
	var req struct {
		Limit    int    `json:"limit"`
		Category string `json:"category"`
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			c.sendError(id, "invalid payload")
			return
		}
	}

	filter := logging.Filter{Limit: req.Limit}
	if req.Category != "" {
		cat := logging.Category(req.Category)
		filter.Category = &cat
	}
	c.sendResponse(id, "logs", logging.Get().Entries(filter))
}

func (c *WSClient) handleVersion(id string, payload json.RawMessage) {
	var req struct {
		MinVersion string `json:"min_version"`
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			c.sendError(id, "invalid payload")
			return
		}
	}

	resp := struct {
		version.Info
		Compatible *bool `json:"compatible,omitempty"`
	}{Info: version.Build()}

	// A dev build never satisfies a release floor, so only enforce the
	// client's minimum against release builds.
	if req.MinVersion != "" {
		current := version.Parse(version.Current)
		ok := current.IsDev() || current.AtLeast(version.Parse(req.MinVersion))
		resp.Compatible = &ok
	}
	c.sendResponse(id, "version", resp)
}

func (c *WSClient) handleHealth(id string) {
	_, err := c.session.ListReaders()
	status := "ok"
	if err != nil {
		status = "degraded"
	}
	c.sendResponse(id, "health", map[string]string{"status": status})
}
