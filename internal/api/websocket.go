package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"nhooyr.io/websocket"

	"github.com/feanor77ist/Basketball-AI-BE/internal/auth"
	"github.com/feanor77ist/Basketball-AI-BE/internal/models"
)

// ──────────────────── WebSocket Hub ────────────────────

// WSHub fans pipeline events out to connected clients. It keeps the last
// status event per in-flight video so a client connecting mid-pipeline sees
// current state immediately.
type WSHub struct {
	mu          sync.RWMutex
	clients     map[*WSClient]bool
	activeVideo map[string]json.RawMessage // video_id → last video:status payload
	videoMu     sync.RWMutex
}

type WSClient struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

type WSMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func NewWSHub() *WSHub {
	return &WSHub{
		clients:     make(map[*WSClient]bool),
		activeVideo: make(map[string]json.RawMessage),
	}
}

func (h *WSHub) Broadcast(event string, data interface{}) {
	msg, err := json.Marshal(WSMessage{Event: event, Data: data})
	if err != nil {
		return
	}

	if event == "video:status" {
		h.trackVideo(data, msg)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
		}
	}
}

// trackVideo keeps a snapshot per video still moving through the pipeline.
func (h *WSHub) trackVideo(data interface{}, raw []byte) {
	m, ok := data.(map[string]interface{})
	if !ok {
		return
	}
	videoID, _ := m["video_id"].(string)
	if videoID == "" {
		return
	}
	status, _ := m["status"].(models.VideoStatus)

	h.videoMu.Lock()
	defer h.videoMu.Unlock()
	if status.Terminal() {
		delete(h.activeVideo, videoID)
	} else {
		h.activeVideo[videoID] = json.RawMessage(raw)
	}
}

// sendActiveVideos replays in-flight pipeline state to a new client.
func (h *WSHub) sendActiveVideos(client *WSClient) {
	h.videoMu.RLock()
	defer h.videoMu.RUnlock()
	for _, msg := range h.activeVideo {
		select {
		case client.send <- msg:
		default:
		}
	}
}

func (h *WSHub) addClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *WSHub) removeClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ──────────────────── WebSocket Handler ────────────────────

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var userID string
	var exp int64
	err := s.db.QueryRow(
		"SELECT user_id, expires_at FROM sessions WHERE token=$1", token,
	).Scan(&userID, &exp)
	if err != nil || auth.IsTokenExpired(exp) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("WebSocket accept error: %v", err)
		return
	}

	client := &WSClient{
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 64),
	}

	s.wsHub.addClient(client)
	s.wsHub.sendActiveVideos(client)
	log.Printf("WebSocket client connected: %s", userID)

	ctx := r.Context()

	// Writer goroutine
	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for msg := range client.send {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	// Reader loop keeps the connection alive and handles pings.
	for {
		_, _, err := conn.Read(ctx)
		if err != nil {
			break
		}
	}

	s.wsHub.removeClient(client)
	log.Printf("WebSocket client disconnected: %s", userID)
}
