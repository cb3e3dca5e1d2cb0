package api

import (
	"sync"
	"time"

	"github.com/dixieflatline76/Retouch/pkg/editor"
	"github.com/dixieflatline76/Retouch/util/log"
	"github.com/gorilla/websocket"
)

// Message types pushed to WebSocket clients.
const (
	MessageNotification  = "notification"
	MessageEnhanceStatus = "enhance_status"
	MessagePreview       = "preview"
)

// writeTimeout bounds each write to a client. A client that does not read
// within it is dropped.
const writeTimeout = 5 * time.Second

// Hub fans messages out to connected WebSocket clients.
type Hub struct {
	clients      map[*websocket.Conn]bool
	clientsMu    sync.Mutex
	writeTimeout time.Duration
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]bool), writeTimeout: writeTimeout}
}

func (h *Hub) add(conn *websocket.Conn) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	h.clients[conn] = true
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	delete(h.clients, conn)
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	return len(h.clients)
}

// Broadcast writes msg as JSON to every client, dropping clients that fail.
func (h *Hub) Broadcast(msg any) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	for client := range h.clients {
		err := client.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err == nil {
			err = client.WriteJSON(msg)
		}
		if err != nil {
			log.Printf("Failed to broadcast to client: %v", err)
			client.Close()
			delete(h.clients, client)
		}
	}
}

type notificationMessage struct {
	Type string `json:"type"`
	editor.Notification
}

type statusMessage struct {
	Type string `json:"type"`
	editor.Status
}

type previewMessage struct {
	Type  string       `json:"type"`
	URL   string       `json:"url"`
	Stats editor.Stats `json:"stats"`
}

// Notify implements editor.Notifier.
func (h *Hub) Notify(n editor.Notification) {
	h.Broadcast(notificationMessage{Type: MessageNotification, Notification: n})
}

// PublishStatus sends an enhancement status change.
func (h *Hub) PublishStatus(st editor.Status) {
	h.Broadcast(statusMessage{Type: MessageEnhanceStatus, Status: st})
}

// PublishPreview announces a new preview URL.
func (h *Hub) PublishPreview(url string, stats editor.Stats) {
	if url == "" {
		return
	}
	h.Broadcast(previewMessage{Type: MessagePreview, URL: url, Stats: stats})
}
