package websocket

import (
	"context"
	"sync"

	"campus-chat-be/internal/chat"
	"campus-chat-be/internal/pkg/logger"

	"github.com/samber/lo"
)

// Hub tracks live clients and the per-room broadcast groups.
type Hub struct {
	// Registered clients.
	clients map[*Client]struct{}

	// Room broadcast groups: roomId -> clients.
	groups map[string]map[*Client]struct{}

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed once Run returns.
	done chan struct{}

	// Lock for safe map access
	mu sync.RWMutex

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		groups:     make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"conn_id": client.id})

		case client := <-h.unregister:
			h.remove(client)
			h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"conn_id": client.id})
		}
	}
}

// registerClient hands the client to Run. It reports false once the hub has stopped.
func (h *Hub) registerClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	delete(h.clients, client)
	for roomId, group := range h.groups {
		delete(group, client)
		if len(group) == 0 {
			delete(h.groups, roomId)
		}
	}
	h.mu.Unlock()
	client.close()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := lo.Keys(h.clients)
	h.clients = make(map[*Client]struct{})
	h.groups = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Subscribe(roomId string, conn chat.Conn) {
	client, ok := conn.(*Client)
	if !ok {
		h.logger.Warn("Hub", "Subscribe with foreign connection", map[string]interface{}{"conn_id": conn.ID()})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.groups[roomId]
	if !ok {
		group = make(map[*Client]struct{})
		h.groups[roomId] = group
	}
	group[client] = struct{}{}
}

func (h *Hub) UnsubscribeAll(conn chat.Conn) []string {
	client, ok := conn.(*Client)
	if !ok {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	var rooms []string
	for roomId, group := range h.groups {
		if _, ok := group[client]; !ok {
			continue
		}
		delete(group, client)
		rooms = append(rooms, roomId)
		if len(group) == 0 {
			delete(h.groups, roomId)
		}
	}
	return rooms
}

func (h *Hub) CloseRoom(roomId string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.groups, roomId)
}

func (h *Hub) RoomSize(roomId string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[roomId])
}

// Broadcast encodes the event once and queues it for every client in the
// room. Clients whose buffer is full are dropped.
func (h *Hub) Broadcast(roomId string, kind chat.EventKind, payload interface{}) {
	frame, err := chat.EncodeFrame(kind, payload)
	if err != nil {
		h.logger.Error("Hub", "Failed to encode broadcast", map[string]interface{}{
			"room_id": roomId,
			"event":   kind.String(),
			"error":   err.Error(),
		})
		return
	}

	h.mu.RLock()
	targets := lo.Keys(h.groups[roomId])
	h.mu.RUnlock()

	for _, client := range targets {
		if !client.enqueue(frame) {
			h.logger.Warn("Hub", "Client send buffer full, dropping client", map[string]interface{}{
				"conn_id": client.id,
				"room_id": roomId,
			})
			h.remove(client)
		}
	}
}
