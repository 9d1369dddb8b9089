package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/xelth-com/protocolos/internal/media"
)

// Message is the envelope for everything pushed to clients.
type Message struct {
	Type string      `json:"type"`
	Room string      `json:"room,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

// Message types
const (
	TypeUploadProgress = "upload_progress"
	TypeProtocolUpdate = "protocol_update"
	TypeAck            = "ack"
	TypeError          = "error"
)

// ProtocolRoom is the room that follows one protocol.
func ProtocolRoom(id string) string { return "protocol:" + id }

// UnitRoom is the room that follows every protocol of a unit.
func UnitRoom(unit string) string { return "unit:" + unit }

// Hub tracks connected clients and the rooms they follow.
type Hub struct {
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu     sync.RWMutex
	logger *zap.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations until ctx is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mu.Lock()
		for c := range h.clients {
			h.drop(c)
		}
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			close(c.registered)
			h.logger.Debug("websocket client connected", zap.String("client", c.ID))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.logger.Debug("websocket client disconnected", zap.String("client", c.ID))
			}
			h.mu.Unlock()
		}
	}
}

// drop removes c everywhere and closes its queue. Caller holds mu.
func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	close(c.send)
}

func (h *Hub) subscribe(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
}

func (h *Hub) unsubscribe(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Publish sends msg to every client in room and returns how many were
// reached. Clients with a full queue are skipped.
func (h *Hub) Publish(room string, msg Message) int {
	msg.Room = room
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("websocket message not encodable", zap.String("type", msg.Type), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for c := range h.rooms[room] {
		select {
		case c.send <- payload:
			sent++
		default:
			h.logger.Warn("websocket client too slow, message dropped", zap.String("client", c.ID))
		}
	}
	return sent
}

// Subscribers counts the clients following room.
func (h *Hub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ProgressListener streams upload events of one protocol to its room.
func (h *Hub) ProgressListener(protocolID string) media.Listener {
	room := ProtocolRoom(protocolID)
	return media.ListenerFunc(func(e media.Event) {
		h.Publish(room, Message{Type: TypeUploadProgress, Data: e})
	})
}
