package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/imposter/internal/model"
	"github.com/mcoot/imposter/internal/protocol"
	"github.com/mcoot/imposter/internal/services/session"
)

// Registry tracks live connections and which room group each belongs to.
// All delivery is a non-blocking enqueue onto the client's send queue;
// a full queue drops the message.
type Registry struct {
	mu      sync.RWMutex
	clients map[model.ConnectionID]*Client
	rooms   map[model.RoomCode]map[model.ConnectionID]struct{}
	logger  *slog.Logger
}

// Ensure Registry implements the coordinator's notifier
var _ session.Notifier = (*Registry)(nil)

// NewRegistry creates an empty Registry
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		clients: make(map[model.ConnectionID]*Client),
		rooms:   make(map[model.RoomCode]map[model.ConnectionID]struct{}),
		logger:  logger.With(slog.String("component", "ws")),
	}
}

func (r *Registry) register(c *Client) {
	r.mu.Lock()
	r.clients[c.id] = c
	total := len(r.clients)
	r.mu.Unlock()

	r.logger.Info("ws client registered",
		slog.String("conn", string(c.id)),
		slog.Int("total_clients", total))
}

// unregister drops the client from every group and closes its send queue
func (r *Registry) unregister(c *Client) {
	r.mu.Lock()
	if _, ok := r.clients[c.id]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.clients, c.id)
	for code, members := range r.rooms {
		delete(members, c.id)
		if len(members) == 0 {
			delete(r.rooms, code)
		}
	}
	close(c.send)
	total := len(r.clients)
	r.mu.Unlock()

	r.logger.Info("ws client unregistered",
		slog.String("conn", string(c.id)),
		slog.Duration("connection_duration", time.Since(c.connectedAt)),
		slog.Int("total_clients", total))
}

// AddToRoom puts a connection in a room's broadcast group
func (r *Registry) AddToRoom(conn model.ConnectionID, code model.RoomCode) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[code]
	if !ok {
		members = make(map[model.ConnectionID]struct{})
		r.rooms[code] = members
	}
	members[conn] = struct{}{}
}

// RemoveFromRoom takes a connection out of a room's broadcast group
func (r *Registry) RemoveFromRoom(conn model.ConnectionID, code model.RoomCode) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[code]
	if !ok {
		return
	}
	delete(members, conn)
	if len(members) == 0 {
		delete(r.rooms, code)
	}
}

// CloseRoom dissolves a room's broadcast group
func (r *Registry) CloseRoom(code model.RoomCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, code)
}

// Broadcast delivers an event to every connection in the room's group
func (r *Registry) Broadcast(code model.RoomCode, event model.Event) {
	data, ok := r.encode(protocol.EventMessage(event))
	if !ok {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	sent, dropped := 0, 0
	for id := range r.rooms[code] {
		c, ok := r.clients[id]
		if !ok {
			continue
		}
		if r.enqueue(c, data) {
			sent++
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		r.logger.Warn("ws broadcast partial failure",
			slog.String("room", string(code)),
			slog.String("type", string(event.Type)),
			slog.Int("sent", sent),
			slog.Int("dropped", dropped))
	}
}

// Send delivers an event to a single connection
func (r *Registry) Send(conn model.ConnectionID, event model.Event) {
	r.SendMessage(conn, protocol.EventMessage(event))
}

// SendMessage delivers any outbound frame to a single connection
func (r *Registry) SendMessage(conn model.ConnectionID, msg protocol.Message) {
	data, ok := r.encode(msg)
	if !ok {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[conn]
	if !ok {
		r.logger.Debug("ws send to unknown connection", slog.String("conn", string(conn)))
		return
	}
	r.enqueue(c, data)
}

// enqueue must be called with r.mu held
func (r *Registry) enqueue(c *Client, data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		r.logger.Warn("ws message dropped - client buffer full", slog.String("conn", string(c.id)))
		return false
	}
}

func (r *Registry) encode(msg protocol.Message) ([]byte, bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("ws message encode failed",
			slog.String("type", msg.Type),
			slog.String("error", err.Error()))
		return nil, false
	}
	return data, true
}

// ClientCount returns the number of live connections
func (r *Registry) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// RoomSize returns the number of connections in a room's group
func (r *Registry) RoomSize(code model.RoomCode) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[code])
}
