package server

import (
	"encoding/json"
	"sync"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pfrances/transcendence-back/ponggame"
)

// sendBuffer bounds the per-connection outbound queue. At 60 state
// updates per second this holds about half a second of backlog.
const sendBuffer = 32

// envelope is the wire shape of every outbound event.
type envelope struct {
	Event ponggame.EventName `json:"event"`
	Data  any                `json:"data,omitempty"`
}

// wsConn is one live socket. The connection id guards against a stale
// close detaching a newer socket of the same player. The send channel
// is never closed; teardown is signaled through done so a late enqueue
// can never panic.
type wsConn struct {
	id     uuid.UUID
	player ponggame.PlayerID
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}

	closeOnce sync.Once
}

func newWSConn(player ponggame.PlayerID, ws *websocket.Conn) *wsConn {
	return &wsConn{
		id:     uuid.New(),
		player: player,
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// enqueue hands a frame to the write pump without ever blocking. When
// the buffer is full the oldest pending frame is dropped first; a match
// update superseded by a newer one is worthless anyway.
func (c *wsConn) enqueue(msg []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- msg:
		return
	default:
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *wsConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

// Hub tracks one socket per player and the named rooms they are
// subscribed to, and fans events out to them. It implements the
// engine's gateway contract.
type Hub struct {
	mu    sync.RWMutex
	conns map[ponggame.PlayerID]*wsConn
	rooms map[string]map[ponggame.PlayerID]struct{}

	log slog.Logger
}

func NewHub(log slog.Logger) *Hub {
	if log == nil {
		log = slog.Disabled
	}
	return &Hub{
		conns: make(map[ponggame.PlayerID]*wsConn),
		rooms: make(map[string]map[ponggame.PlayerID]struct{}),
		log:   log,
	}
}

// register installs the socket as the player's current connection. An
// older connection of the same player is closed and replaced.
func (h *Hub) register(c *wsConn) {
	h.mu.Lock()
	old := h.conns[c.player]
	h.conns[c.player] = c
	h.mu.Unlock()
	if old != nil {
		h.log.Debugf("player %d: replacing connection %s with %s", c.player, old.id, c.id)
		old.close()
	}
}

// unregister detaches the socket, but only while it is still the
// player's current one.
func (h *Hub) unregister(c *wsConn) {
	h.mu.Lock()
	if cur := h.conns[c.player]; cur != nil && cur.id == c.id {
		delete(h.conns, c.player)
	}
	h.mu.Unlock()
	c.close()
}

// current reports whether the socket is still the player's active one.
func (h *Hub) current(c *wsConn) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cur := h.conns[c.player]
	return cur != nil && cur.id == c.id
}

func (h *Hub) AddToRoom(room string, player ponggame.PlayerID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[ponggame.PlayerID]struct{})
	}
	h.rooms[room][player] = struct{}{}
}

func (h *Hub) RemoveFromRoom(room string, player ponggame.PlayerID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.rooms[room]
	delete(members, player)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) DeleteRoom(room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, room)
}

// Broadcast marshals the event once and enqueues it on every member's
// socket. Members without a live socket are skipped.
func (h *Hub) Broadcast(room string, event ponggame.EventName, payload any) {
	msg, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		h.log.Errorf("marshal %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	targets := make([]*wsConn, 0, len(h.rooms[room]))
	for player := range h.rooms[room] {
		if c := h.conns[player]; c != nil {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(msg)
	}
}

// SendToPlayer delivers an event to one player's socket directly,
// bypassing room membership.
func (h *Hub) SendToPlayer(player ponggame.PlayerID, event ponggame.EventName, payload any) {
	msg, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		h.log.Errorf("marshal %s event: %v", event, err)
		return
	}
	h.mu.RLock()
	c := h.conns[player]
	h.mu.RUnlock()
	if c != nil {
		c.enqueue(msg)
	}
}

// roomMembers returns a snapshot of the room's member set.
func (h *Hub) roomMembers(room string) []ponggame.PlayerID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := make([]ponggame.PlayerID, 0, len(h.rooms[room]))
	for player := range h.rooms[room] {
		members = append(members, player)
	}
	return members
}
