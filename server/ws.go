package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pfrances/transcendence-back/ponggame"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxInboundSize = 512
)

// eventError is the envelope sent back on a rejected inbound event.
const eventError ponggame.EventName = "error"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin handling is the reverse proxy's problem.
	CheckOrigin: func(*http.Request) bool { return true },
}

// inboundEvent is the wire shape of client-to-server messages.
type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type playerMovePayload struct {
	GameID    int64              `json:"gameId"`
	Direction ponggame.Direction `json:"direction"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// handleWS upgrades the socket, installs it as the player's current
// connection and pumps frames until either side goes away. Identity
// comes prevalidated from the proxy, as a query parameter here since
// browsers cannot set headers on websocket dials.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid user id", http.StatusBadRequest)
		return
	}
	player := ponggame.PlayerID(userID)

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade for player %d: %v", player, err)
		return
	}

	c := newWSConn(player, ws)
	s.hub.register(c)
	s.coord.OnPlayerConnect(player)
	s.log.Debugf("player %d connected (%s)", player, c.id)

	go c.writePump()
	go s.readPump(c)
}

func (s *Server) readPump(c *wsConn) {
	defer func() {
		// A replaced socket must not fire the disconnect hook: the
		// player is still online through the newer connection.
		if s.hub.current(c) {
			s.hub.unregister(c)
			s.coord.OnPlayerDisconnect(c.player)
			s.log.Debugf("player %d disconnected (%s)", c.player, c.id)
		} else {
			c.close()
		}
	}()

	c.ws.SetReadLimit(maxInboundSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debugf("player %d read: %v", c.player, err)
			}
			return
		}
		s.dispatch(c, msg)
	}
}

// dispatch routes one inbound frame. Rejections go back to the sender
// on the error event; they never tear the connection down.
func (s *Server) dispatch(c *wsConn, msg []byte) {
	var ev inboundEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		s.hub.SendToPlayer(c.player, eventError, errorPayload{Message: "malformed event"})
		return
	}
	switch ev.Event {
	case "playerMove":
		var move playerMovePayload
		if err := json.Unmarshal(ev.Data, &move); err != nil {
			s.hub.SendToPlayer(c.player, eventError, errorPayload{Message: "malformed playerMove payload"})
			return
		}
		if err := s.coord.MovePaddle(c.player, move.GameID, move.Direction); err != nil {
			s.hub.SendToPlayer(c.player, eventError, errorPayload{Message: err.Error()})
		}
	default:
		s.hub.SendToPlayer(c.player, eventError, errorPayload{Message: "unknown event " + ev.Event})
	}
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
