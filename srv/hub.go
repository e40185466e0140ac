package srv

import (
	"encoding/json"
	"math/rand"
	"strings"
	"sync"

	"wizduel/server/protocol"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Readability-filtered alphabet: no 0/O, 1/I ambiguity.
const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const roomCodeLen = 5

// Hub is the session registry: it owns the room map and routes every inbound
// intent to the room the connection belongs to. It is a plain dependency, not
// a process-wide singleton, so tests can run registries side by side.
type Hub struct {
	cfg     Config
	spells  *SpellCatalog
	log     *zap.SugaredLogger
	metrics *Metrics
	tokens  *tokenIssuer

	mu      sync.Mutex
	rooms   map[string]*Room
	clients map[*client]struct{}
}

func NewHub(cfg Config, spells *SpellCatalog, log *zap.SugaredLogger) *Hub {
	return &Hub{
		cfg:     cfg,
		spells:  spells,
		log:     log,
		metrics: &Metrics{},
		tokens:  newTokenIssuer(),
		rooms:   make(map[string]*Room),
		clients: make(map[*client]struct{}),
	}
}

// MetricsSnapshot exposes counters for the /metrics endpoint.
func (h *Hub) MetricsSnapshot() map[string]any {
	h.mu.Lock()
	live := len(h.rooms)
	conns := len(h.clients)
	h.mu.Unlock()
	snap := h.metrics.Snapshot()
	snap["rooms_live"] = live
	snap["connections"] = conns
	return snap
}

func makeRoomCode() string {
	b := make([]byte, roomCodeLen)
	for i := range b {
		b[i] = roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]
	}
	return string(b)
}

func (h *Hub) newRoomLocked() *Room {
	code := makeRoomCode()
	for h.rooms[code] != nil {
		code = makeRoomCode()
	}
	r := newRoom(code, h)
	h.rooms[code] = r
	h.metrics.IncRoomCreated()
	return r
}

func (h *Hub) getRoom(code string) *Room {
	code = strings.ToUpper(strings.TrimSpace(code))
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rooms[code]
}

func (h *Hub) dropRoom(r *Room) {
	r.teardown()
	h.mu.Lock()
	if h.rooms[r.code] == r {
		delete(h.rooms, r.code)
		h.metrics.IncRoomDestroyed()
	}
	h.mu.Unlock()
	h.log.Infow("room destroyed", "room", r.code)
}

// HandleWS takes ownership of an upgraded connection.
func (h *Hub) HandleWS(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, 64), id: protocol.NewID()}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writer()
	c.reader(h)
}

func (c *client) reader(h *Hub) {
	defer func() {
		c.conn.Close()
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		// Detach from the room first; once no room references the client,
		// closing send cannot race a broadcast.
		h.disconnect(c)
		close(c.send)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env protocol.MsgEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			sendJSON(c, "error", protocol.ErrorMsg{Message: "bad json"})
			continue
		}
		h.dispatch(c, env)
	}
}

func (h *Hub) dispatch(c *client, env protocol.MsgEnvelope) {
	switch env.Type {
	case "createRoom":
		var msg protocol.CreateRoom
		_ = json.Unmarshal(env.Data, &msg)
		h.createRoom(c, msg.Name)

	case "joinRoom":
		var msg protocol.JoinRoom
		_ = json.Unmarshal(env.Data, &msg)
		h.joinRoom(c, msg.RoomCode, msg.Name)

	case "reconnect":
		var msg protocol.Reconnect
		_ = json.Unmarshal(env.Data, &msg)
		h.reconnect(c, msg.RoomCode, msg.Token, msg.Name)

	case "setReady":
		var msg protocol.SetReady
		_ = json.Unmarshal(env.Data, &msg)
		if r := c.getRoom(); r != nil {
			r.handleReady(c.id, msg.Ready)
		}

	case "move":
		var msg protocol.Move
		_ = json.Unmarshal(env.Data, &msg)
		if r := c.getRoom(); r != nil {
			r.handleMove(c.id, msg)
		}

	case "castSpell":
		var msg protocol.CastSpell
		_ = json.Unmarshal(env.Data, &msg)
		if r := c.getRoom(); r != nil {
			r.handleCast(c.id, msg)
		}

	case "rematch":
		if r := c.getRoom(); r != nil {
			r.handleRematch(c.id)
		}

	case "sync":
		if r := c.getRoom(); r != nil {
			r.handleSync(c.id)
		}

	default:
		sendJSON(c, "error", protocol.ErrorMsg{Message: "unknown message type: " + env.Type})
	}
}

// welcome sends the join handshake plus the initial mana reading.
func (h *Hub) welcome(c *client, r *Room, p *Player) {
	sendJSON(c, "joined", protocol.Joined{
		RoomCode:       r.code,
		PlayerID:       p.ID,
		ReconnectToken: p.Token,
	})
	sendJSON(c, "manaUpdate", protocol.ManaUpdate{
		Mana:       p.Mana,
		MaxMana:    h.cfg.MaxMana,
		ServerTime: nowMs(),
	})
}

func (h *Hub) createRoom(c *client, name string) {
	h.mu.Lock()
	r := h.newRoomLocked()
	h.mu.Unlock()

	r.mu.Lock()
	p, err := r.joinLocked(c, name)
	if err != nil {
		r.mu.Unlock()
		sendJSON(c, "roomError", protocol.RoomError{Reason: err.Error()})
		return
	}
	h.welcome(c, r, p)
	r.broadcastStateLocked()
	r.mu.Unlock()
	h.log.Infow("room created", "room", r.code, "player", p.Name)
}

func (h *Hub) joinRoom(c *client, code, name string) {
	r := h.getRoom(code)
	if r == nil {
		sendJSON(c, "roomError", protocol.RoomError{Reason: ErrRoomNotFound.Error()})
		return
	}
	r.mu.Lock()
	p, err := r.joinLocked(c, name)
	if err != nil {
		r.mu.Unlock()
		sendJSON(c, "roomError", protocol.RoomError{Reason: err.Error()})
		return
	}
	h.welcome(c, r, p)
	r.broadcastStateLocked()
	r.mu.Unlock()
	h.log.Infow("player joined", "room", r.code, "player", p.Name, "slot", p.Slot)
}

func (h *Hub) reconnect(c *client, code, token, name string) {
	r := h.getRoom(code)
	if r == nil {
		sendJSON(c, "roomError", protocol.RoomError{Reason: ErrRoomNotFound.Error()})
		return
	}
	r.mu.Lock()
	p, err := r.reconnectLocked(c, strings.TrimSpace(token), name)
	if err != nil {
		r.mu.Unlock()
		sendJSON(c, "roomError", protocol.RoomError{Reason: err.Error()})
		return
	}
	h.welcome(c, r, p)
	r.broadcastStateLocked()
	r.mu.Unlock()
	h.log.Infow("player reconnected", "room", r.code, "player", p.Name, "slot", p.Slot)
}

// disconnect tears the departing player out of their room. Whatever was in
// flight, the survivors land back in the lobby; empty rooms are destroyed.
func (h *Hub) disconnect(c *client) {
	r := c.getRoom()
	c.setRoom(nil)
	if r == nil {
		return
	}
	if empty := r.removePlayer(c.id); empty {
		h.dropRoom(r)
		return
	}
	h.log.Infow("player left", "room", r.code)
}
