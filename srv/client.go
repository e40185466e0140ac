package srv

import (
	"encoding/json"
	"sync"

	"wizduel/server/protocol"

	"github.com/gorilla/websocket"
)

// client is one websocket connection. Its id doubles as the player id inside
// whatever room it joins.
type client struct {
	conn *websocket.Conn
	send chan []byte
	id   int64

	// mu guards room: the reader goroutine reads it per message while a
	// reconnect on another goroutine may detach this connection. Lock
	// order is always Room.mu before client.mu, never the reverse.
	mu   sync.Mutex
	room *Room
}

func (c *client) getRoom() *Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *client) setRoom(r *Room) {
	c.mu.Lock()
	c.room = r
	c.mu.Unlock()
}

func (c *client) writer() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// sendJSON enqueues an enveloped message, dropping it if the client's buffer
// is full or the player has no live connection. Broadcast paths never block
// on a slow or absent socket.
func sendJSON(c *client, typ string, v interface{}) {
	if c == nil {
		return
	}
	b, _ := json.Marshal(v)
	env := protocol.MsgEnvelope{Type: typ, Data: b}
	out, _ := json.Marshal(env)
	select {
	case c.send <- out:
	default:
	}
}
