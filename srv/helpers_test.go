package srv

import (
	"encoding/json"
	"testing"
	"time"

	"wizduel/server/protocol"

	"go.uber.org/zap"
)

const testCatalog = `{
  "bolt":   {"kind": "projectile", "damage": 14, "manaCost": 12, "cooldown": 0.8,
             "behavior": {"speed": 560, "lifetimeMs": 900, "radius": 10}},
  "tri":    {"kind": "projectile", "damage": 7, "manaCost": 22, "cooldown": 2.5,
             "hits": 3, "tickIntervalMs": 110,
             "behavior": {"speed": 640, "lifetimeMs": 700, "radius": 8}},
  "lance":  {"kind": "direct", "damage": 20, "manaCost": 24,
             "behavior": {"range": 500, "coneDeg": 30}},
  "lash":   {"kind": "direct", "damage": 6, "manaCost": 28, "ticks": 4, "tickIntervalMs": 60,
             "behavior": {"range": 420, "coneDeg": 26}},
  "grip":   {"kind": "status", "damage": 4, "manaCost": 20, "stunMs": 900,
             "ticks": 2, "tickIntervalMs": 60,
             "behavior": {"range": 460, "coneDeg": 24}},
  "mend":   {"kind": "heal", "manaCost": 32, "heal": 24},
  "veil":   {"kind": "shield", "manaCost": 25, "durationMs": 3000, "blocks": 2},
  "guard":  {"kind": "block", "manaCost": 10, "blockMs": 2500, "blocks": 1},
  "costly": {"kind": "direct", "damage": 20, "manaCost": 40,
             "behavior": {"range": 500, "coneDeg": 30}}
}`

func testConfig() Config {
	return Config{
		WorldW: 1280, WorldH: 720,
		PadX: 48, PadY: 88,
		MaxHP: 100, MaxMana: 100,
		ManaRegenPerSec: 6,
		ManaTick:        100 * time.Millisecond,
		ManaRegenDelay:  450 * time.Millisecond,
		ProjTick:        50 * time.Millisecond,
		TargetRadius:    22,
		Preround:        8 * time.Second,
		PoseBroadcast:   50 * time.Millisecond,
	}
}

func testHub(t *testing.T) *Hub {
	t.Helper()
	spells, err := ParseSpellCatalog([]byte(testCatalog))
	if err != nil {
		t.Fatalf("parse test catalog: %v", err)
	}
	return NewHub(testConfig(), spells, zap.NewNop().Sugar())
}

// newTestClient builds a client with no socket; sendJSON drops into the
// buffered channel where tests can inspect traffic.
func newTestClient() *client {
	return &client{send: make(chan []byte, 256), id: protocol.NewID()}
}

// twoPlayerRoom creates a room with Alice hosting and Bob joined.
func twoPlayerRoom(t *testing.T, h *Hub) (*Room, *client, *client) {
	t.Helper()
	a := newTestClient()
	h.createRoom(a, "Alice")
	r := a.getRoom()
	if r == nil {
		t.Fatal("createRoom did not attach a room")
	}
	b := newTestClient()
	h.joinRoom(b, r.code, "Bob")
	if b.getRoom() != r {
		t.Fatal("joinRoom did not attach the room")
	}
	return r, a, b
}

func forceRound(r *Room) {
	r.mu.Lock()
	r.setPhaseLocked(PhaseRound, 0)
	r.mu.Unlock()
}

func player(t *testing.T, r *Room, c *client) *Player {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[c.id]
	if !ok {
		t.Fatalf("no player for client %d", c.id)
	}
	return p
}

// drain empties a client's outbox and returns the decoded envelopes.
func drain(c *client) []protocol.MsgEnvelope {
	var out []protocol.MsgEnvelope
	for {
		select {
		case b := <-c.send:
			var env protocol.MsgEnvelope
			_ = json.Unmarshal(b, &env)
			out = append(out, env)
		default:
			return out
		}
	}
}

func countType(envs []protocol.MsgEnvelope, typ string) int {
	n := 0
	for _, e := range envs {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func lastOfType(t *testing.T, envs []protocol.MsgEnvelope, typ string, v interface{}) bool {
	t.Helper()
	found := false
	for _, e := range envs {
		if e.Type == typ {
			if err := json.Unmarshal(e.Data, v); err != nil {
				t.Fatalf("decode %s: %v", typ, err)
			}
			found = true
		}
	}
	return found
}
