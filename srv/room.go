package srv

import (
	"sort"
	"strings"
	"sync"
	"time"

	"wizduel/server/protocol"

	"go.uber.org/zap"
)

// Phase is the coarse match state.
type Phase string

const (
	PhaseLobby    Phase = "LOBBY"
	PhasePreround Phase = "PREROUND"
	PhaseRound    Phase = "ROUND"
	PhaseEnd      Phase = "END"
)

func nowMs() int64 { return time.Now().UnixMilli() }

// Player is the authoritative per-connection record. The id changes when a
// player reconnects; everything else survives the swap.
type Player struct {
	ID    int64
	Token string
	Slot  int
	Name  string
	Ready bool

	X, Y       float64
	FacingLeft bool

	HP   float64
	Mana float64

	LastCastAt        map[string]int64
	ManaRegenResumeAt int64

	ShieldUntil   int64
	ShieldCharges int
	BlockUntil    int64
	BlockCharges  int
	StunnedUntil  int64

	lastPoseAt int64

	c *client
}

// Projectile is one live server-simulated shot.
type Projectile struct {
	ID      string
	OwnerID int64
	SpellID string
	X, Y    float64
	VX, VY  float64
	Radius  float64
	Damage  float64

	CreatedAt int64
	ExpiresAt int64
}

// Room owns one two-player duel: the player set, the phase machine and every
// timer attached to it. All mutation happens under mu; cross-room work never
// shares state.
type Room struct {
	code string
	hub  *Hub
	cfg  Config

	spells *SpellCatalog
	log    *zap.SugaredLogger

	mu           sync.Mutex
	phase        Phase
	phaseEndTime int64
	players      map[int64]*Player
	projectiles  map[string]*Projectile

	// epoch increments on every phase transition and teardown. Deferred
	// callbacks capture it and no-op when the world has moved on.
	epoch int64

	phaseTimer *time.Timer
	manaStop   chan struct{}
	projStop   chan struct{}
}

func newRoom(code string, h *Hub) *Room {
	return &Room{
		code:        code,
		hub:         h,
		cfg:         h.cfg,
		spells:      h.spells,
		log:         h.log,
		phase:       PhaseLobby,
		players:     make(map[int64]*Player),
		projectiles: make(map[string]*Projectile),
	}
}

// Code returns the human-shareable room code.
func (r *Room) Code() string { return r.code }

// ---- snapshots & broadcast ----

func (r *Room) snapshotLocked() protocol.RoomState {
	st := protocol.RoomState{
		RoomCode:     r.code,
		Phase:        string(r.phase),
		PhaseEndTime: r.phaseEndTime,
		Players:      make([]protocol.PlayerPublic, 0, len(r.players)),
	}
	for _, p := range r.players {
		st.Players = append(st.Players, protocol.PlayerPublic{
			ID:           p.ID,
			Slot:         p.Slot,
			Name:         p.Name,
			Ready:        p.Ready,
			X:            p.X,
			Y:            p.Y,
			HP:           p.HP,
			Mana:         p.Mana,
			StunnedUntil: p.StunnedUntil,
			ShieldUntil:  p.ShieldUntil,
			BlockUntil:   p.BlockUntil,
			FacingLeft:   p.FacingLeft,
		})
	}
	sort.Slice(st.Players, func(i, j int) bool { return st.Players[i].Slot < st.Players[j].Slot })
	return st
}

func (r *Room) broadcastLocked(typ string, v interface{}) {
	for _, p := range r.players {
		sendJSON(p.c, typ, v)
	}
}

func (r *Room) broadcastStateLocked() {
	r.broadcastLocked("roomState", r.snapshotLocked())
}

// ---- timers & transitions ----

func (r *Room) clearTimersLocked() {
	if r.phaseTimer != nil {
		r.phaseTimer.Stop()
		r.phaseTimer = nil
	}
	if r.manaStop != nil {
		close(r.manaStop)
		r.manaStop = nil
	}
	if r.projStop != nil {
		close(r.projStop)
		r.projStop = nil
	}
}

// setPhaseLocked cancels stale timers, moves the machine and announces the
// transition with the server clock so clients can derive their offset.
func (r *Room) setPhaseLocked(phase Phase, duration time.Duration) {
	r.clearTimersLocked()
	r.epoch++
	r.phase = phase
	t := nowMs()
	var durMs int64
	if duration > 0 {
		durMs = duration.Milliseconds()
		r.phaseEndTime = t + durMs
	} else {
		r.phaseEndTime = 0
	}
	r.broadcastLocked("phase", protocol.PhaseChanged{
		Phase:      string(phase),
		DurationMs: durMs,
		ServerTime: t,
	})
	r.broadcastStateLocked()
}

func (r *Room) startCountdownLocked() {
	r.setPhaseLocked(PhasePreround, r.cfg.Preround)
	r.startManaLocked()
	epoch := r.epoch
	r.phaseTimer = time.AfterFunc(r.cfg.Preround, func() { r.enterRound(epoch) })
}

func (r *Room) enterRound(epoch int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.epoch != epoch || r.phase != PhasePreround {
		return
	}
	r.setPhaseLocked(PhaseRound, 0)
	r.startManaLocked()
	r.startProjectilesLocked()
}

func (r *Room) maybeStartLocked() {
	if r.phase != PhaseLobby || len(r.players) != 2 {
		return
	}
	for _, p := range r.players {
		if !p.Ready {
			return
		}
	}
	r.log.Infow("match starting", "room", r.code)
	r.startCountdownLocked()
}

// toLobbyLocked forces the room back to LOBBY: timers dead, projectiles
// cleared, everyone unready.
func (r *Room) toLobbyLocked() {
	clear(r.projectiles)
	for _, p := range r.players {
		p.Ready = false
	}
	r.setPhaseLocked(PhaseLobby, 0)
}

func (r *Room) endMatchLocked(winnerID int64) {
	clear(r.projectiles)
	r.setPhaseLocked(PhaseEnd, 0)
	r.broadcastLocked("matchEnd", protocol.MatchEnded{WinnerID: winnerID})
	r.log.Infow("match ended", "room", r.code, "winner", winnerID)
}

// ---- membership ----

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Wizard"
	}
	rs := []rune(name)
	if len(rs) > 16 {
		rs = rs[:16]
	}
	return string(rs)
}

func (r *Room) joinLocked(c *client, name string) (*Player, error) {
	if len(r.players) >= 2 {
		return nil, ErrRoomFull
	}
	slot := 0
	for _, p := range r.players {
		if p.Slot == 0 {
			slot = 1
		}
	}
	x, y := r.cfg.spawnFor(slot)
	p := &Player{
		ID:                c.id,
		Token:             r.hub.tokens.Issue(r.code, slot),
		Slot:              slot,
		Name:              sanitizeName(name),
		X:                 x,
		Y:                 y,
		FacingLeft:        slot == 1,
		HP:                r.cfg.MaxHP,
		Mana:              r.cfg.MaxMana,
		LastCastAt:        make(map[string]int64),
		ManaRegenResumeAt: nowMs(),
		c:                 c,
	}
	r.players[c.id] = p
	c.setRoom(r)
	return p, nil
}

// reconnectLocked re-keys an existing player onto a fresh connection. Game
// state is untouched; only the connection identity changes.
func (r *Room) reconnectLocked(c *client, token, name string) (*Player, error) {
	if err := r.hub.tokens.Verify(token, r.code); err != nil {
		return nil, ErrInvalidToken
	}
	var found *Player
	for _, p := range r.players {
		if p.Token == token {
			found = p
			break
		}
	}
	if found == nil {
		return nil, ErrInvalidToken
	}
	delete(r.players, found.ID)
	found.ID = c.id
	if strings.TrimSpace(name) != "" {
		found.Name = sanitizeName(name)
	}
	if found.c != nil && found.c != c {
		found.c.setRoom(nil)
	}
	found.c = c
	r.players[c.id] = found
	c.setRoom(r)
	return found, nil
}

// removePlayer handles a disconnect. Whatever phase the match was in, the
// remaining player drops back to the lobby. Reports whether the room emptied.
func (r *Room) removePlayer(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return len(r.players) == 0
	}
	p.c = nil
	delete(r.players, id)
	r.toLobbyLocked()
	return len(r.players) == 0
}

// teardown kills timers so no callback outlives the room.
func (r *Room) teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.epoch++
	r.clearTimersLocked()
	clear(r.projectiles)
}

// ---- player reset (rematch) ----

func (r *Room) resetPlayersLocked() {
	t := nowMs()
	for _, p := range r.players {
		p.HP = r.cfg.MaxHP
		p.Mana = r.cfg.MaxMana
		p.Ready = true
		p.LastCastAt = make(map[string]int64)
		p.ManaRegenResumeAt = t
		p.ShieldUntil, p.ShieldCharges = 0, 0
		p.BlockUntil, p.BlockCharges = 0, 0
		p.StunnedUntil = 0
		p.X, p.Y = r.cfg.spawnFor(p.Slot)
		p.FacingLeft = p.Slot == 1
		p.lastPoseAt = 0
	}
	clear(r.projectiles)
}

// ---- intents ----

func (r *Room) handleReady(id int64, ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return
	}
	p.Ready = ready
	r.broadcastStateLocked()
	r.maybeStartLocked()
}

func (r *Room) handleRematch(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseEnd {
		return
	}
	if _, ok := r.players[id]; !ok {
		return
	}
	r.log.Infow("rematch", "room", r.code)
	r.resetPlayersLocked()
	r.startCountdownLocked()
}

func (r *Room) handleMove(id int64, m protocol.Move) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == PhaseEnd {
		return
	}
	p, ok := r.players[id]
	if !ok {
		return
	}
	t := nowMs()
	if p.StunnedUntil > t {
		return
	}
	p.X = r.cfg.clampX(m.X)
	p.Y = r.cfg.clampY(m.Y)
	if m.FacingLeft != nil {
		p.FacingLeft = *m.FacingLeft
	}
	// Lightweight pose relay so the opponent sees movement between snapshots.
	if t-p.lastPoseAt < r.cfg.PoseBroadcast.Milliseconds() {
		return
	}
	p.lastPoseAt = t
	pose := protocol.Pose{ID: p.ID, X: p.X, Y: p.Y, FacingLeft: p.FacingLeft, ServerTime: t}
	for _, other := range r.players {
		if other.ID != p.ID {
			sendJSON(other.c, "pose", pose)
		}
	}
}

func (r *Room) handleSync(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return
	}
	sendJSON(p.c, "roomState", r.snapshotLocked())
}

// opponentLocked returns the single other player, if present.
func (r *Room) opponentLocked(id int64) *Player {
	for _, p := range r.players {
		if p.ID != id {
			return p
		}
	}
	return nil
}
