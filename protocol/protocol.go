package protocol

import "encoding/json"

// Envelope for every websocket message in both directions.
type MsgEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Vec2 is a 2D position or direction in arena units.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ================= C -> S =================

type CreateRoom struct {
	Name string `json:"name"`
}

type JoinRoom struct {
	RoomCode string `json:"roomCode"`
	Name     string `json:"name"`
}

type Reconnect struct {
	RoomCode string `json:"roomCode"`
	Token    string `json:"token"`
	Name     string `json:"name,omitempty"`
}

type SetReady struct {
	Ready bool `json:"ready"`
}

type Move struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	FacingLeft *bool   `json:"facingLeft,omitempty"`
}

type CastSpell struct {
	SpellID string `json:"spellId"`
	AimDir  Vec2   `json:"aimDir"`
}

// rematch and sync carry no payload; they are bare envelopes on the wire.

// ================= S -> C =================

type Joined struct {
	RoomCode       string `json:"roomCode"`
	PlayerID       int64  `json:"playerId"`
	ReconnectToken string `json:"reconnectToken"`
}

type RoomError struct {
	Reason string `json:"reason"`
}

// PlayerPublic is the snapshot form of one player; reconnect tokens are
// never included here, only in Joined for the owning connection.
type PlayerPublic struct {
	ID           int64   `json:"id"`
	Slot         int     `json:"slot"`
	Name         string  `json:"name"`
	Ready        bool    `json:"ready"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	HP           float64 `json:"hp"`
	Mana         float64 `json:"mana"`
	StunnedUntil int64   `json:"stunnedUntil"`
	ShieldUntil  int64   `json:"shieldUntil"`
	BlockUntil   int64   `json:"blockUntil"`
	FacingLeft   bool    `json:"facingLeft"`
}

type RoomState struct {
	RoomCode     string         `json:"roomCode"`
	Phase        string         `json:"phase"`
	PhaseEndTime int64          `json:"phaseEndTime"`
	Players      []PlayerPublic `json:"players"`
}

type PhaseChanged struct {
	Phase      string `json:"phase"`
	DurationMs int64  `json:"durationMs"`
	ServerTime int64  `json:"serverTime"`
}

type SpellCast struct {
	CasterID   int64  `json:"casterId"`
	SpellID    string `json:"spellId"`
	Kind       string `json:"kind"`
	AimDir     Vec2   `json:"aimDir"`
	Seed       int64  `json:"seed"`
	DelayMs    int64  `json:"delayMs"`
	ServerTime int64  `json:"serverTime"`
}

type CastRejected struct {
	SpellID    string `json:"spellId"`
	Reason     string `json:"reason"`
	ServerTime int64  `json:"serverTime"`
}

type Hit struct {
	CasterID   int64   `json:"casterId"`
	TargetID   int64   `json:"targetId"`
	SpellID    string  `json:"spellId"`
	Damage     float64 `json:"damage"`
	TargetHP   float64 `json:"targetHp"`
	Blocked    bool    `json:"blocked,omitempty"`
	BlockedBy  string  `json:"blockedBy,omitempty"`
	AtX        float64 `json:"atX"`
	AtY        float64 `json:"atY"`
	ProjID     string  `json:"projId,omitempty"`
	ServerTime int64   `json:"serverTime"`
}

type Heal struct {
	CasterID   int64   `json:"casterId"`
	SpellID    string  `json:"spellId"`
	Heal       float64 `json:"heal"`
	CasterHP   float64 `json:"casterHp"`
	AtX        float64 `json:"atX"`
	AtY        float64 `json:"atY"`
	ServerTime int64   `json:"serverTime"`
}

type StatusApplied struct {
	CasterID   int64  `json:"casterId"`
	TargetID   int64  `json:"targetId"`
	SpellID    string `json:"spellId"`
	StunMs     int64  `json:"stunMs"`
	ServerTime int64  `json:"serverTime"`
}

type ManaUpdate struct {
	Mana       float64 `json:"mana"`
	MaxMana    float64 `json:"maxMana"`
	ServerTime int64   `json:"serverTime"`
}

type ProjectileSpawned struct {
	ProjID     string  `json:"projId"`
	OwnerID    int64   `json:"ownerId"`
	SpellID    string  `json:"spellId"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	VX         float64 `json:"vx"`
	VY         float64 `json:"vy"`
	Radius     float64 `json:"radius"`
	LifetimeMs int64   `json:"lifetimeMs"`
	ServerTime int64   `json:"serverTime"`
}

type ProjectileHit struct {
	ProjID     string  `json:"projId"`
	TargetID   int64   `json:"targetId"`
	AtX        float64 `json:"atX"`
	AtY        float64 `json:"atY"`
	ServerTime int64   `json:"serverTime"`
}

type ProjectileGone struct {
	ProjID     string `json:"projId"`
	ServerTime int64  `json:"serverTime"`
}

type MatchEnded struct {
	WinnerID int64 `json:"winnerId"`
}

type Pose struct {
	ID         int64   `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	FacingLeft bool    `json:"facingLeft"`
	ServerTime int64   `json:"serverTime"`
}

type ErrorMsg struct {
	Message string `json:"message"`
}
