package srv

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// SpellKind is the closed set of spell behaviors the resolver dispatches on.
type SpellKind string

const (
	KindProjectile SpellKind = "projectile"
	KindHeal       SpellKind = "heal"
	KindShield     SpellKind = "shield"
	KindBlock      SpellKind = "block"
	KindStatus     SpellKind = "status"
	KindDirect     SpellKind = "direct"
)

func (k SpellKind) valid() bool {
	switch k {
	case KindProjectile, KindHeal, KindShield, KindBlock, KindStatus, KindDirect:
		return true
	}
	return false
}

// SpellBehavior tunes geometry and projectile flight.
type SpellBehavior struct {
	Speed      float64 `json:"speed,omitempty"`
	LifetimeMs int64   `json:"lifetimeMs,omitempty"`
	Radius     float64 `json:"radius,omitempty"`
	Range      float64 `json:"range,omitempty"`
	ConeDeg    float64 `json:"coneDeg,omitempty"`
}

// SpellDef is one immutable catalog entry. Id is filled from the catalog key.
type SpellDef struct {
	ID         string        `json:"-"`
	Kind       SpellKind     `json:"kind"`
	Element    string        `json:"element,omitempty"`
	Damage     float64       `json:"damage,omitempty"`
	ManaCost   float64       `json:"manaCost,omitempty"`
	Cooldown   float64       `json:"cooldown,omitempty"` // seconds
	DelayMs    int64         `json:"delayMs,omitempty"`
	Hits       int           `json:"hits,omitempty"`
	Ticks      int           `json:"ticks,omitempty"`
	TickMs     int64         `json:"tickIntervalMs,omitempty"`
	DurationMs int64         `json:"durationMs,omitempty"` // shield
	BlockMs    int64         `json:"blockMs,omitempty"`    // block
	Blocks     int           `json:"blocks,omitempty"`
	StunMs     int64         `json:"stunMs,omitempty"`
	Heal       float64       `json:"heal,omitempty"`
	Behavior   SpellBehavior `json:"behavior,omitempty"`
}

// hitCount collapses the hits/ticks aliases into one multi-hit count.
func (s *SpellDef) hitCount() int {
	n := s.Hits
	if n == 0 {
		n = s.Ticks
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (s *SpellDef) tickInterval() int64 {
	if s.TickMs == 0 {
		return 120
	}
	if s.TickMs < 60 {
		return 60
	}
	return s.TickMs
}

// shotGap spaces multi-shot projectile spawns a touch wider than damage ticks.
func (s *SpellDef) shotGap() int64 {
	if g := s.tickInterval(); g > 80 {
		return g
	}
	return 80
}

func (s *SpellDef) cooldownMs() int64 {
	if s.Cooldown <= 0 {
		return 0
	}
	return int64(s.Cooldown * 1000)
}

func (s *SpellDef) rangeUnits() float64 {
	if s.Behavior.Range <= 0 {
		return 560
	}
	return s.Behavior.Range
}

func (s *SpellDef) coneDeg() float64 {
	if s.Behavior.ConeDeg <= 0 {
		return 22
	}
	return s.Behavior.ConeDeg
}

func (s *SpellDef) chargeCount() int {
	if s.Blocks < 1 {
		return 1
	}
	return s.Blocks
}

// SpellCatalog holds every spell definition, loaded once at startup and
// read-only thereafter.
type SpellCatalog struct {
	spells map[string]*SpellDef
	raw    []byte
}

// LoadSpellCatalog reads and validates the catalog file.
func LoadSpellCatalog(path string) (*SpellCatalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spell catalog: %w", err)
	}
	return ParseSpellCatalog(b)
}

// ParseSpellCatalog builds a catalog from raw JSON keyed by spell id.
func ParseSpellCatalog(b []byte) (*SpellCatalog, error) {
	var defs map[string]*SpellDef
	if err := json.Unmarshal(b, &defs); err != nil {
		return nil, fmt.Errorf("parse spell catalog: %w", err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("spell catalog is empty")
	}
	for id, s := range defs {
		s.ID = strings.ToLower(strings.TrimSpace(id))
		if s.Kind == "" {
			s.Kind = KindProjectile
		}
		if !s.Kind.valid() {
			return nil, fmt.Errorf("spell %q: unknown kind %q", id, s.Kind)
		}
		if s.ManaCost < 0 || s.Cooldown < 0 || s.Damage < 0 {
			return nil, fmt.Errorf("spell %q: negative cost/cooldown/damage", id)
		}
	}
	c := &SpellCatalog{spells: make(map[string]*SpellDef, len(defs)), raw: b}
	for _, s := range defs {
		c.spells[s.ID] = s
	}
	return c, nil
}

// Get looks a spell up by id, case-insensitively.
func (c *SpellCatalog) Get(id string) (*SpellDef, bool) {
	s, ok := c.spells[strings.ToLower(strings.TrimSpace(id))]
	return s, ok
}

// Len reports the number of loaded spells.
func (c *SpellCatalog) Len() int { return len(c.spells) }

// Raw returns the catalog bytes as loaded, for serving to clients.
func (c *SpellCatalog) Raw() []byte { return c.raw }
