package srv

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every server tunable. Values come from the environment with
// gameplay defaults matching the shipped balance.
type Config struct {
	Addr      string `env:"WIZDUEL_ADDR"       envDefault:":8080"`
	LogFile   string `env:"WIZDUEL_LOG_FILE"   envDefault:"app.log"`
	SpellFile string `env:"WIZDUEL_SPELL_FILE" envDefault:"data/spells.json"`

	// Arena geometry (units shared with the client renderer).
	WorldW float64 `env:"WIZDUEL_WORLD_W" envDefault:"1280"`
	WorldH float64 `env:"WIZDUEL_WORLD_H" envDefault:"720"`
	PadX   float64 `env:"WIZDUEL_PAD_X"   envDefault:"48"`
	PadY   float64 `env:"WIZDUEL_PAD_Y"   envDefault:"88"`

	MaxHP   float64 `env:"WIZDUEL_MAX_HP"   envDefault:"100"`
	MaxMana float64 `env:"WIZDUEL_MAX_MANA" envDefault:"100"`

	ManaRegenPerSec float64       `env:"WIZDUEL_MANA_REGEN_PER_SEC" envDefault:"6"`
	ManaTick        time.Duration `env:"WIZDUEL_MANA_TICK"          envDefault:"100ms"`
	ManaRegenDelay  time.Duration `env:"WIZDUEL_MANA_REGEN_DELAY"   envDefault:"450ms"`

	ProjTick     time.Duration `env:"WIZDUEL_PROJ_TICK"     envDefault:"50ms"`
	TargetRadius float64       `env:"WIZDUEL_TARGET_RADIUS" envDefault:"22"`

	Preround      time.Duration `env:"WIZDUEL_PREROUND"       envDefault:"8s"`
	PoseBroadcast time.Duration `env:"WIZDUEL_POSE_BROADCAST" envDefault:"50ms"`
}

// LoadConfig parses the environment into a Config.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// spawn position for a slot, mirrored across the arena.
func (c Config) spawnFor(slot int) (x, y float64) {
	if slot == 0 {
		return 260, 480
	}
	return c.WorldW - 260, 480
}

func (c Config) clampX(x float64) float64 { return clamp(x, c.PadX, c.WorldW-c.PadX) }
func (c Config) clampY(y float64) float64 { return clamp(y, c.PadY, c.WorldH-c.PadY) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
