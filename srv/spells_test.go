package srv

import (
	"strings"
	"testing"
)

func TestParseSpellCatalog(t *testing.T) {
	c, err := ParseSpellCatalog([]byte(testCatalog))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Len() != 9 {
		t.Fatalf("want 9 spells, got %d", c.Len())
	}

	bolt, ok := c.Get("bolt")
	if !ok {
		t.Fatal("bolt missing")
	}
	if bolt.Kind != KindProjectile || bolt.Damage != 14 || bolt.Behavior.Speed != 560 {
		t.Fatalf("bad bolt %+v", bolt)
	}
	if bolt.ID != "bolt" {
		t.Fatalf("id not filled from key: %q", bolt.ID)
	}

	// Case-insensitive lookup, as ids travel through voice frontends.
	if _, ok := c.Get("  BOLT "); !ok {
		t.Fatal("lookup should normalize case and whitespace")
	}
}

func TestCatalogRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		json string
		want string
	}{
		{"unknown kind", `{"x": {"kind": "summon"}}`, "unknown kind"},
		{"negative cost", `{"x": {"kind": "direct", "manaCost": -1}}`, "negative"},
		{"empty", `{}`, "empty"},
		{"not json", `nope`, "parse"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSpellCatalog([]byte(tc.json))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestKindDefaultsToProjectile(t *testing.T) {
	c, err := ParseSpellCatalog([]byte(`{"plain": {"damage": 5}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s, _ := c.Get("plain")
	if s.Kind != KindProjectile {
		t.Fatalf("want projectile default, got %s", s.Kind)
	}
}

func TestSpellDerivedValues(t *testing.T) {
	cases := []struct {
		name  string
		def   SpellDef
		check func(t *testing.T, s *SpellDef)
	}{
		{"hits/ticks alias", SpellDef{Ticks: 3}, func(t *testing.T, s *SpellDef) {
			if s.hitCount() != 3 {
				t.Fatalf("hitCount=%d", s.hitCount())
			}
		}},
		{"hit floor", SpellDef{}, func(t *testing.T, s *SpellDef) {
			if s.hitCount() != 1 {
				t.Fatalf("hitCount=%d", s.hitCount())
			}
		}},
		{"tick default", SpellDef{}, func(t *testing.T, s *SpellDef) {
			if s.tickInterval() != 120 {
				t.Fatalf("tickInterval=%d", s.tickInterval())
			}
		}},
		{"tick floor", SpellDef{TickMs: 10}, func(t *testing.T, s *SpellDef) {
			if s.tickInterval() != 60 {
				t.Fatalf("tickInterval=%d", s.tickInterval())
			}
		}},
		{"shot gap floor", SpellDef{TickMs: 60}, func(t *testing.T, s *SpellDef) {
			if s.shotGap() != 80 {
				t.Fatalf("shotGap=%d", s.shotGap())
			}
		}},
		{"range default", SpellDef{}, func(t *testing.T, s *SpellDef) {
			if s.rangeUnits() != 560 || s.coneDeg() != 22 {
				t.Fatalf("range=%v cone=%v", s.rangeUnits(), s.coneDeg())
			}
		}},
		{"cooldown ms", SpellDef{Cooldown: 2.5}, func(t *testing.T, s *SpellDef) {
			if s.cooldownMs() != 2500 {
				t.Fatalf("cooldownMs=%d", s.cooldownMs())
			}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, &tc.def)
		})
	}
}

func TestShippedCatalogLoads(t *testing.T) {
	c, err := LoadSpellCatalog("../data/spells.json")
	if err != nil {
		t.Fatalf("shipped catalog must load: %v", err)
	}
	for _, id := range []string{"firebolt", "tide_mend", "aegis_veil", "stone_guard", "poison_gasp", "stone_lance"} {
		if _, ok := c.Get(id); !ok {
			t.Fatalf("shipped catalog missing %s", id)
		}
	}
	if len(c.Raw()) == 0 {
		t.Fatal("raw bytes should be retained for serving")
	}
}
