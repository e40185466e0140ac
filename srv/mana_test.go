package srv

import (
	"math"
	"testing"
	"time"
)

func TestManaRegenTick(t *testing.T) {
	h := testHub(t)
	r, a, b := twoPlayerRoom(t, h)
	forceRound(r)
	pa, pb := player(t, r, a), player(t, r, b)

	r.mu.Lock()
	pa.Mana = 50
	pa.ManaRegenResumeAt = 0 // eligible
	pb.Mana = 50
	pb.ManaRegenResumeAt = nowMs() + 10000 // paused after a cast
	r.mu.Unlock()
	drain(a)
	drain(b)

	r.mu.Lock()
	r.manaTickLocked(100 * time.Millisecond)
	r.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if math.Abs(pa.Mana-50.6) > 1e-9 {
		t.Fatalf("want 50.6 after one tick, got %v", pa.Mana)
	}
	if pb.Mana != 50 {
		t.Fatalf("paused player must not regen, got %v", pb.Mana)
	}
	if countType(drain(a), "manaUpdate") != 1 {
		t.Fatal("regenerating player should get an update")
	}
	if countType(drain(b), "manaUpdate") != 0 {
		t.Fatal("paused player should get no update")
	}
}

func TestManaCapsAndGoesQuiet(t *testing.T) {
	h := testHub(t)
	r, a, _ := twoPlayerRoom(t, h)
	forceRound(r)
	pa := player(t, r, a)
	r.mu.Lock()
	pa.Mana = 100
	pa.ManaRegenResumeAt = 0
	r.mu.Unlock()
	drain(a)

	r.mu.Lock()
	r.manaTickLocked(100 * time.Millisecond)
	r.mu.Unlock()

	if pa.Mana != 100 {
		t.Fatalf("mana must cap at max, got %v", pa.Mana)
	}
	// Delta below the threshold: no network chatter.
	if countType(drain(a), "manaUpdate") != 0 {
		t.Fatal("capped player should not be spammed with updates")
	}
}

func TestManaIdleOutsideCastWindow(t *testing.T) {
	h := testHub(t)
	r, a, _ := twoPlayerRoom(t, h)
	pa := player(t, r, a)
	r.mu.Lock()
	pa.Mana = 10
	pa.ManaRegenResumeAt = 0
	r.setPhaseLocked(PhaseEnd, 0)
	r.manaTickLocked(100 * time.Millisecond)
	hpAfterEnd := pa.Mana
	r.mu.Unlock()

	if hpAfterEnd != 10 {
		t.Fatalf("no regen outside PREROUND/ROUND, got %v", hpAfterEnd)
	}
}
