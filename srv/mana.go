package srv

import (
	"math"
	"time"

	"wizduel/server/protocol"
)

// Minimum per-tick change worth sending to a client.
const manaUpdateThreshold = 0.5

func (r *Room) startManaLocked() {
	if r.manaStop != nil {
		close(r.manaStop)
	}
	stop := make(chan struct{})
	r.manaStop = stop
	tick := r.cfg.ManaTick
	go func() {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				r.manaTick(tick)
			}
		}
	}()
}

func (r *Room) manaTick(dt time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manaTickLocked(dt)
}

// manaTickLocked replenishes mana for players whose post-cast pause has
// elapsed. Updates are unicast and only when the delta is worth sending.
func (r *Room) manaTickLocked(dt time.Duration) {
	if r.phase != PhasePreround && r.phase != PhaseRound {
		return
	}
	t := nowMs()
	gain := r.cfg.ManaRegenPerSec * dt.Seconds()
	for _, p := range r.players {
		if t < p.ManaRegenResumeAt {
			continue
		}
		before := p.Mana
		p.Mana = math.Min(r.cfg.MaxMana, p.Mana+gain)
		if math.Abs(p.Mana-before) >= manaUpdateThreshold {
			sendJSON(p.c, "manaUpdate", protocol.ManaUpdate{
				Mana:       p.Mana,
				MaxMana:    r.cfg.MaxMana,
				ServerTime: t,
			})
		}
	}
}
