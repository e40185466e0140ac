package srv

import (
	"math"
	"time"

	"wizduel/server/protocol"

	"github.com/google/uuid"
)

// Margin past the arena edge before a projectile is culled.
const projBoundsMargin = 60

// scheduleShotsLocked fans a projectile cast out into its individual spawns.
// Damage comes later, from collision, never from the cast itself.
func (r *Room) scheduleShotsLocked(epoch, casterID int64, spell *SpellDef, aim protocol.Vec2) {
	shots := spell.hitCount()
	gap := spell.shotGap()
	delay := spell.DelayMs
	if delay < 0 {
		delay = 0
	}
	for i := 0; i < shots; i++ {
		offset := delay + int64(i)*gap
		if offset == 0 {
			r.spawnProjectileLocked(casterID, spell, aim)
			continue
		}
		r.afterMs(offset, func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.epoch != epoch || r.phase != PhaseRound {
				return
			}
			if _, ok := r.players[casterID]; !ok {
				return
			}
			r.spawnProjectileLocked(casterID, spell, aim)
		})
	}
}

func (r *Room) spawnProjectileLocked(casterID int64, spell *SpellDef, aim protocol.Vec2) {
	caster, ok := r.players[casterID]
	if !ok {
		return
	}
	beh := spell.Behavior
	speed := beh.Speed
	if speed <= 0 {
		speed = 520
	}
	lifetime := beh.LifetimeMs
	if lifetime <= 0 {
		lifetime = 800
	}
	radius := beh.Radius
	if radius <= 0 {
		radius = 10
	}

	t := nowMs()
	p := &Projectile{
		ID:        uuid.NewString(),
		OwnerID:   casterID,
		SpellID:   spell.ID,
		X:         caster.X,
		Y:         caster.Y,
		VX:        aim.X * speed,
		VY:        aim.Y * speed,
		Radius:    radius,
		Damage:    spell.Damage,
		CreatedAt: t,
		ExpiresAt: t + lifetime,
	}
	r.projectiles[p.ID] = p
	r.hub.metrics.IncProjSpawned()

	// The spawn event carries the full trajectory so clients extrapolate
	// locally from spawn time instead of waiting on per-tick updates.
	r.broadcastLocked("projSpawn", protocol.ProjectileSpawned{
		ProjID:     p.ID,
		OwnerID:    p.OwnerID,
		SpellID:    p.SpellID,
		X:          p.X,
		Y:          p.Y,
		VX:         p.VX,
		VY:         p.VY,
		Radius:     p.Radius,
		LifetimeMs: lifetime,
		ServerTime: t,
	})
}

func (r *Room) startProjectilesLocked() {
	if r.projStop != nil {
		close(r.projStop)
	}
	stop := make(chan struct{})
	r.projStop = stop
	tick := r.cfg.ProjTick
	go func() {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				start := time.Now()
				r.stepProjectiles(tick)
				r.hub.metrics.AddProjTick(time.Since(start).Nanoseconds())
			}
		}
	}()
}

func (r *Room) stepProjectiles(dt time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stepProjectilesLocked(dt)
}

// stepProjectilesLocked advances every live projectile by one tick and
// resolves expiries, bounds exits and collisions. A projectile whose owner
// has vanished keeps flying; the hit is still credited to the stored owner
// id.
func (r *Room) stepProjectilesLocked(dt time.Duration) {
	if r.phase != PhaseRound {
		return
	}
	t := nowMs()
	dts := dt.Seconds()

	for id, p := range r.projectiles {
		if t >= p.ExpiresAt {
			delete(r.projectiles, id)
			r.broadcastLocked("projGone", protocol.ProjectileGone{ProjID: id, ServerTime: t})
			continue
		}

		p.X += p.VX * dts
		p.Y += p.VY * dts

		if p.X < -projBoundsMargin || p.X > r.cfg.WorldW+projBoundsMargin ||
			p.Y < -projBoundsMargin || p.Y > r.cfg.WorldH+projBoundsMargin {
			delete(r.projectiles, id)
			r.broadcastLocked("projGone", protocol.ProjectileGone{ProjID: id, ServerTime: t})
			continue
		}

		for _, target := range r.players {
			if target.ID == p.OwnerID {
				continue
			}
			if math.Hypot(target.X-p.X, target.Y-p.Y) > p.Radius+r.cfg.TargetRadius {
				continue
			}
			r.broadcastLocked("projHit", protocol.ProjectileHit{
				ProjID:     id,
				TargetID:   target.ID,
				AtX:        p.X,
				AtY:        p.Y,
				ServerTime: t,
			})
			delete(r.projectiles, id)
			r.applyHitLocked(p.OwnerID, target, p.SpellID, p.Damage, id, p.X, p.Y)
			r.broadcastStateLocked()
			break
		}
	}
}
