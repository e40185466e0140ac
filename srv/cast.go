package srv

import (
	"math"
	"math/rand"
	"time"

	"wizduel/server/protocol"
)

func normalizeDir(d protocol.Vec2) protocol.Vec2 {
	l := math.Hypot(d.X, d.Y)
	if l == 0 {
		return protocol.Vec2{X: 1, Y: 0}
	}
	return protocol.Vec2{X: d.X / l, Y: d.Y / l}
}

func angleBetween(ax, ay, bx, by float64) float64 {
	dot := ax*bx + ay*by
	la := math.Hypot(ax, ay)
	lb := math.Hypot(bx, by)
	if la == 0 {
		la = 1
	}
	if lb == 0 {
		lb = 1
	}
	return math.Acos(clamp(dot/(la*lb), -1, 1))
}

// geomCheckLocked authorizes a non-projectile effect against the target's
// position at resolve time: in range, and inside the aim cone.
func (r *Room) geomCheckLocked(caster, target *Player, aim protocol.Vec2, spell *SpellDef) bool {
	dx, dy := target.X-caster.X, target.Y-caster.Y
	dist := math.Hypot(dx, dy)
	if dist > spell.rangeUnits() {
		return false
	}
	if dist == 0 {
		return true
	}
	ang := angleBetween(aim.X, aim.Y, dx/dist, dy/dist)
	return ang <= spell.coneDeg()/2*math.Pi/180
}

// canCastLocked runs the validation chain and, on success, pays the cost.
// The first failing check wins and nothing is mutated.
func (r *Room) canCastLocked(p *Player, spellID string) (*SpellDef, string) {
	spell, ok := r.spells.Get(spellID)
	if !ok {
		return nil, RejectUnknownSpell
	}
	t := nowMs()
	if t-p.LastCastAt[spell.ID] < spell.cooldownMs() {
		return nil, RejectCooldownActive
	}
	if p.Mana < spell.ManaCost {
		return nil, RejectInsufficientMana
	}
	p.Mana -= spell.ManaCost
	p.LastCastAt[spell.ID] = t
	p.ManaRegenResumeAt = t + r.cfg.ManaRegenDelay.Milliseconds()
	return spell, ""
}

// handleCast validates a cast, announces it immediately, and schedules the
// effect. Casting is allowed in PREROUND for the telegraph, but effects only
// land during ROUND.
func (r *Room) handleCast(id int64, msg protocol.CastSpell) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhasePreround && r.phase != PhaseRound {
		return
	}
	caster, ok := r.players[id]
	if !ok {
		return
	}

	spell, reason := r.canCastLocked(caster, msg.SpellID)
	if reason != "" {
		r.hub.metrics.IncCastRejected()
		sendJSON(caster.c, "castRejected", protocol.CastRejected{
			SpellID:    msg.SpellID,
			Reason:     reason,
			ServerTime: nowMs(),
		})
		return
	}
	r.hub.metrics.IncCastAccepted()

	sendJSON(caster.c, "manaUpdate", protocol.ManaUpdate{
		Mana: caster.Mana, MaxMana: r.cfg.MaxMana, ServerTime: nowMs(),
	})

	aim := normalizeDir(msg.AimDir)
	seed := rand.Int63n(1 << 31)
	r.broadcastLocked("spellCast", protocol.SpellCast{
		CasterID:   caster.ID,
		SpellID:    spell.ID,
		Kind:       string(spell.Kind),
		AimDir:     aim,
		Seed:       seed,
		DelayMs:    spell.DelayMs,
		ServerTime: nowMs(),
	})

	if r.phase != PhaseRound {
		r.broadcastStateLocked()
		return
	}

	epoch := r.epoch
	switch spell.Kind {
	case KindProjectile:
		r.scheduleShotsLocked(epoch, caster.ID, spell, aim)
	default:
		target := r.opponentLocked(caster.ID)
		var targetID int64
		if target != nil {
			targetID = target.ID
		}
		if spell.DelayMs > 0 {
			r.afterMs(spell.DelayMs, func() {
				r.resolveEffect(epoch, caster.ID, targetID, spell, aim)
			})
		} else {
			r.resolveEffectLocked(epoch, caster.ID, targetID, spell, aim)
		}
	}
	r.broadcastStateLocked()
}

func (r *Room) afterMs(ms int64, fn func()) {
	time.AfterFunc(time.Duration(ms)*time.Millisecond, fn)
}

func (r *Room) resolveEffect(epoch, casterID, targetID int64, spell *SpellDef, aim protocol.Vec2) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolveEffectLocked(epoch, casterID, targetID, spell, aim)
}

// resolveEffectLocked applies a non-projectile effect. The world may have
// moved on since the cast (disconnect, rematch, match over); any staleness
// makes this a silent no-op.
func (r *Room) resolveEffectLocked(epoch, casterID, targetID int64, spell *SpellDef, aim protocol.Vec2) {
	if r.epoch != epoch || r.phase != PhaseRound {
		return
	}
	caster, ok := r.players[casterID]
	if !ok {
		return
	}
	t := nowMs()

	switch spell.Kind {
	case KindShield:
		dur := spell.DurationMs
		if dur <= 0 {
			dur = 3000
		}
		caster.ShieldUntil = t + dur
		caster.ShieldCharges = spell.chargeCount()
		r.broadcastStateLocked()

	case KindBlock:
		dur := spell.BlockMs
		if dur <= 0 {
			dur = 2500
		}
		caster.BlockUntil = t + dur
		caster.BlockCharges = spell.chargeCount()
		r.broadcastStateLocked()

	case KindHeal:
		heal := math.Max(0, spell.Heal)
		caster.HP = math.Min(r.cfg.MaxHP, caster.HP+heal)
		r.broadcastLocked("heal", protocol.Heal{
			CasterID:   caster.ID,
			SpellID:    spell.ID,
			Heal:       heal,
			CasterHP:   caster.HP,
			AtX:        caster.X,
			AtY:        caster.Y,
			ServerTime: t,
		})
		r.broadcastStateLocked()

	case KindStatus:
		target, ok := r.players[targetID]
		if !ok {
			return
		}
		if !r.geomCheckLocked(caster, target, aim, spell) {
			return
		}
		if spell.StunMs > 0 {
			target.StunnedUntil = max64(target.StunnedUntil, t+spell.StunMs)
			r.broadcastLocked("statusApplied", protocol.StatusApplied{
				CasterID:   caster.ID,
				TargetID:   target.ID,
				SpellID:    spell.ID,
				StunMs:     spell.StunMs,
				ServerTime: t,
			})
		}
		if spell.Damage > 0 {
			r.scheduleMultiHitsLocked(epoch, caster.ID, target.ID, spell)
		}
		r.broadcastStateLocked()

	case KindDirect:
		target, ok := r.players[targetID]
		if !ok {
			return
		}
		if !r.geomCheckLocked(caster, target, aim, spell) {
			return
		}
		if spell.hitCount() > 1 {
			r.scheduleMultiHitsLocked(epoch, caster.ID, target.ID, spell)
		} else {
			r.applyHitLocked(caster.ID, target, spell.ID, spell.Damage, "", target.X, target.Y)
			r.broadcastStateLocked()
		}
	}
}

// scheduleMultiHitsLocked splits damage into discrete future applications,
// each re-validating the world on fire.
func (r *Room) scheduleMultiHitsLocked(epoch, casterID, targetID int64, spell *SpellDef) {
	n := spell.hitCount()
	step := spell.tickInterval()
	for i := 0; i < n; i++ {
		r.afterMs(int64(i)*step, func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.epoch != epoch || r.phase != PhaseRound {
				return
			}
			target, ok := r.players[targetID]
			if !ok {
				return
			}
			if _, ok := r.players[casterID]; !ok {
				return
			}
			r.applyHitLocked(casterID, target, spell.ID, spell.Damage, "", target.X, target.Y)
			r.broadcastStateLocked()
		})
	}
}

// tryConsumeDefense burns one defense charge if any is active. Shield
// outranks block.
func tryConsumeDefense(target *Player, t int64) (blocked bool, by string) {
	if target.ShieldCharges > 0 && target.ShieldUntil > t {
		target.ShieldCharges--
		if target.ShieldCharges <= 0 {
			target.ShieldUntil = 0
		}
		return true, "shield"
	}
	if target.BlockCharges > 0 && target.BlockUntil > t {
		target.BlockCharges--
		if target.BlockCharges <= 0 {
			target.BlockUntil = 0
		}
		return true, "block"
	}
	return false, ""
}

// applyHitLocked is the single damage funnel for direct hits, status ticks
// and projectile collisions. Reaching zero hp ends the match synchronously
// so a near-simultaneous second hit can never end it twice.
func (r *Room) applyHitLocked(casterID int64, target *Player, spellID string, dmg float64, projID string, atX, atY float64) {
	if r.phase != PhaseRound {
		return
	}
	t := nowMs()
	if blocked, by := tryConsumeDefense(target, t); blocked {
		r.hub.metrics.IncHit(true)
		r.broadcastLocked("hit", protocol.Hit{
			CasterID:   casterID,
			TargetID:   target.ID,
			SpellID:    spellID,
			Damage:     0,
			TargetHP:   target.HP,
			Blocked:    true,
			BlockedBy:  by,
			AtX:        atX,
			AtY:        atY,
			ProjID:     projID,
			ServerTime: t,
		})
		return
	}

	amount := math.Max(0, dmg)
	target.HP = math.Max(0, target.HP-amount)
	r.hub.metrics.IncHit(false)
	r.broadcastLocked("hit", protocol.Hit{
		CasterID:   casterID,
		TargetID:   target.ID,
		SpellID:    spellID,
		Damage:     amount,
		TargetHP:   target.HP,
		AtX:        atX,
		AtY:        atY,
		ProjID:     projID,
		ServerTime: t,
	})

	if target.HP <= 0 {
		r.endMatchLocked(casterID)
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
