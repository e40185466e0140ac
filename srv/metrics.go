package srv

import "sync/atomic"

// Metrics tracks process-wide counters for the /metrics endpoint.
type Metrics struct {
	RoomsCreated    int64
	RoomsDestroyed  int64
	CastsAccepted   int64
	CastsRejected   int64
	Hits            int64
	HitsBlocked     int64
	ProjSpawned     int64
	ProjTickCount   int64
	ProjTickTotalNs int64
}

func (m *Metrics) IncRoomCreated()   { atomic.AddInt64(&m.RoomsCreated, 1) }
func (m *Metrics) IncRoomDestroyed() { atomic.AddInt64(&m.RoomsDestroyed, 1) }
func (m *Metrics) IncCastAccepted()  { atomic.AddInt64(&m.CastsAccepted, 1) }
func (m *Metrics) IncCastRejected()  { atomic.AddInt64(&m.CastsRejected, 1) }
func (m *Metrics) IncHit(blocked bool) {
	atomic.AddInt64(&m.Hits, 1)
	if blocked {
		atomic.AddInt64(&m.HitsBlocked, 1)
	}
}
func (m *Metrics) IncProjSpawned() { atomic.AddInt64(&m.ProjSpawned, 1) }
func (m *Metrics) AddProjTick(ns int64) {
	atomic.AddInt64(&m.ProjTickCount, 1)
	atomic.AddInt64(&m.ProjTickTotalNs, ns)
}

// Snapshot returns a read copy suitable for JSON output.
func (m *Metrics) Snapshot() map[string]any {
	ticks := atomic.LoadInt64(&m.ProjTickCount)
	total := atomic.LoadInt64(&m.ProjTickTotalNs)
	var avgMs float64
	if ticks > 0 {
		avgMs = float64(total) / float64(ticks) / 1e6
	}
	return map[string]any{
		"rooms_created":    atomic.LoadInt64(&m.RoomsCreated),
		"rooms_destroyed":  atomic.LoadInt64(&m.RoomsDestroyed),
		"casts_accepted":   atomic.LoadInt64(&m.CastsAccepted),
		"casts_rejected":   atomic.LoadInt64(&m.CastsRejected),
		"hits":             atomic.LoadInt64(&m.Hits),
		"hits_blocked":     atomic.LoadInt64(&m.HitsBlocked),
		"proj_spawned":     atomic.LoadInt64(&m.ProjSpawned),
		"proj_ticks":       ticks,
		"avg_proj_tick_ms": avgMs,
	}
}
