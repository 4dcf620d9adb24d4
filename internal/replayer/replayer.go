// Package replayer drives one loaded session's replay pipeline from a
// wall-clock tick loop and publishes snapshots to HTTP consumers.
package replayer

import (
	"context"
	"sync"
	"time"

	"github.com/baenzigerbear/f1-race-replay/internal/db"
	"github.com/baenzigerbear/f1-race-replay/internal/monitoring"
	"github.com/baenzigerbear/f1-race-replay/internal/replay"
	"github.com/baenzigerbear/f1-race-replay/internal/timeutil"
)

// Replayer owns a running replay of one session. The pipeline is ticked
// from a single goroutine; all control and read methods are safe for
// concurrent use.
type Replayer struct {
	mu       sync.Mutex
	pipeline *replay.Pipeline
	store    *replay.TelemetryStore
	ref      replay.GateReference
	session  db.SessionMeta
	snapshot replay.Snapshot

	clk      timeutil.Clock
	interval time.Duration
}

// New builds a replayer over a loaded session. The clock starts paused;
// call Play to begin advancement.
func New(store *replay.TelemetryStore, ref replay.GateReference, session db.SessionMeta,
	clockCfg replay.ClockConfig, cfg replay.PipelineConfig, clk timeutil.Clock, interval time.Duration) *Replayer {

	p := replay.NewPipeline(store, clockCfg, ref, cfg)
	return &Replayer{
		pipeline: p,
		store:    store,
		ref:      ref,
		session:  session,
		snapshot: p.Snapshot(),
		clk:      clk,
		interval: interval,
	}
}

// Session returns the metadata of the replayed session.
func (r *Replayer) Session() db.SessionMeta { return r.session }

// Run ticks the pipeline until the context is cancelled. Tick deltas
// come from the clock, so a delayed tick catches up instead of slowing
// the race down.
func (r *Replayer) Run(ctx context.Context) {
	ticker := r.clk.NewTicker(r.interval)
	defer ticker.Stop()

	monitoring.Logf("replayer: started session %s (%s)", r.session.ID, r.session.Name)
	last := r.clk.Now()

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("replayer: stopped session %s", r.session.ID)
			return
		case <-ticker.C():
			now := r.clk.Now()
			dt := now.Sub(last).Seconds()
			last = now
			r.TickOnce(dt)
		}
	}
}

// TickOnce advances the pipeline by dt wall seconds and publishes the
// resulting snapshot.
func (r *Replayer) TickOnce(dt float64) replay.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = r.pipeline.Tick(dt)
	return r.snapshot
}

// Snapshot returns the most recently published snapshot.
func (r *Replayer) Snapshot() replay.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot
}

// Play starts clock advancement.
func (r *Replayer) Play() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipeline.Clock().Play()
}

// Pause stops clock advancement.
func (r *Replayer) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipeline.Clock().Pause()
}

// SetSpeed sets the replay speed multiplier, clamped by the pipeline
// clock.
func (r *Replayer) SetSpeed(speed float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipeline.Clock().SetSpeed(speed)
}

// Playing reports whether the replay clock is advancing.
func (r *Replayer) Playing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipeline.Clock().Playing()
}

// FinalClassification returns the frozen field once every ranked entity
// has finished.
func (r *Replayer) FinalClassification() ([]replay.StandingRow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipeline.FinalClassification()
}

// LapSummaries returns per-entity lap statistics for the replay so far.
func (r *Replayer) LapSummaries() []replay.LapSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return replay.SummariseLaps(r.pipeline.Ledger().Entries())
}

// Gates exposes the derived gate set, for track plotting.
func (r *Replayer) Gates() replay.TrackGates {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipeline.Gates()
}

// Entities returns the session's competitors in registration order.
func (r *Replayer) Entities() []replay.Entity {
	return r.store.Entities()
}

// ReferencePath returns the gate-reference entity's sample path.
func (r *Replayer) ReferencePath() []replay.Sample {
	return r.store.Samples(r.ref.EntityID)
}

// LapHistories returns a copy of every entity's start/finish crossing
// times, keyed by entity id.
func (r *Replayer) LapHistories() map[int][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int][]float64)
	for _, ep := range r.pipeline.Ledger().Entries() {
		out[ep.EntityID] = append([]float64(nil), ep.LapTimes...)
	}
	return out
}
