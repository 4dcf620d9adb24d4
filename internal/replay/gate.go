package replay

import (
	"sort"

	"github.com/baenzigerbear/f1-race-replay/internal/monitoring"
)

// GateKind distinguishes the three kinds of timing gates on a track.
type GateKind uint8

const (
	GateStartFinish GateKind = iota
	GateMiniSector
	GatePitEntry
)

// String returns a short name for the gate kind.
func (k GateKind) String() string {
	switch k {
	case GateStartFinish:
		return "start_finish"
	case GateMiniSector:
		return "minisector"
	case GatePitEntry:
		return "pit_entry"
	default:
		return "unknown"
	}
}

// GateID identifies a gate. Index is the minisector ordinal and zero
// for the start/finish and pit-entry gates.
type GateID struct {
	Kind  GateKind
	Index int
}

// Gate is a fixed oriented line segment in world space. Gates are
// derived once at initialisation and never recomputed mid-replay.
type Gate struct {
	ID         GateID
	Anchor     Vec2
	Tangent    Vec2 // unit vector along the gate line
	Normal     Vec2 // unit vector; crossings flip the sign of the normal distance
	HalfLength float64
}

// SignedDistance returns the distance of p to the gate's infinite line
// along the gate normal.
func (g *Gate) SignedDistance(p Vec2) float64 {
	return p.Sub(g.Anchor).Dot(g.Normal)
}

// Crossing is one accepted gate crossing.
type Crossing struct {
	Gate      GateID
	EntityID  int
	Time      float64 // interpolated absolute crossing time
	Point     Vec2    // interpolated intersection point
	Direction int     // +1 forward (negative to non-negative), -1 backward
	Offset    float64 // scalar offset along the gate tangent
}

// DetectCrossing tests whether the segment from prev (at t0) to cur (at
// t1) crosses the gate within its finite extent. Detection is a pure
// function of the geometry; debounce and side effects are applied by
// the caller. Start/finish and minisector gates accept only forward
// crossings; the pit gate accepts either direction.
func DetectCrossing(g Gate, entityID int, prev, cur Vec2, t0, t1 float64) (Crossing, bool) {
	d0 := g.SignedDistance(prev)
	d1 := g.SignedDistance(cur)

	var dir int
	switch {
	case d0 < 0 && d1 >= 0:
		dir = 1
	case d0 >= 0 && d1 < 0:
		dir = -1
	default:
		return Crossing{}, false
	}

	// Fraction of the segment at which the normal distance is zero.
	r := d0 / (d0 - d1)
	point := prev.Add(cur.Sub(prev).Scale(r))

	// Reject crossings of the infinite line outside the gate's extent.
	u := point.Sub(g.Anchor).Dot(g.Tangent)
	if u < -g.HalfLength || u > g.HalfLength {
		return Crossing{}, false
	}

	return Crossing{
		Gate:      g.ID,
		EntityID:  entityID,
		Time:      t0 + r*(t1-t0),
		Point:     point,
		Direction: dir,
		Offset:    u,
	}, true
}

// GateConfig controls gate derivation.
type GateConfig struct {
	// HalfLength is half the gate's finite extent in world units.
	HalfLength float64
	// Tolerance is the maximum timestamp distance, in seconds, between
	// a reference time and the nearest sample used to anchor a gate.
	Tolerance float64
}

// DefaultGateConfig returns the derivation defaults.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		HalfLength: 25.0,
		Tolerance:  2.0,
	}
}

// DeriveGate builds a gate anchored on the reference path at refTime.
// The tangent of travel comes from the samples bracketing the anchor;
// the gate line itself lies along the normal of travel, so the gate
// normal equals the travel direction and forward crossings flip the
// normal distance from negative to non-negative.
//
// Returns ok=false when no sample lies within the tolerance window or
// the local travel direction is degenerate.
func DeriveGate(id GateID, ref []Sample, refTime float64, cfg GateConfig) (Gate, bool) {
	n := len(ref)
	if n < 2 {
		return Gate{}, false
	}

	i := sort.Search(n, func(k int) bool { return ref[k].T >= refTime })
	// Candidates are the samples on either side of the insertion point.
	best := -1
	bestDist := cfg.Tolerance
	for _, c := range []int{i - 1, i} {
		if c < 0 || c >= n {
			continue
		}
		d := refTime - ref[c].T
		if d < 0 {
			d = -d
		}
		if d <= bestDist {
			bestDist = d
			best = c
		}
	}
	if best < 0 {
		return Gate{}, false
	}

	lo, hi := best-1, best+1
	if lo < 0 {
		lo = best
	}
	if hi >= n {
		hi = best
	}
	travel := Vec2{ref[hi].X - ref[lo].X, ref[hi].Y - ref[lo].Y}
	length := travel.Norm()
	if length == 0 {
		return Gate{}, false
	}
	dir := travel.Scale(1 / length)

	return Gate{
		ID:         id,
		Anchor:     Vec2{ref[best].X, ref[best].Y},
		Tangent:    Vec2{-dir.Y, dir.X}, // gate line is perpendicular to travel
		Normal:     dir,
		HalfLength: cfg.HalfLength,
	}, true
}

// TrackGates is the full derived gate set for a track.
type TrackGates struct {
	StartFinish *Gate
	MiniSectors []Gate
	PitEntry    *Gate
}

// GateReference carries the initialisation inputs for gate derivation:
// the reference entity whose path anchors the gates and the reference
// timestamps along that path.
type GateReference struct {
	EntityID        int
	StartFinishTime float64
	PitEntryTime    float64
	MiniSectorTimes []float64
}

// DeriveTrackGates derives all gates from the reference entity's path.
// Underivable gates are omitted and their crossing detection is simply
// skipped; a missing pit gate degrades to "never active". Derivation
// never fails the pipeline.
func DeriveTrackGates(store *TelemetryStore, ref GateReference, cfg GateConfig) TrackGates {
	path := store.Samples(ref.EntityID)

	var gates TrackGates
	if g, ok := DeriveGate(GateID{Kind: GateStartFinish}, path, ref.StartFinishTime, cfg); ok {
		gates.StartFinish = &g
	} else {
		monitoring.Logf("gates: start/finish gate omitted (no sample within %.1fs of %.3f)", cfg.Tolerance, ref.StartFinishTime)
	}

	for idx, t := range ref.MiniSectorTimes {
		g, ok := DeriveGate(GateID{Kind: GateMiniSector, Index: len(gates.MiniSectors)}, path, t, cfg)
		if !ok {
			monitoring.Logf("gates: minisector %d omitted (ref time %.3f)", idx, t)
			continue
		}
		gates.MiniSectors = append(gates.MiniSectors, g)
	}

	if g, ok := DeriveGate(GateID{Kind: GatePitEntry}, path, ref.PitEntryTime, cfg); ok {
		gates.PitEntry = &g
	} else {
		monitoring.Logf("gates: pit-entry gate omitted; pit detection disabled")
	}

	return gates
}
