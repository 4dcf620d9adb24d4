package replay

import (
	"math"
	"sort"
)

// DefaultSmoothingTau is the exponential smoothing time constant, in
// simulation seconds, applied to display positions.
const DefaultSmoothingTau = 0.12

// Vec2 is a 2-D world-space vector.
type Vec2 struct {
	X float64
	Y float64
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

// Norm returns the Euclidean length of v.
func (v Vec2) Norm() float64 { return math.Hypot(v.X, v.Y) }

// PositionSampler maps an absolute time to an interpolated position for
// each entity. It also maintains an optional exponentially smoothed
// display position per entity; crossing detection must use the raw
// interpolated position only.
type PositionSampler struct {
	store *TelemetryStore
	tau   float64

	smoothed map[int]Vec2
}

// NewPositionSampler creates a sampler over the given store. A tau of
// zero disables display smoothing.
func NewPositionSampler(store *TelemetryStore, tau float64) *PositionSampler {
	return &PositionSampler{
		store:    store,
		tau:      tau,
		smoothed: make(map[int]Vec2),
	}
}

// SampleAt returns the raw interpolated position of an entity at
// absolute time t. Times before the first or after the last sample
// clamp to the nearest endpoint; there is no extrapolation. ok is false
// only when the entity has no valid samples at all.
func (p *PositionSampler) SampleAt(entityID int, t float64) (Vec2, bool) {
	samples := p.store.Samples(entityID)
	return interpolate(samples, t)
}

// interpolate performs the bracketing binary search and linear blend.
func interpolate(samples []Sample, t float64) (Vec2, bool) {
	n := len(samples)
	if n == 0 {
		return Vec2{}, false
	}
	if t <= samples[0].T {
		return Vec2{samples[0].X, samples[0].Y}, true
	}
	if t >= samples[n-1].T {
		return Vec2{samples[n-1].X, samples[n-1].Y}, true
	}

	// First sample with timestamp > t; the bracket is [i-1, i].
	i := sort.Search(n, func(k int) bool { return samples[k].T > t })
	a, b := samples[i-1], samples[i]
	frac := (t - a.T) / (b.T - a.T)
	return Vec2{
		X: a.X + (b.X-a.X)*frac,
		Y: a.Y + (b.Y-a.Y)*frac,
	}, true
}

// Smooth folds a raw position into the entity's smoothed display
// position and returns it. simDt is the elapsed simulation time since
// the previous tick; working in simulation time keeps the filter
// response identical across speed multipliers.
func (p *PositionSampler) Smooth(entityID int, raw Vec2, simDt float64) Vec2 {
	if p.tau <= 0 {
		return raw
	}
	prev, ok := p.smoothed[entityID]
	if !ok || simDt <= 0 {
		p.smoothed[entityID] = raw
		return raw
	}
	alpha := 1 - math.Exp(-simDt/p.tau)
	next := prev.Add(raw.Sub(prev).Scale(alpha))
	p.smoothed[entityID] = next
	return next
}

// ResetSmoothing drops all smoothing state, e.g. after a seek.
func (p *PositionSampler) ResetSmoothing() {
	p.smoothed = make(map[int]Vec2)
}
