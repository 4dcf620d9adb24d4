package replay

import "fmt"

// GapKind tags a gap value.
type GapKind uint8

const (
	// GapUnavailable means no comparable timing data exists yet.
	GapUnavailable GapKind = iota
	// GapLeader marks the reference entity itself.
	GapLeader
	// GapTime carries a non-negative time gap in seconds.
	GapTime
)

// GapValue is a tagged gap: the entity is the leader, trails by a
// number of seconds, or has no comparable data. Seconds is only
// meaningful for GapTime and is never negative.
type GapValue struct {
	Kind    GapKind
	Seconds float64
}

// String renders the gap the way a timing screen would.
func (g GapValue) String() string {
	switch g.Kind {
	case GapLeader:
		return "LEADER"
	case GapTime:
		return fmt.Sprintf("+%.3f", g.Seconds)
	default:
		return "-"
	}
}

// GapEngine computes per-entity time gaps to the leader and to the car
// immediately ahead by comparing minisector crossing timestamps at the
// same sequence ordinal. Comparing at matching spatial reference points
// cancels lap-position ambiguity: a gap only moves when an entity
// actually advances through a sector.
type GapEngine struct {
	toLeader map[int]GapValue
	toAhead  map[int]GapValue

	// Last successfully computed gaps, kept so a frame with missing
	// comparison data degrades to the stable value instead of
	// flickering to Unavailable.
	stableLeader map[int]float64
	stableAhead  map[int]float64
}

// NewGapEngine creates an empty gap engine.
func NewGapEngine() *GapEngine {
	return &GapEngine{
		toLeader:     make(map[int]GapValue),
		toAhead:      make(map[int]GapValue),
		stableLeader: make(map[int]float64),
		stableAhead:  make(map[int]float64),
	}
}

// Recompute rebuilds both gap maps from the current ranking order.
// order must be the ranked revealed entities, leader first. With an
// empty order prior gaps are preserved but no leader is asserted.
// Recomputing twice without new crossings yields identical output.
func (g *GapEngine) Recompute(order []*EntityProgress) {
	if len(order) == 0 {
		for id, v := range g.toLeader {
			if v.Kind == GapLeader {
				g.toLeader[id] = GapValue{Kind: GapUnavailable}
			}
		}
		for id, v := range g.toAhead {
			if v.Kind == GapLeader {
				g.toAhead[id] = GapValue{Kind: GapUnavailable}
			}
		}
		return
	}

	leader := order[0]
	for i, e := range order {
		if i == 0 {
			g.toLeader[e.EntityID] = GapValue{Kind: GapLeader}
			g.toAhead[e.EntityID] = GapValue{Kind: GapLeader}
			continue
		}
		g.toLeader[e.EntityID] = g.gapAgainst(e, leader, g.stableLeader, g.toLeader)
		g.toAhead[e.EntityID] = g.gapAgainst(e, order[i-1], g.stableAhead, g.toAhead)
	}
}

// gapAgainst compares the entity's latest minisector timestamp with the
// reference entity's timestamp at the same ordinal. Missing data
// degrades to the last stable value, then to the previous map entry,
// and only to Unavailable when the entity has no history at all.
func (g *GapEngine) gapAgainst(e, ref *EntityProgress, stable map[int]float64, prev map[int]GapValue) GapValue {
	idx := len(e.MiniSeqTimes) - 1
	if idx >= 0 && idx < len(ref.MiniSeqTimes) {
		gap := e.MiniSeqTimes[idx] - ref.MiniSeqTimes[idx]
		if gap < 0 {
			// Measurement noise; a follower cannot be ahead.
			gap = 0
		}
		stable[e.EntityID] = gap
		return GapValue{Kind: GapTime, Seconds: gap}
	}

	if s, ok := stable[e.EntityID]; ok {
		return GapValue{Kind: GapTime, Seconds: s}
	}
	if p, ok := prev[e.EntityID]; ok && p.Kind == GapTime {
		return p
	}
	return GapValue{Kind: GapUnavailable}
}

// GapToLeader returns the entity's gap to the leader.
func (g *GapEngine) GapToLeader(entityID int) GapValue {
	if v, ok := g.toLeader[entityID]; ok {
		return v
	}
	return GapValue{Kind: GapUnavailable}
}

// GapToAhead returns the entity's gap to the car immediately ahead.
func (g *GapEngine) GapToAhead(entityID int) GapValue {
	if v, ok := g.toAhead[entityID]; ok {
		return v
	}
	return GapValue{Kind: GapUnavailable}
}
