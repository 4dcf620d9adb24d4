package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqEntry(id int, times ...float64) *EntityProgress {
	e := &EntityProgress{
		EntityID:         id,
		Revealed:         true,
		BaselineCaptured: true,
		MiniSeqTimes:     times,
		MiniSectorCount:  len(times),
	}
	if n := len(times); n > 0 {
		e.LastMiniCross = times[n-1]
		e.HasMiniCross = true
	}
	return e
}

func TestGapSameOrdinalComparison(t *testing.T) {
	g := NewGapEngine()
	a := seqEntry(1, 10.0, 22.0)
	b := seqEntry(2, 10.5, 22.6)

	g.Recompute([]*EntityProgress{a, b})

	require.Equal(t, GapLeader, g.GapToLeader(1).Kind)
	gap := g.GapToLeader(2)
	require.Equal(t, GapTime, gap.Kind)
	assert.InDelta(t, 0.6, gap.Seconds, 1e-9)

	// Rank 1's car ahead is the leader: identical comparison.
	ahead := g.GapToAhead(2)
	require.Equal(t, GapTime, ahead.Kind)
	assert.InDelta(t, 0.6, ahead.Seconds, 1e-9)
}

func TestGapNeverNegative(t *testing.T) {
	g := NewGapEngine()
	// Follower's timestamp is earlier than the leader's at the same
	// ordinal (measurement noise): clamp to zero.
	a := seqEntry(1, 10.0, 22.0)
	b := seqEntry(2, 9.8, 21.5)
	g.Recompute([]*EntityProgress{a, b})

	gap := g.GapToLeader(2)
	require.Equal(t, GapTime, gap.Kind)
	assert.Zero(t, gap.Seconds)
}

func TestGapFallsBackToStableValue(t *testing.T) {
	g := NewGapEngine()
	a := seqEntry(1, 10.0, 22.0)
	b := seqEntry(2, 10.5, 22.6)
	g.Recompute([]*EntityProgress{a, b})

	// B advances to an ordinal the leader has no timestamp for; the
	// previous stable 0.6s holds instead of flipping to Unavailable.
	b.MiniSeqTimes = append(b.MiniSeqTimes, 35.0)
	g.Recompute([]*EntityProgress{a, b})

	gap := g.GapToLeader(2)
	require.Equal(t, GapTime, gap.Kind)
	assert.InDelta(t, 0.6, gap.Seconds, 1e-9)
}

func TestGapUnavailableWithoutAnyData(t *testing.T) {
	g := NewGapEngine()
	a := seqEntry(1, 10.0)
	b := seqEntry(2) // revealed but no post-green crossing yet
	g.Recompute([]*EntityProgress{a, b})

	assert.Equal(t, GapUnavailable, g.GapToLeader(2).Kind)
	assert.Equal(t, GapUnavailable, g.GapToAhead(2).Kind)
}

func TestGapEmptyOrderDemotesLeader(t *testing.T) {
	g := NewGapEngine()
	a := seqEntry(1, 10.0, 22.0)
	b := seqEntry(2, 10.5, 22.6)
	g.Recompute([]*EntityProgress{a, b})
	require.Equal(t, GapLeader, g.GapToLeader(1).Kind)

	g.Recompute(nil)

	// No leader can be asserted without data, but the follower's
	// prior time gap is preserved.
	assert.Equal(t, GapUnavailable, g.GapToLeader(1).Kind)
	assert.Equal(t, GapTime, g.GapToLeader(2).Kind)
}

func TestGapSingleLeaderInvariant(t *testing.T) {
	g := NewGapEngine()
	entries := []*EntityProgress{
		seqEntry(1, 10.0, 22.0),
		seqEntry(2, 10.5, 22.6),
		seqEntry(3, 11.0, 23.9),
	}
	g.Recompute(entries)

	leaders := 0
	for _, e := range entries {
		if g.GapToLeader(e.EntityID).Kind == GapLeader {
			leaders++
		}
	}
	assert.Equal(t, 1, leaders, "exactly one Leader tag when the candidate set is non-empty")
}

func TestGapRecomputeIdempotent(t *testing.T) {
	g := NewGapEngine()
	entries := []*EntityProgress{
		seqEntry(1, 10.0, 22.0),
		seqEntry(2, 10.5, 22.6),
		seqEntry(3, 11.0),
	}
	g.Recompute(entries)
	first := map[int]GapValue{}
	for _, e := range entries {
		first[e.EntityID] = g.GapToLeader(e.EntityID)
	}

	g.Recompute(entries)
	for _, e := range entries {
		assert.Equal(t, first[e.EntityID], g.GapToLeader(e.EntityID))
	}
}

func TestGapValueString(t *testing.T) {
	assert.Equal(t, "LEADER", GapValue{Kind: GapLeader}.String())
	assert.Equal(t, "+1.234", GapValue{Kind: GapTime, Seconds: 1.234}.String())
	assert.Equal(t, "-", GapValue{}.String())
}
