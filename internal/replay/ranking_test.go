package replay

import "testing"

func progressEntry(id, count, baseline int, lastCross float64, revealed bool) *EntityProgress {
	e := &EntityProgress{
		EntityID:           id,
		MiniSectorCount:    count,
		MiniSectorBaseline: baseline,
		BaselineCaptured:   true,
		Revealed:           revealed,
	}
	if lastCross > 0 {
		e.LastMiniCross = lastCross
		e.HasMiniCross = true
	}
	return e
}

func rankIDs(entries []*EntityProgress) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.EntityID
	}
	return out
}

func TestRankByProgress(t *testing.T) {
	order := Rank([]*EntityProgress{
		progressEntry(1, 5, 0, 100, true),
		progressEntry(2, 9, 0, 101, true),
		progressEntry(3, 7, 0, 102, true),
	})
	got := rankIDs(order)
	want := []int{2, 3, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestRankTieBreakFirstToReach(t *testing.T) {
	// Equal progress: whoever reached the shared minisector first is
	// further into the next sector and ranks ahead.
	order := Rank([]*EntityProgress{
		progressEntry(1, 6, 0, 105.0, true),
		progressEntry(2, 6, 0, 103.5, true),
	})
	got := rankIDs(order)
	if got[0] != 2 || got[1] != 1 {
		t.Errorf("order = %v, want [2 1]", got)
	}
}

func TestRankExcludesUnrevealed(t *testing.T) {
	order := Rank([]*EntityProgress{
		progressEntry(1, 6, 0, 100, true),
		progressEntry(2, 0, 0, 0, false),
	})
	if len(order) != 1 || order[0].EntityID != 1 {
		t.Errorf("order = %v, want only entity 1", rankIDs(order))
	}
}

func TestRankStableForRemainingTies(t *testing.T) {
	// No crossings recorded at all: registration order is preserved.
	a := &EntityProgress{EntityID: 1, Revealed: true}
	b := &EntityProgress{EntityID: 2, Revealed: true}
	order := Rank([]*EntityProgress{a, b})
	got := rankIDs(order)
	if got[0] != 1 || got[1] != 2 {
		t.Errorf("order = %v, want [1 2]", got)
	}
}

func TestRankCrossedBeatsNeverCrossed(t *testing.T) {
	order := Rank([]*EntityProgress{
		{EntityID: 1, Revealed: true},
		progressEntry(2, 0, 0, 50, true),
	})
	if rankIDs(order)[0] != 2 {
		t.Errorf("entity with a crossing should outrank one without: %v", rankIDs(order))
	}
}
