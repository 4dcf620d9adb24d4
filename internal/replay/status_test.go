package replay

import "testing"

func boardWithEntities(t *testing.T, finalLap int, ids ...int) *StatusBoard {
	t.Helper()
	store := NewTelemetryStore()
	for _, id := range ids {
		if err := store.AddEntity(Entity{ID: id}, []Sample{{T: 0}}); err != nil {
			t.Fatal(err)
		}
	}
	return NewStatusBoard(store, finalLap)
}

func TestStatusInitialFormationToRacing(t *testing.T) {
	b := boardWithEntities(t, 72, 1, 2)
	if b.Status(1) != StatusFormation {
		t.Fatalf("initial status = %v, want FORMATION", b.Status(1))
	}
	b.NoteRaceStarted()
	if b.Status(1) != StatusRacing || b.Status(2) != StatusRacing {
		t.Error("entities should be RACING after the green flag")
	}
}

func TestStatusPitOverlayClearsOnMiniSector(t *testing.T) {
	b := boardWithEntities(t, 72, 1)
	b.NoteRaceStarted()

	b.NotePitEntry(1)
	if b.Status(1) != StatusPit {
		t.Fatalf("status = %v, want PIT", b.Status(1))
	}
	b.NoteMiniSector(1, true)
	if b.Status(1) != StatusRacing {
		t.Errorf("status = %v, want RACING after minisector crossing", b.Status(1))
	}
}

func TestStatusDNFIrreversible(t *testing.T) {
	b := boardWithEntities(t, 72, 1)
	b.NoteRaceStarted()
	b.NoteRetirement(1)
	if b.Status(1) != StatusDNF {
		t.Fatalf("status = %v, want DNF", b.Status(1))
	}
	// Pit and minisector events no longer move the state.
	b.NotePitEntry(1)
	b.NoteMiniSector(1, true)
	if b.Status(1) != StatusDNF {
		t.Errorf("status = %v, DNF must be sticky", b.Status(1))
	}
}

func TestStatusFreezeOnFinalLap(t *testing.T) {
	b := boardWithEntities(t, 3, 1, 2)
	b.NoteRaceStarted()

	b.NoteStartFinish(1, 3)
	if !b.RaceFinishTriggered() {
		t.Fatal("race finish should trigger on the final lap")
	}
	b.CommitFreezes(map[int]int{1: 1, 2: 2})

	if b.Status(1) != StatusFrozen {
		t.Fatalf("status = %v, want FROZEN", b.Status(1))
	}
	if pos, ok := b.FinalPosition(1); !ok || pos != 1 {
		t.Errorf("final position = %d,%v, want 1,true", pos, ok)
	}
	// Entity 2 waits for its own next start/finish crossing.
	if b.Status(2) == StatusFrozen {
		t.Error("entity 2 frozen without its own crossing")
	}
}

func TestStatusCascadeFreezesOnNextCrossing(t *testing.T) {
	b := boardWithEntities(t, 3, 1, 2)
	b.NoteRaceStarted()

	b.NoteStartFinish(1, 3)
	b.CommitFreezes(map[int]int{1: 1, 2: 2})

	// Entity 2 is two laps down; its next crossing freezes it at its
	// current position regardless of lap number.
	b.NoteStartFinish(2, 1)
	b.CommitFreezes(map[int]int{1: 1, 2: 2})

	if b.Status(2) != StatusFrozen {
		t.Fatalf("status = %v, want FROZEN after chequered-flag crossing", b.Status(2))
	}
	if pos, _ := b.FinalPosition(2); pos != 2 {
		t.Errorf("final position = %d, want 2", pos)
	}
}

func TestStatusFrozenIsTerminal(t *testing.T) {
	b := boardWithEntities(t, 3, 1)
	b.NoteRaceStarted()
	b.NoteStartFinish(1, 3)
	b.CommitFreezes(map[int]int{1: 4})

	b.NotePitEntry(1)
	b.NoteRetirement(1)
	b.NoteStartFinish(1, 9)
	b.CommitFreezes(map[int]int{1: 1})

	if b.Status(1) != StatusFrozen {
		t.Errorf("status = %v, FROZEN must be terminal", b.Status(1))
	}
	if pos, _ := b.FinalPosition(1); pos != 4 {
		t.Errorf("final position changed to %d, want 4", pos)
	}
}

func TestStatusFreezeDNFLast(t *testing.T) {
	b := boardWithEntities(t, 72, 1, 2)
	b.NoteRaceStarted()
	b.NoteRetirement(2)

	b.FreezeDNFLast(2)
	b.CommitFreezes(map[int]int{1: 1, 2: 2})

	if b.Status(2) != StatusFrozen {
		t.Fatalf("status = %v, want FROZEN for last-classified DNF", b.Status(2))
	}
	// Only applies to DNF entities.
	b.FreezeDNFLast(1)
	b.CommitFreezes(map[int]int{1: 1})
	if b.Status(1) == StatusFrozen {
		t.Error("racing entity frozen by the DNF-last rule")
	}
}

func TestStatusDisplayLap(t *testing.T) {
	store := NewTelemetryStore()
	if err := store.AddEntity(Entity{ID: 1}, []Sample{{T: 0}}); err != nil {
		t.Fatal(err)
	}
	if err := store.AddEntity(Entity{ID: 2}, []Sample{{T: 0}}); err != nil {
		t.Fatal(err)
	}
	store.SetStartedInPit(2, true)
	b := NewStatusBoard(store, 72)

	if got := b.DisplayLap(1, 0); got != 1 {
		t.Errorf("lap 0 displays as %d, want 1", got)
	}
	if got := b.DisplayLap(1, 5); got != 5 {
		t.Errorf("lap 5 displays as %d, want 5", got)
	}
	if got := b.DisplayLap(2, 5); got != 6 {
		t.Errorf("pit starter lap 5 displays as %d, want 6", got)
	}
}

func TestStatusAllFrozen(t *testing.T) {
	b := boardWithEntities(t, 3, 1, 2)
	b.NoteRaceStarted()
	if b.AllFrozen() {
		t.Fatal("AllFrozen true with racing entities")
	}
	b.NoteStartFinish(1, 3)
	b.NoteStartFinish(2, 3)
	b.CommitFreezes(map[int]int{1: 1, 2: 2})
	if !b.AllFrozen() {
		t.Error("AllFrozen false after every entity froze")
	}
}

func TestCommitFreezeWithoutRankKeepsPending(t *testing.T) {
	b := boardWithEntities(t, 3, 1)
	b.NoteRaceStarted()
	b.NoteStartFinish(1, 3)

	// No rank available this tick: the request carries over.
	b.CommitFreezes(map[int]int{})
	if b.Status(1) == StatusFrozen {
		t.Fatal("frozen without a committed position")
	}
	b.CommitFreezes(map[int]int{1: 5})
	if pos, _ := b.FinalPosition(1); pos != 5 {
		t.Errorf("final position = %d, want 5", pos)
	}
}
