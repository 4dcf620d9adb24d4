package replay

import "testing"

func ledgerWithEntities(t *testing.T, ids ...int) (*TelemetryStore, *Ledger) {
	t.Helper()
	store := NewTelemetryStore()
	for _, id := range ids {
		err := store.AddEntity(Entity{ID: id}, []Sample{{T: 0}, {T: 1000, X: 1}})
		if err != nil {
			t.Fatal(err)
		}
	}
	return store, NewLedger(store, 0, 0)
}

func miniCrossing(entity int, at float64) Crossing {
	return Crossing{
		Gate:      GateID{Kind: GateMiniSector, Index: 3},
		EntityID:  entity,
		Time:      at,
		Direction: 1,
	}
}

func TestAdmitDebouncesSameGate(t *testing.T) {
	_, l := ledgerWithEntities(t, 1)

	// Two crossings of the same gate 0.1s apart: only the first counts.
	if !l.Admit(miniCrossing(1, 10.0)) {
		t.Fatal("first crossing rejected")
	}
	if l.Admit(miniCrossing(1, 10.1)) {
		t.Fatal("crossing within the debounce interval accepted")
	}
	if !l.Admit(miniCrossing(1, 14.5)) {
		t.Fatal("crossing past the debounce interval rejected")
	}
}

func TestAdmitDebouncePerGatePerEntity(t *testing.T) {
	_, l := ledgerWithEntities(t, 1, 2)

	if !l.Admit(miniCrossing(1, 10.0)) {
		t.Fatal("first crossing rejected")
	}
	// Different entity, same gate: independent debounce.
	if !l.Admit(miniCrossing(2, 10.1)) {
		t.Error("other entity debounced by entity 1's crossing")
	}
	// Same entity, different gate: independent debounce.
	other := miniCrossing(1, 10.2)
	other.Gate.Index = 4
	if !l.Admit(other) {
		t.Error("other gate debounced by gate 3's crossing")
	}
}

func TestAdmitStartDelay(t *testing.T) {
	_, l := ledgerWithEntities(t, 1)
	if l.Admit(miniCrossing(1, 0.5)) {
		t.Error("crossing within the start delay accepted")
	}
	if !l.Admit(miniCrossing(1, 1.5)) {
		t.Error("crossing after the start delay rejected")
	}
}

func TestApplyMiniSectorCountsAndReveals(t *testing.T) {
	_, l := ledgerWithEntities(t, 1)
	e := l.Entry(1)

	if l.ApplyMiniSector(miniCrossing(1, 10.0), false) {
		t.Error("pre-green crossing must not be gap relevant")
	}
	if e.MiniSectorCount != 1 || !e.Revealed {
		t.Errorf("count=%d revealed=%v after first crossing", e.MiniSectorCount, e.Revealed)
	}
	if len(e.MiniSeqTimes) != 0 {
		t.Error("pre-green crossing appended to MiniSeqTimes")
	}

	if !l.ApplyMiniSector(miniCrossing(1, 20.0), true) {
		t.Error("post-green crossing should be gap relevant")
	}
	if len(e.MiniSeqTimes) != 1 || e.MiniSeqTimes[0] != 20.0 {
		t.Errorf("MiniSeqTimes = %v", e.MiniSeqTimes)
	}
}

func TestMiniSeqTimesStrictlyIncreasing(t *testing.T) {
	_, l := ledgerWithEntities(t, 1)
	l.ApplyMiniSector(miniCrossing(1, 20.0), true)
	l.ApplyMiniSector(miniCrossing(1, 20.0), true)
	l.ApplyMiniSector(miniCrossing(1, 19.0), true)

	e := l.Entry(1)
	if len(e.MiniSeqTimes) != 1 {
		t.Fatalf("MiniSeqTimes = %v, want single entry", e.MiniSeqTimes)
	}
	if e.MiniSectorCount != 3 {
		t.Errorf("raw count = %d, want 3 (count always advances)", e.MiniSectorCount)
	}
}

func TestBaselineCapture(t *testing.T) {
	_, l := ledgerWithEntities(t, 1)
	e := l.Entry(1)

	l.ApplyMiniSector(miniCrossing(1, 10.0), false)
	l.ApplyMiniSector(miniCrossing(1, 15.0), false)
	if e.RawProgress() != 0 {
		t.Errorf("raw progress before baseline = %d, want 0", e.RawProgress())
	}

	l.CaptureBaselines()
	if e.MiniSectorBaseline != 2 {
		t.Errorf("baseline = %d, want 2", e.MiniSectorBaseline)
	}
	if e.RawProgress() != 0 {
		t.Errorf("raw progress at green = %d, want 0", e.RawProgress())
	}

	l.ApplyMiniSector(miniCrossing(1, 20.0), true)
	if e.RawProgress() != 1 {
		t.Errorf("raw progress = %d, want 1", e.RawProgress())
	}

	// Idempotent: a second capture must not move the baseline.
	l.CaptureBaselines()
	if e.MiniSectorBaseline != 2 {
		t.Errorf("baseline moved on recapture: %d", e.MiniSectorBaseline)
	}
}

func TestApplyStartFinish(t *testing.T) {
	_, l := ledgerWithEntities(t, 1)
	if lap := l.ApplyStartFinish(Crossing{Gate: GateID{Kind: GateStartFinish}, EntityID: 1, Time: 100}); lap != 1 {
		t.Errorf("lap = %d, want 1", lap)
	}
	if lap := l.ApplyStartFinish(Crossing{Gate: GateID{Kind: GateStartFinish}, EntityID: 1, Time: 190}); lap != 2 {
		t.Errorf("lap = %d, want 2", lap)
	}
	e := l.Entry(1)
	if len(e.LapTimes) != 2 || e.LapTimes[1] != 190 {
		t.Errorf("LapTimes = %v", e.LapTimes)
	}
}
