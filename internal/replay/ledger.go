package replay

// Default detection timing constants, in simulation seconds.
const (
	// DefaultCrossingDebounce is the minimum interval between two
	// accepted crossings of the same gate by the same entity. It
	// suppresses double counts from interpolation jitter near a gate.
	DefaultCrossingDebounce = 4.0
	// DefaultStartDelay suspends detection for the first second of an
	// entity's timeline so formation-lap jitter is not counted.
	DefaultStartDelay = 1.0
)

// EntityProgress is the mutable ledger state for one entity. It is
// owned exclusively by the Ledger and mutated only through crossing
// application; consumers read it via the pipeline snapshot.
type EntityProgress struct {
	EntityID int

	// LapCount is the number of accepted start/finish crossings after
	// the green flag. Monotonically non-decreasing.
	LapCount int
	// LapTimes holds the absolute time of each counted start/finish
	// crossing.
	LapTimes []float64

	// MiniSectorCount counts every accepted minisector crossing,
	// before and after the green flag. Monotonically non-decreasing.
	MiniSectorCount int
	// MiniSectorBaseline is MiniSectorCount captured at the green
	// flag, so post-green progress starts at zero.
	MiniSectorBaseline int
	// BaselineCaptured is true once the green-flag snapshot happened.
	BaselineCaptured bool

	// MiniSeqTimes holds one crossing timestamp per post-green
	// minisector crossing; strictly increasing. This sequence is the
	// basis of gap computation.
	MiniSeqTimes []float64

	// LastMiniCross is the time of the most recent minisector
	// crossing, valid when HasMiniCross is true.
	LastMiniCross float64
	HasMiniCross  bool

	// Revealed flips true on the first minisector crossing and gates
	// participation in ranking, gaps and the leaderboard.
	Revealed bool

	lastGateCross map[GateID]float64
	timelineStart float64
	hasTimeline   bool
}

// RawProgress is the post-green progress used for ranking: minisector
// count minus the green-flag baseline, or zero before the baseline is
// captured.
func (e *EntityProgress) RawProgress() int {
	if !e.BaselineCaptured {
		return 0
	}
	return e.MiniSectorCount - e.MiniSectorBaseline
}

// Ledger owns the per-entity progress records. Entries are created at
// initialisation for every known entity and never deleted during a
// session.
type Ledger struct {
	order    []int
	entries  map[int]*EntityProgress
	debounce float64
	delay    float64
}

// NewLedger creates ledger entries for every entity in the store, in
// registration order. Non-positive debounce and startDelay fall back to
// the package defaults.
func NewLedger(store *TelemetryStore, debounce, startDelay float64) *Ledger {
	if debounce <= 0 {
		debounce = DefaultCrossingDebounce
	}
	if startDelay <= 0 {
		startDelay = DefaultStartDelay
	}
	l := &Ledger{
		entries:  make(map[int]*EntityProgress),
		debounce: debounce,
		delay:    startDelay,
	}
	for _, e := range store.Entities() {
		ep := &EntityProgress{
			EntityID:      e.ID,
			lastGateCross: make(map[GateID]float64),
		}
		if t, ok := store.TimelineStart(e.ID); ok {
			ep.timelineStart = t
			ep.hasTimeline = true
		}
		l.order = append(l.order, e.ID)
		l.entries[e.ID] = ep
	}
	return l
}

// Entry returns the ledger record for an entity, or nil if unknown.
func (l *Ledger) Entry(entityID int) *EntityProgress {
	return l.entries[entityID]
}

// Entries returns all records in entity registration order.
func (l *Ledger) Entries() []*EntityProgress {
	out := make([]*EntityProgress, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.entries[id])
	}
	return out
}

// Admit applies the debounce and start-delay rules to a detected
// crossing and, when accepted, records its time for future debounce
// checks. Geometry has already been validated by DetectCrossing.
func (l *Ledger) Admit(c Crossing) bool {
	e := l.entries[c.EntityID]
	if e == nil {
		return false
	}
	if e.hasTimeline && c.Time-e.timelineStart < l.delay {
		return false
	}
	if last, ok := e.lastGateCross[c.Gate]; ok && c.Time-last < l.debounce {
		return false
	}
	e.lastGateCross[c.Gate] = c.Time
	return true
}

// ApplyMiniSector applies an admitted minisector crossing: the raw
// count always advances and the entity is revealed; after the green
// flag the crossing time also extends the gap-comparison sequence.
// Returns true when the gap sequence changed.
func (l *Ledger) ApplyMiniSector(c Crossing, afterGreen bool) bool {
	e := l.entries[c.EntityID]
	if e == nil {
		return false
	}
	e.MiniSectorCount++
	e.Revealed = true
	e.LastMiniCross = c.Time
	e.HasMiniCross = true

	if !afterGreen {
		return false
	}
	// Keep the sequence strictly increasing even if an admitted
	// crossing carries a non-advancing interpolated time.
	if n := len(e.MiniSeqTimes); n > 0 && c.Time <= e.MiniSeqTimes[n-1] {
		return false
	}
	e.MiniSeqTimes = append(e.MiniSeqTimes, c.Time)
	return true
}

// ApplyStartFinish applies an admitted start/finish crossing and
// returns the new lap count. Only called after the green flag.
func (l *Ledger) ApplyStartFinish(c Crossing) int {
	e := l.entries[c.EntityID]
	if e == nil {
		return 0
	}
	e.LapCount++
	e.LapTimes = append(e.LapTimes, c.Time)
	return e.LapCount
}

// CaptureBaselines snapshots every entity's minisector count at the
// instant the green flag condition becomes true. Idempotent.
func (l *Ledger) CaptureBaselines() {
	for _, e := range l.entries {
		if e.BaselineCaptured {
			continue
		}
		e.MiniSectorBaseline = e.MiniSectorCount
		e.BaselineCaptured = true
	}
}
