package replay

// Status is the displayed lifecycle state of an entity.
type Status uint8

const (
	// StatusFormation covers movement before official timing begins.
	StatusFormation Status = iota
	// StatusRacing is the normal post-green state.
	StatusRacing
	// StatusPit overlays racing while the pit-entry gate was crossed
	// and no minisector has been crossed since.
	StatusPit
	// StatusDNF marks a retired entity. It keeps its classification
	// slot but no longer races; irreversible for the session.
	StatusDNF
	// StatusFrozen is terminal: the final position is committed and
	// nothing changes it afterwards.
	StatusFrozen
)

// String returns the timing-screen name of the status.
func (s Status) String() string {
	switch s {
	case StatusFormation:
		return "FORMATION"
	case StatusRacing:
		return "RACING"
	case StatusPit:
		return "PIT"
	case StatusDNF:
		return "DNF"
	case StatusFrozen:
		return "FROZEN"
	default:
		return "UNKNOWN"
	}
}

type entityState struct {
	status        Status
	startedInPit  bool
	awaitingFlag  bool
	freezePending bool
	finalPosition int
}

// StatusBoard runs the per-entity status state machine:
//
//	FORMATION → RACING → {PIT, DNF} → FROZEN
//
// All transitions go through the Note* methods; frozen entities ignore
// every further event, which preserves the terminality invariant.
// Freezes are committed in two phases: a crossing (or the DNF-last
// rule) requests the freeze, and CommitFreezes assigns the final
// position once the tick's ranking is known.
type StatusBoard struct {
	finalLap int
	states   map[int]*entityState
	order    []int

	raceFinishTriggered bool
}

// NewStatusBoard creates the board with every entity in FORMATION.
func NewStatusBoard(store *TelemetryStore, finalLap int) *StatusBoard {
	b := &StatusBoard{
		finalLap: finalLap,
		states:   make(map[int]*entityState),
	}
	for _, e := range store.Entities() {
		b.order = append(b.order, e.ID)
		b.states[e.ID] = &entityState{
			status:       StatusFormation,
			startedInPit: store.StartedInPit(e.ID),
		}
	}
	return b
}

// Status returns the entity's current displayed status.
func (b *StatusBoard) Status(entityID int) Status {
	if st := b.states[entityID]; st != nil {
		return st.status
	}
	return StatusFormation
}

// FinalPosition returns the committed final position of a frozen
// entity.
func (b *StatusBoard) FinalPosition(entityID int) (int, bool) {
	st := b.states[entityID]
	if st == nil || st.status != StatusFrozen {
		return 0, false
	}
	return st.finalPosition, true
}

// RaceFinishTriggered reports whether some entity has reached the
// final lap.
func (b *StatusBoard) RaceFinishTriggered() bool { return b.raceFinishTriggered }

// DisplayLap converts a raw lap count into the lap number shown on the
// board: lap zero displays as lap one, and pit-lane starters carry a
// one-lap offset.
func (b *StatusBoard) DisplayLap(entityID, lapCount int) int {
	lap := lapCount
	if lap == 0 {
		lap = 1
	}
	if st := b.states[entityID]; st != nil && st.startedInPit {
		lap++
	}
	return lap
}

// NoteRaceStarted moves every formation entity to RACING when board
// time reaches the green flag.
func (b *StatusBoard) NoteRaceStarted() {
	for _, st := range b.states {
		if st.status == StatusFormation {
			st.status = StatusRacing
		}
	}
}

// NotePitEntry applies an admitted pit-entry crossing. Frozen and
// retired entities ignore it.
func (b *StatusBoard) NotePitEntry(entityID int) {
	st := b.states[entityID]
	if st == nil {
		return
	}
	switch st.status {
	case StatusFormation, StatusRacing:
		st.status = StatusPit
	}
}

// NoteMiniSector clears an active pit overlay on the entity's next
// minisector crossing.
func (b *StatusBoard) NoteMiniSector(entityID int, raceStarted bool) {
	st := b.states[entityID]
	if st == nil || st.status != StatusPit {
		return
	}
	if raceStarted {
		st.status = StatusRacing
	} else {
		st.status = StatusFormation
	}
}

// NoteRetirement flags the entity DNF. Irreversible unless the entity
// is already frozen, in which case the result stands.
func (b *StatusBoard) NoteRetirement(entityID int) {
	st := b.states[entityID]
	if st == nil || st.status == StatusFrozen || st.status == StatusDNF {
		return
	}
	st.status = StatusDNF
}

// NoteStartFinish evaluates the finish rules for an admitted
// start/finish crossing given the entity's displayed lap number. The
// first entity to reach the final lap triggers the race-finish cascade:
// every other non-frozen entity is flagged and freezes on its own next
// start/finish crossing, getting one more full lap as under a real
// chequered flag.
func (b *StatusBoard) NoteStartFinish(entityID, displayLap int) {
	st := b.states[entityID]
	if st == nil || st.status == StatusFrozen {
		return
	}

	if displayLap >= b.finalLap {
		st.freezePending = true
		if !b.raceFinishTriggered {
			b.raceFinishTriggered = true
			for id, other := range b.states {
				if id == entityID || other.status == StatusFrozen {
					continue
				}
				other.awaitingFlag = true
			}
		}
		return
	}

	if st.awaitingFlag {
		st.freezePending = true
	}
}

// FreezeDNFLast requests an immediate freeze for a DNF entity that is
// currently classified last; it does not wait for a crossing it may
// never make.
func (b *StatusBoard) FreezeDNFLast(lastEntityID int) {
	st := b.states[lastEntityID]
	if st == nil || st.status != StatusDNF {
		return
	}
	st.freezePending = true
}

// CommitFreezes finalises all pending freezes using the tick's current
// positions (entity id → 1-based rank). The committed position is
// immutable and the pit overlay is force-cleared by the terminal state.
func (b *StatusBoard) CommitFreezes(positions map[int]int) {
	for id, st := range b.states {
		if !st.freezePending || st.status == StatusFrozen {
			st.freezePending = false
			continue
		}
		pos, ok := positions[id]
		if !ok {
			// No rank this tick; keep the request for the next one.
			continue
		}
		st.status = StatusFrozen
		st.finalPosition = pos
		st.freezePending = false
		st.awaitingFlag = false
	}
}

// AllFrozen reports whether every entity has reached the terminal
// state.
func (b *StatusBoard) AllFrozen() bool {
	for _, st := range b.states {
		if st.status != StatusFrozen {
			return false
		}
	}
	return true
}
