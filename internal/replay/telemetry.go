// Package replay implements the core of the race replay engine: the
// virtual race clock, position interpolation from recorded telemetry,
// gate-crossing detection, per-entity progress and timing bookkeeping,
// leaderboard ranking, minisector-based gap computation and the
// per-entity status state machine.
//
// The package holds no I/O. Telemetry is loaded in full before a replay
// starts and all per-tick updates run synchronously on a single
// pipeline; consumers read published snapshots only.
package replay

import (
	"fmt"
	"sort"
)

// Sample is a single telemetry fix: a seconds-of-day timestamp and a
// world-space position.
type Sample struct {
	T float64 // seconds of day
	X float64
	Y float64
}

// Entity identifies one competitor. Label, team and colour are cosmetic
// and owned by presentation; the core carries them through untouched.
type Entity struct {
	ID     int
	Label  string
	Team   string
	Colour string
}

// Stint is a tyre stint record. The core only resolves the current
// stint from a lap number; stint state itself is not owned here.
type Stint struct {
	EntityID    int
	LapStart    int
	LapEnd      int
	Compound    string
	StartingAge int
}

// Retirement marks an entity as retiring at an absolute timestamp.
type Retirement struct {
	EntityID int
	AtTime   float64
}

// TelemetryStore holds the complete pre-recorded session: per-entity
// sample sequences plus stint and retirement metadata. It is populated
// once at load time and read-only afterwards.
type TelemetryStore struct {
	entities    []Entity
	samples     map[int][]Sample
	stints      map[int][]Stint
	retirements map[int]float64
	startInPit  map[int]bool
}

// NewTelemetryStore creates an empty store.
func NewTelemetryStore() *TelemetryStore {
	return &TelemetryStore{
		samples:     make(map[int][]Sample),
		stints:      make(map[int][]Stint),
		retirements: make(map[int]float64),
		startInPit:  make(map[int]bool),
	}
}

// AddEntity registers an entity together with its full sample sequence.
// Samples are sorted by timestamp and non-advancing duplicates are
// dropped, so a malformed feed degrades to a shorter valid sequence
// instead of failing the load. Entities are ranked and ticked in
// registration order.
func (s *TelemetryStore) AddEntity(e Entity, samples []Sample) error {
	if _, ok := s.samples[e.ID]; ok {
		return fmt.Errorf("entity %d already registered", e.ID)
	}

	cleaned := make([]Sample, len(samples))
	copy(cleaned, samples)
	sort.SliceStable(cleaned, func(i, j int) bool { return cleaned[i].T < cleaned[j].T })

	// Keep strictly increasing timestamps only.
	out := cleaned[:0]
	for _, sm := range cleaned {
		if len(out) > 0 && sm.T <= out[len(out)-1].T {
			continue
		}
		out = append(out, sm)
	}

	s.entities = append(s.entities, e)
	s.samples[e.ID] = out
	return nil
}

// AddStint appends a tyre stint record for an entity.
func (s *TelemetryStore) AddStint(st Stint) {
	s.stints[st.EntityID] = append(s.stints[st.EntityID], st)
}

// AddRetirement records the absolute time at which an entity retires.
func (s *TelemetryStore) AddRetirement(r Retirement) {
	s.retirements[r.EntityID] = r.AtTime
}

// SetStartedInPit marks an entity as starting the race from the pit
// lane. Pit starters get a one-lap offset in the displayed lap number.
func (s *TelemetryStore) SetStartedInPit(entityID int, inPit bool) {
	s.startInPit[entityID] = inPit
}

// StartedInPit reports whether an entity starts from the pit lane.
func (s *TelemetryStore) StartedInPit(entityID int) bool {
	return s.startInPit[entityID]
}

// Entities returns the registered entities in registration order.
func (s *TelemetryStore) Entities() []Entity {
	out := make([]Entity, len(s.entities))
	copy(out, s.entities)
	return out
}

// Samples returns the cleaned sample sequence for an entity. The
// returned slice is shared and must not be mutated.
func (s *TelemetryStore) Samples(entityID int) []Sample {
	return s.samples[entityID]
}

// TimelineStart returns the timestamp of an entity's first sample.
func (s *TelemetryStore) TimelineStart(entityID int) (float64, bool) {
	sm := s.samples[entityID]
	if len(sm) == 0 {
		return 0, false
	}
	return sm[0].T, true
}

// StintForLap resolves the stint covering the given lap number.
func (s *TelemetryStore) StintForLap(entityID, lap int) (Stint, bool) {
	for _, st := range s.stints[entityID] {
		if lap >= st.LapStart && lap <= st.LapEnd {
			return st, true
		}
	}
	return Stint{}, false
}

// RetirementTime returns the configured retirement timestamp for an
// entity, if any.
func (s *TelemetryStore) RetirementTime(entityID int) (float64, bool) {
	t, ok := s.retirements[entityID]
	return t, ok
}
