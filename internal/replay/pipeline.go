package replay

import "sort"

// PipelineConfig holds the tuning scalars of the replay engine.
type PipelineConfig struct {
	FinalLap         int     // lap number at which the race ends
	CrossingDebounce float64 // seconds; same-gate same-entity suppression
	StartDelay       float64 // seconds of timeline start suppression
	SmoothingTau     float64 // display smoothing time constant; 0 disables
	Gate             GateConfig
}

// DefaultPipelineConfig returns the stock engine tuning.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		FinalLap:         72,
		CrossingDebounce: DefaultCrossingDebounce,
		StartDelay:       DefaultStartDelay,
		SmoothingTau:     DefaultSmoothingTau,
		Gate:             DefaultGateConfig(),
	}
}

// StandingRow is one leaderboard line in a snapshot.
type StandingRow struct {
	Position      int
	EntityID      int
	Label         string
	Team          string
	Colour        string
	Lap           int
	Status        Status
	FinalPosition int // set once frozen
	GapToLeader   GapValue
	GapToAhead    GapValue
	TyreCompound  string
	TyreAge       int
}

// EntityFrame is the per-entity positional output of one tick.
type EntityFrame struct {
	EntityID    int
	Raw         Vec2
	Smoothed    Vec2
	HasPosition bool
}

// Snapshot is the read-only state published after every tick. A
// rendering pass must treat it as immutable; it shares nothing with the
// pipeline's internal maps.
type Snapshot struct {
	RaceTime    float64
	BoardTime   float64
	CarTime     float64
	Speed       float64
	Playing     bool
	RaceStarted bool
	AfterGreen  bool
	Finished    bool

	Standings      []StandingRow
	Frames         []EntityFrame
	PositionsByLap map[int]map[int]int // lap → entity → position
}

// Pipeline runs the strict per-tick sequence: clock advance, crossing
// detection for every entity in declaration order, retirement checks,
// ranking, gap recomputation, freeze commits, snapshot. It is the
// single writer of all ledger, gap and status state.
type Pipeline struct {
	store   *TelemetryStore
	clock   *Clock
	sampler *PositionSampler
	gates   TrackGates
	ledger  *Ledger
	gaps    *GapEngine
	board   *StatusBoard
	cfg     PipelineConfig

	entities []Entity

	prevPos     map[int]Vec2
	hasPrev     map[int]bool
	prevCarTime float64

	greenLatched bool
	startLatched bool

	positionsByLap map[int]map[int]int
	lastHistoryLap int

	last Snapshot
}

// NewPipeline derives the track gates and wires the full engine. The
// clock starts paused; callers drive it via Clock().
func NewPipeline(store *TelemetryStore, clockCfg ClockConfig, ref GateReference, cfg PipelineConfig) *Pipeline {
	p := &Pipeline{
		store:          store,
		clock:          NewClock(clockCfg),
		sampler:        NewPositionSampler(store, cfg.SmoothingTau),
		gates:          DeriveTrackGates(store, ref, cfg.Gate),
		ledger:         NewLedger(store, cfg.CrossingDebounce, cfg.StartDelay),
		gaps:           NewGapEngine(),
		board:          NewStatusBoard(store, cfg.FinalLap),
		cfg:            cfg,
		entities:       store.Entities(),
		prevPos:        make(map[int]Vec2),
		hasPrev:        make(map[int]bool),
		positionsByLap: make(map[int]map[int]int),
	}
	p.prevCarTime = p.clock.CarTime()
	p.last = p.buildSnapshot(nil, nil)
	return p
}

// Clock exposes the replay clock for play/pause/speed control.
func (p *Pipeline) Clock() *Clock { return p.clock }

// Gates returns the derived gate set.
func (p *Pipeline) Gates() TrackGates { return p.gates }

// Ledger exposes the progress records for analysis consumers.
func (p *Pipeline) Ledger() *Ledger { return p.ledger }

// Tick advances the engine by dt wall seconds and returns the new
// snapshot. All updates happen synchronously; ticking with a paused
// clock re-evaluates to an identical snapshot.
func (p *Pipeline) Tick(dt float64) Snapshot {
	p.clock.Advance(dt)
	carT := p.clock.CarTime()
	boardT := p.clock.BoardTime()
	simDt := carT - p.prevCarTime

	if !p.greenLatched && p.clock.AfterGreen() {
		p.greenLatched = true
		p.ledger.CaptureBaselines()
	}
	if !p.startLatched && p.clock.RaceStarted() {
		p.startLatched = true
		p.board.NoteRaceStarted()
	}

	frames := make([]EntityFrame, 0, len(p.entities))
	gapDirty := false

	for _, e := range p.entities {
		cur, ok := p.sampler.SampleAt(e.ID, carT)
		if !ok {
			frames = append(frames, EntityFrame{EntityID: e.ID})
			continue
		}

		if p.hasPrev[e.ID] && p.board.Status(e.ID) != StatusFrozen {
			if p.processCrossings(e.ID, p.prevPos[e.ID], cur, p.prevCarTime, carT) {
				gapDirty = true
			}
		}
		p.prevPos[e.ID] = cur
		p.hasPrev[e.ID] = true

		frames = append(frames, EntityFrame{
			EntityID:    e.ID,
			Raw:         cur,
			Smoothed:    p.sampler.Smooth(e.ID, cur, simDt),
			HasPosition: true,
		})
	}
	p.prevCarTime = carT

	// Retirements fire on board time.
	for _, e := range p.entities {
		if t, ok := p.store.RetirementTime(e.ID); ok && boardT >= t {
			p.board.NoteRetirement(e.ID)
		}
	}

	order := p.rankedOrder()
	positions := make(map[int]int, len(order))
	for i, ep := range order {
		positions[ep.EntityID] = i + 1
	}

	if gapDirty {
		p.gaps.Recompute(order)
	}

	// A retired entity classified last freezes without waiting for a
	// crossing it may never make.
	if n := len(order); n > 0 {
		lastID := order[n-1].EntityID
		if p.board.Status(lastID) == StatusDNF {
			p.board.FreezeDNFLast(lastID)
		}
	}
	p.board.CommitFreezes(positions)

	p.captureLapHistory(order, positions)

	p.last = p.buildSnapshot(order, frames)
	return p.last
}

// Snapshot returns the most recently published snapshot.
func (p *Pipeline) Snapshot() Snapshot { return p.last }

// processCrossings runs every derived gate against one entity's
// movement segment. Returns true when a gap-relevant crossing was
// applied.
func (p *Pipeline) processCrossings(entityID int, prev, cur Vec2, t0, t1 float64) bool {
	afterGreen := p.greenLatched
	dirty := false

	for i := range p.gates.MiniSectors {
		g := p.gates.MiniSectors[i]
		c, ok := DetectCrossing(g, entityID, prev, cur, t0, t1)
		if !ok || c.Direction < 0 {
			// Backward crossings (spins) are ignored for counting.
			continue
		}
		if !p.ledger.Admit(c) {
			continue
		}
		if p.ledger.ApplyMiniSector(c, afterGreen) {
			dirty = true
		}
		p.board.NoteMiniSector(entityID, p.startLatched)
	}

	if p.gates.StartFinish != nil && afterGreen {
		if c, ok := DetectCrossing(*p.gates.StartFinish, entityID, prev, cur, t0, t1); ok && c.Direction > 0 {
			if p.ledger.Admit(c) {
				lap := p.ledger.ApplyStartFinish(c)
				p.board.NoteStartFinish(entityID, p.board.DisplayLap(entityID, lap))
			}
		}
	}

	if p.gates.PitEntry != nil {
		if c, ok := DetectCrossing(*p.gates.PitEntry, entityID, prev, cur, t0, t1); ok {
			if p.ledger.Admit(c) {
				p.board.NotePitEntry(entityID)
			}
		}
	}

	return dirty
}

// rankedOrder builds the leaderboard sequence: the progress comparator
// orders the field, then frozen entities are pinned at their committed
// final positions with everyone else filling the remaining slots in
// order.
func (p *Pipeline) rankedOrder() []*EntityProgress {
	ranked := Rank(p.ledger.Entries())
	n := len(ranked)
	if n == 0 {
		return ranked
	}

	type pinned struct {
		entry *EntityProgress
		pos   int
	}
	var frozen []pinned
	var moving []*EntityProgress
	for _, ep := range ranked {
		if fp, ok := p.board.FinalPosition(ep.EntityID); ok {
			frozen = append(frozen, pinned{entry: ep, pos: fp})
		} else {
			moving = append(moving, ep)
		}
	}
	if len(frozen) == 0 {
		return ranked
	}
	sort.SliceStable(frozen, func(i, j int) bool { return frozen[i].pos < frozen[j].pos })

	out := make([]*EntityProgress, n)
	for _, f := range frozen {
		slot := f.pos - 1
		if slot < 0 {
			slot = 0
		}
		if slot >= n {
			slot = n - 1
		}
		for slot < n && out[slot] != nil {
			slot++
		}
		if slot >= n {
			for slot = n - 1; slot >= 0 && out[slot] != nil; slot-- {
			}
		}
		if slot >= 0 && slot < n {
			out[slot] = f.entry
		}
	}
	mi := 0
	for i := range out {
		if out[i] == nil && mi < len(moving) {
			out[i] = moving[mi]
			mi++
		}
	}
	return out
}

// captureLapHistory records the full position map once per completed
// leader lap, for historical charting.
func (p *Pipeline) captureLapHistory(order []*EntityProgress, positions map[int]int) {
	if len(order) == 0 {
		return
	}
	leaderLap := order[0].LapCount
	if leaderLap <= p.lastHistoryLap {
		return
	}
	snap := make(map[int]int, len(positions))
	for id, pos := range positions {
		snap[id] = pos
	}
	p.positionsByLap[leaderLap] = snap
	p.lastHistoryLap = leaderLap
}

func (p *Pipeline) buildSnapshot(order []*EntityProgress, frames []EntityFrame) Snapshot {
	s := Snapshot{
		RaceTime:    p.clock.RaceTime(),
		BoardTime:   p.clock.BoardTime(),
		CarTime:     p.clock.CarTime(),
		Speed:       p.clock.Speed(),
		Playing:     p.clock.Playing(),
		RaceStarted: p.startLatched,
		AfterGreen:  p.greenLatched,
		Finished:    p.board.RaceFinishTriggered(),
		Frames:      frames,
	}

	byID := make(map[int]Entity, len(p.entities))
	for _, e := range p.entities {
		byID[e.ID] = e
	}

	s.Standings = make([]StandingRow, 0, len(order))
	for i, ep := range order {
		e := byID[ep.EntityID]
		row := StandingRow{
			Position:    i + 1,
			EntityID:    ep.EntityID,
			Label:       e.Label,
			Team:        e.Team,
			Colour:      e.Colour,
			Lap:         p.board.DisplayLap(ep.EntityID, ep.LapCount),
			Status:      p.board.Status(ep.EntityID),
			GapToLeader: p.gaps.GapToLeader(ep.EntityID),
			GapToAhead:  p.gaps.GapToAhead(ep.EntityID),
		}
		if fp, ok := p.board.FinalPosition(ep.EntityID); ok {
			row.FinalPosition = fp
		}
		if st, ok := p.store.StintForLap(ep.EntityID, row.Lap); ok {
			row.TyreCompound = st.Compound
			row.TyreAge = st.StartingAge + (row.Lap - st.LapStart)
		}
		s.Standings = append(s.Standings, row)
	}

	s.PositionsByLap = make(map[int]map[int]int, len(p.positionsByLap))
	for lap, m := range p.positionsByLap {
		cp := make(map[int]int, len(m))
		for id, pos := range m {
			cp[id] = pos
		}
		s.PositionsByLap[lap] = cp
	}
	return s
}

// FinalClassification returns the frozen field ordered by final
// position. ok is false until every ranked entity is frozen; entities
// that never revealed are silently absent, as in the live ranking.
func (p *Pipeline) FinalClassification() ([]StandingRow, bool) {
	if len(p.last.Standings) == 0 {
		return nil, false
	}
	for _, row := range p.last.Standings {
		if row.Status != StatusFrozen {
			return nil, false
		}
	}
	rows := append([]StandingRow(nil), p.last.Standings...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].FinalPosition < rows[j].FinalPosition })
	return rows, true
}
