package replay

// Speed multiplier limits for the replay clock.
const (
	MinSpeedMultiplier = 1.0
	MaxSpeedMultiplier = 20.0
)

// ClockConfig fixes the absolute-time frame of a replay.
type ClockConfig struct {
	// StartOffset is the absolute session time (seconds of day) that
	// corresponds to raceTime zero.
	StartOffset float64
	// BoardCalibration shifts the board absolute time used by the
	// leaderboard and gap logic.
	BoardCalibration float64
	// CarCalibration shifts the car absolute time used for position
	// interpolation.
	CarCalibration float64
	// RaceStart is the absolute time of the green flag.
	RaceStart float64
}

// Clock advances a monotonic race time while playing and derives the
// two absolute simulation times from it. Board and car time carry
// separate calibration offsets, so "cars are moving past the start
// line" and "the board begins counting" may flip at slightly different
// instants.
type Clock struct {
	cfg      ClockConfig
	raceTime float64
	speed    float64
	playing  bool
}

// NewClock creates a paused clock at race time zero with speed 1.
func NewClock(cfg ClockConfig) *Clock {
	return &Clock{cfg: cfg, speed: MinSpeedMultiplier}
}

// Advance moves race time forward by dt seconds of wall time, scaled by
// the speed multiplier. A paused clock does not move. Returns the new
// race time.
func (c *Clock) Advance(dt float64) float64 {
	if c.playing && dt > 0 {
		c.raceTime += dt * c.speed
	}
	return c.raceTime
}

// Play starts clock advancement.
func (c *Clock) Play() { c.playing = true }

// Pause stops clock advancement. All derived state stays valid and
// idempotent at the frozen race time.
func (c *Clock) Pause() { c.playing = false }

// Playing reports whether the clock is advancing.
func (c *Clock) Playing() bool { return c.playing }

// SetSpeed sets the speed multiplier, clamped to [1,20].
func (c *Clock) SetSpeed(speed float64) {
	if speed < MinSpeedMultiplier {
		speed = MinSpeedMultiplier
	}
	if speed > MaxSpeedMultiplier {
		speed = MaxSpeedMultiplier
	}
	c.speed = speed
}

// Speed returns the current speed multiplier.
func (c *Clock) Speed() float64 { return c.speed }

// RaceTime returns the accumulated race time in seconds.
func (c *Clock) RaceTime() float64 { return c.raceTime }

// BoardTime returns the absolute time driving leaderboard and gap
// logic.
func (c *Clock) BoardTime() float64 {
	return c.cfg.StartOffset + c.raceTime + c.cfg.BoardCalibration
}

// CarTime returns the absolute time driving position interpolation.
func (c *Clock) CarTime() float64 {
	return c.cfg.StartOffset + c.raceTime + c.cfg.CarCalibration
}

// AfterGreen reports whether car time has reached the green flag.
func (c *Clock) AfterGreen() bool {
	return c.CarTime() >= c.cfg.RaceStart
}

// RaceStarted reports whether board time has reached the green flag.
func (c *Clock) RaceStarted() bool {
	return c.BoardTime() >= c.cfg.RaceStart
}
