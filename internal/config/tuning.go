package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/baenzigerbear/f1-race-replay/internal/replay"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/replay.defaults.json"

// TuningConfig represents the root configuration for replay tuning
// parameters. The schema matches the /api/replay/params endpoint so the
// same JSON can be used for both startup configuration and runtime
// updates.
type TuningConfig struct {
	// Race params
	FinalLap *int `json:"final_lap,omitempty"`

	// Crossing detection params
	CrossingDebounce *string  `json:"crossing_debounce,omitempty"` // duration string like "4s"
	StartDelay       *string  `json:"start_delay,omitempty"`       // duration string like "1s"
	GateHalfLength   *float64 `json:"gate_half_length,omitempty"`
	GateTolerance    *float64 `json:"gate_tolerance,omitempty"`

	// Presentation params
	SmoothingTau *float64  `json:"smoothing_tau,omitempty"`
	SpeedPresets []float64 `json:"speed_presets,omitempty"`

	// Clock calibration params
	BoardCalibration *float64 `json:"board_calibration,omitempty"`
	CarCalibration   *float64 `json:"car_calibration,omitempty"`

	// Tick loop params
	TickInterval *string `json:"tick_interval,omitempty"` // duration string like "50ms"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under
// the max file size. Fields omitted from the JSON file retain their
// default values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.FinalLap != nil && *c.FinalLap < 1 {
		return fmt.Errorf("final_lap must be at least 1, got %d", *c.FinalLap)
	}

	if c.CrossingDebounce != nil && *c.CrossingDebounce != "" {
		if _, err := time.ParseDuration(*c.CrossingDebounce); err != nil {
			return fmt.Errorf("invalid crossing_debounce '%s': %w", *c.CrossingDebounce, err)
		}
	}

	if c.StartDelay != nil && *c.StartDelay != "" {
		if _, err := time.ParseDuration(*c.StartDelay); err != nil {
			return fmt.Errorf("invalid start_delay '%s': %w", *c.StartDelay, err)
		}
	}

	if c.TickInterval != nil && *c.TickInterval != "" {
		d, err := time.ParseDuration(*c.TickInterval)
		if err != nil {
			return fmt.Errorf("invalid tick_interval '%s': %w", *c.TickInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("tick_interval must be positive, got %s", d)
		}
	}

	if c.GateHalfLength != nil && *c.GateHalfLength <= 0 {
		return fmt.Errorf("gate_half_length must be positive, got %f", *c.GateHalfLength)
	}

	if c.GateTolerance != nil && *c.GateTolerance <= 0 {
		return fmt.Errorf("gate_tolerance must be positive, got %f", *c.GateTolerance)
	}

	if c.SmoothingTau != nil && *c.SmoothingTau < 0 {
		return fmt.Errorf("smoothing_tau must be non-negative, got %f", *c.SmoothingTau)
	}

	for _, s := range c.SpeedPresets {
		if s < replay.MinSpeedMultiplier || s > replay.MaxSpeedMultiplier {
			return fmt.Errorf("speed preset %g outside [%g, %g]", s, replay.MinSpeedMultiplier, replay.MaxSpeedMultiplier)
		}
	}

	return nil
}

// GetFinalLap returns the final_lap value or the default.
func (c *TuningConfig) GetFinalLap() int {
	if c.FinalLap == nil {
		return 72 // default
	}
	return *c.FinalLap
}

// GetCrossingDebounce parses and returns the CrossingDebounce as seconds.
func (c *TuningConfig) GetCrossingDebounce() float64 {
	if c.CrossingDebounce == nil || *c.CrossingDebounce == "" {
		return replay.DefaultCrossingDebounce
	}
	d, err := time.ParseDuration(*c.CrossingDebounce)
	if err != nil {
		return replay.DefaultCrossingDebounce
	}
	return d.Seconds()
}

// GetStartDelay parses and returns the StartDelay as seconds.
func (c *TuningConfig) GetStartDelay() float64 {
	if c.StartDelay == nil || *c.StartDelay == "" {
		return replay.DefaultStartDelay
	}
	d, err := time.ParseDuration(*c.StartDelay)
	if err != nil {
		return replay.DefaultStartDelay
	}
	return d.Seconds()
}

// GetGateHalfLength returns the gate_half_length value or the default.
func (c *TuningConfig) GetGateHalfLength() float64 {
	if c.GateHalfLength == nil {
		return 25.0
	}
	return *c.GateHalfLength
}

// GetGateTolerance returns the gate_tolerance value or the default.
func (c *TuningConfig) GetGateTolerance() float64 {
	if c.GateTolerance == nil {
		return 2.0
	}
	return *c.GateTolerance
}

// GetSmoothingTau returns the smoothing_tau value or the default.
func (c *TuningConfig) GetSmoothingTau() float64 {
	if c.SmoothingTau == nil {
		return replay.DefaultSmoothingTau
	}
	return *c.SmoothingTau
}

// GetSpeedPresets returns the speed_presets value or the default.
func (c *TuningConfig) GetSpeedPresets() []float64 {
	if len(c.SpeedPresets) == 0 {
		return []float64{1, 2, 5, 10, 20}
	}
	return c.SpeedPresets
}

// GetBoardCalibration returns the board_calibration value or the default.
func (c *TuningConfig) GetBoardCalibration() float64 {
	if c.BoardCalibration == nil {
		return 0
	}
	return *c.BoardCalibration
}

// GetCarCalibration returns the car_calibration value or the default.
func (c *TuningConfig) GetCarCalibration() float64 {
	if c.CarCalibration == nil {
		return 0
	}
	return *c.CarCalibration
}

// GetTickInterval parses and returns the TickInterval as a time.Duration.
func (c *TuningConfig) GetTickInterval() time.Duration {
	if c.TickInterval == nil || *c.TickInterval == "" {
		return 50 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.TickInterval)
	if err != nil {
		return 50 * time.Millisecond // default on parse error
	}
	return d
}

// PipelineConfig assembles the engine tuning from the loaded values.
func (c *TuningConfig) PipelineConfig() replay.PipelineConfig {
	return replay.PipelineConfig{
		FinalLap:         c.GetFinalLap(),
		CrossingDebounce: c.GetCrossingDebounce(),
		StartDelay:       c.GetStartDelay(),
		SmoothingTau:     c.GetSmoothingTau(),
		Gate: replay.GateConfig{
			HalfLength: c.GetGateHalfLength(),
			Tolerance:  c.GetGateTolerance(),
		},
	}
}

// ClockConfig assembles the clock configuration for a session. The
// session timeline fixes the start offset and green-flag instant; the
// calibration offsets come from tuning.
func (c *TuningConfig) ClockConfig(startOffset, raceStart float64) replay.ClockConfig {
	return replay.ClockConfig{
		StartOffset:      startOffset,
		BoardCalibration: c.GetBoardCalibration(),
		CarCalibration:   c.GetCarCalibration(),
		RaceStart:        raceStart,
	}
}
