package optimizer

import (
	"fmt"
	"math"

	"github.com/kilianp07/routeplan/core/model"
	"github.com/kilianp07/routeplan/core/packing"
	"github.com/kilianp07/routeplan/core/routing"
)

// Config holds the deployment specific planner parameters.
type Config struct {
	// Depot is required. There is no built-in origin.
	Depot        *model.Depot `json:"depot"`
	AvgSpeedKmh  float64      `json:"avg_speed_kmh"`
	StopMinutes  float64      `json:"stop_minutes"`
	SafetyMargin float64      `json:"safety_margin"`
	// Strategy is used when OptimizeRoutes is called without one.
	Strategy string `json:"strategy"`
	// Epsilon is the relative tolerance of capacity comparisons. Unset
	// selects packing.DefaultEpsilon; 0 compares exactly.
	Epsilon *float64 `json:"epsilon"`
	// TwoOpt enables the 2-opt pass after nearest-neighbor construction.
	TwoOpt           bool `json:"two_opt"`
	TwoOptIterations int  `json:"two_opt_iterations"`
	// Workers bounds how many bins are sequenced in parallel. 1 is sequential.
	Workers int `json:"workers"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.AvgSpeedKmh == 0 {
		c.AvgSpeedKmh = routing.DefaultAvgSpeedKmh
	}
	if c.StopMinutes == 0 {
		c.StopMinutes = routing.DefaultStopMinutes
	}
	if c.SafetyMargin == 0 {
		c.SafetyMargin = packing.DefaultSafetyMargin
	}
	if c.Strategy == "" {
		c.Strategy = string(model.StrategyFirstFit)
	}
	if c.Epsilon == nil {
		eps := packing.DefaultEpsilon
		c.Epsilon = &eps
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Depot == nil {
		return &model.InvalidInputError{Field: "depot", Value: nil, Reason: "is required"}
	}
	if err := c.Depot.Validate(); err != nil {
		return err
	}
	if !(c.AvgSpeedKmh > 0) || math.IsInf(c.AvgSpeedKmh, 0) {
		return &model.InvalidInputError{Field: "avg_speed_kmh", Value: c.AvgSpeedKmh, Reason: "must be positive"}
	}
	if c.StopMinutes < 0 {
		return &model.InvalidInputError{Field: "stop_minutes", Value: c.StopMinutes, Reason: "must not be negative"}
	}
	if !(c.SafetyMargin > 0 && c.SafetyMargin <= 1) {
		return &model.InvalidInputError{Field: "safety_margin", Value: c.SafetyMargin, Reason: "must be in (0,1]"}
	}
	if _, err := model.ParseStrategy(c.Strategy); err != nil {
		return err
	}
	if c.Epsilon != nil && (*c.Epsilon < 0 || *c.Epsilon > 1e-2) {
		return &model.InvalidInputError{Field: "epsilon", Value: *c.Epsilon, Reason: "must be in [0,0.01]"}
	}
	if c.TwoOptIterations < 0 {
		return &model.InvalidInputError{Field: "two_opt_iterations", Value: c.TwoOptIterations, Reason: "must not be negative"}
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers=%d: must be at least 1", model.ErrInvalidInput, c.Workers)
	}
	return nil
}
