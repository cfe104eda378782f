// Package planlog keeps a history of computed plans so operators can look up
// when a delivery was planned and on which route.
package planlog

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/kilianp07/routeplan/core/model"
)

// Record is one planning run as persisted by a Store.
type Record struct {
	PlanID            string         `json:"plan_id"`
	Timestamp         time.Time      `json:"timestamp"`
	Strategy          model.Strategy `json:"strategy"`
	VehicleCapacityKg float64        `json:"vehicle_capacity_kg"`
	Items             int            `json:"items"`
	Bins              int            `json:"bins"`
	TotalDistanceKm   float64        `json:"total_distance_km"`
	TotalMinutes      int            `json:"total_minutes"`
	AvgUtilizationPct float64        `json:"avg_utilization_pct"`
	Overloaded        int            `json:"overloaded"`
	Unassigned        int            `json:"unassigned"`
	DurationMs        float64        `json:"duration_ms"`
	// Routes maps each bin index to its item IDs in visiting order, followed
	// by the unassigned items of that bin.
	Routes map[int][]string `json:"routes"`
}

// NewRecord summarises plan for storage.
func NewRecord(plan model.MultiRoutePlan, elapsed time.Duration) Record {
	rec := Record{
		PlanID:            plan.PlanID,
		Timestamp:         plan.GeneratedAt,
		Strategy:          plan.Strategy,
		VehicleCapacityKg: plan.VehicleCapacityKg,
		Items:             plan.TotalItems,
		Bins:              plan.BinCount,
		TotalDistanceKm:   plan.TotalDistanceKm,
		TotalMinutes:      plan.TotalMinutes,
		AvgUtilizationPct: plan.AvgUtilizationPct,
		Overloaded:        plan.OverloadedCount,
		Unassigned:        plan.UnassignedCount,
		DurationMs:        float64(elapsed.Microseconds()) / 1000,
		Routes:            make(map[int][]string, len(plan.Routes)),
	}
	for _, r := range plan.Routes {
		rec.Routes[r.BinIndex] = r.ItemIDs()
	}
	return rec
}

// HasItem reports whether id was part of the plan.
func (r Record) HasItem(id string) bool {
	for _, ids := range r.Routes {
		if slices.Contains(ids, id) {
			return true
		}
	}
	return false
}

// Query filters records. Zero fields match everything.
type Query struct {
	Start    time.Time
	End      time.Time
	Strategy model.Strategy
	PlanID   string
	ItemID   string
}

// Match reports whether r satisfies q.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Strategy != "" && r.Strategy != q.Strategy {
		return false
	}
	if q.PlanID != "" && r.PlanID != q.PlanID {
		return false
	}
	if q.ItemID != "" && !r.HasItem(q.ItemID) {
		return false
	}
	return true
}

// Store persists plan records.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Config selects and tunes the store backend.
type Config struct {
	// Backend is "jsonl" or "sqlite". An empty Path disables the plan log.
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults applies the jsonl backend when none is set.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
}

// Validate checks the backend name.
func (c Config) Validate() error {
	switch c.Backend {
	case "jsonl", "sqlite":
		return nil
	}
	return fmt.Errorf("plan_log: unknown backend %q", c.Backend)
}

// Open returns the store described by cfg, or nil when cfg.Path is empty.
// A jsonl store rotates when MaxSizeMB is set.
func Open(cfg Config) (Store, error) {
	if cfg.Path == "" {
		return nil, nil
	}
	var (
		st  Store
		err error
	)
	switch cfg.Backend {
	case "", "jsonl":
		if cfg.MaxSizeMB > 0 {
			st, err = NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		} else {
			st, err = NewJSONLStore(cfg.Path)
		}
	case "sqlite":
		st, err = NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("plan_log: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("plan_log: open %s: %w", cfg.Path, err)
	}
	return st, nil
}
