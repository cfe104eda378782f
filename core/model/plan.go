package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Strategy names the bin selection rule used when packing vehicle loads.
type Strategy string

const (
	// StrategyFirstFit places an item into the earliest created bin with room.
	StrategyFirstFit Strategy = "FIRST_FIT"
	// StrategyBestFit places an item into the bin left tightest after placement.
	StrategyBestFit Strategy = "BEST_FIT"
)

// ParseStrategy accepts the canonical names as well as lower-case and
// dashed variants ("first-fit", "best_fit").
func ParseStrategy(s string) (Strategy, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	switch Strategy(norm) {
	case StrategyFirstFit, "FFD", "FIRST_FIT_DECREASING":
		return StrategyFirstFit, nil
	case StrategyBestFit, "BFD", "BEST_FIT_DECREASING":
		return StrategyBestFit, nil
	}
	return "", &InvalidInputError{Field: "strategy", Value: s, Reason: fmt.Sprintf("expected %s or %s", StrategyFirstFit, StrategyBestFit)}
}

func (s Strategy) String() string { return string(s) }

// Bin is one vehicle load. Bins are plain values owned by the packer's slice
// and addressed by index.
type Bin struct {
	Index          int            `json:"index"`
	Items          []DeliveryItem `json:"items"`
	WeightKg       float64        `json:"weight_kg"`
	RemainingKg    float64        `json:"remaining_kg"`
	ItemCount      int            `json:"item_count"`
	UtilizationPct float64        `json:"utilization_pct"`
	Overloaded     bool           `json:"overloaded"`
}

// RouteStop is a delivery item placed in the visiting order of a route.
type RouteStop struct {
	Item               DeliveryItem `json:"item"`
	Sequence           int          `json:"sequence"`
	DistanceFromPrevKm float64      `json:"distance_from_prev_km"`
	DistanceToNextKm   float64      `json:"distance_to_next_km"`
	CumulativeKm       float64      `json:"cumulative_km"`
	CumulativeWeightKg float64      `json:"cumulative_weight_kg"`
}

// RoutePlan is the closed depot-to-depot circuit computed for one bin.
// Every distance is rounded to two decimals on its own, from the unrounded
// values. Summing the rounded legs and ReturnLegKm may therefore differ from
// TotalDistanceKm by up to 0.005 km per leg.
type RoutePlan struct {
	BinIndex         int            `json:"bin_index"`
	Stops            []RouteStop    `json:"stops"`
	TotalDistanceKm  float64        `json:"total_distance_km"`
	ReturnLegKm      float64        `json:"return_leg_km"`
	EstimatedMinutes int            `json:"estimated_minutes"`
	StopCount        int            `json:"stop_count"`
	TotalWeightKg    float64        `json:"total_weight_kg"`
	Unassigned       []DeliveryItem `json:"unassigned,omitempty"`
	UnassignedCount  int            `json:"unassigned_count"`
	BinWeightKg      float64        `json:"bin_weight_kg"`
	UtilizationPct   float64        `json:"utilization_pct"`
	Overloaded       bool           `json:"overloaded"`
}

// MultiRoutePlan aggregates the routes of every vehicle for one batch.
type MultiRoutePlan struct {
	PlanID            string      `json:"plan_id"`
	GeneratedAt       time.Time   `json:"generated_at"`
	Strategy          Strategy    `json:"strategy"`
	VehicleCapacityKg float64     `json:"vehicle_capacity_kg"`
	SafetyMargin      float64     `json:"safety_margin"`
	Depot             Depot       `json:"depot"`
	Routes            []RoutePlan `json:"routes"`
	BinCount          int         `json:"bin_count"`
	TotalItems        int         `json:"total_items"`
	TotalWeightKg     float64     `json:"total_weight_kg"`
	TotalDistanceKm   float64     `json:"total_distance_km"`
	TotalMinutes      int         `json:"total_minutes"`
	AvgUtilizationPct float64     `json:"avg_utilization_pct"`
	OverloadedCount   int         `json:"overloaded_count"`
	UnassignedCount   int         `json:"unassigned_count"`
}

// ItemIDs returns the identifiers of every stop followed by every unassigned
// item of the route.
func (r RoutePlan) ItemIDs() []string {
	ids := make([]string, 0, len(r.Stops)+len(r.Unassigned))
	for _, s := range r.Stops {
		ids = append(ids, s.Item.ID)
	}
	for _, it := range r.Unassigned {
		ids = append(ids, it.ID)
	}
	return ids
}

// Round2 rounds v to two decimals, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
