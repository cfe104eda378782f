// Package routing orders the stops of one vehicle load into a closed circuit
// that starts and ends at the depot.
package routing

import (
	"math"
	"slices"

	"github.com/kilianp07/routeplan/core/geo"
	"github.com/kilianp07/routeplan/core/model"
)

const (
	// DefaultAvgSpeedKmh is used when no average speed is configured.
	DefaultAvgSpeedKmh = 30.0
	// DefaultStopMinutes is the fixed handling time spent at each stop.
	DefaultStopMinutes = 5.0
)

// Sequencer builds a route with the nearest-neighbor heuristic.
type Sequencer struct {
	AvgSpeedKmh float64
	StopMinutes float64
	// Epsilon is the relative tolerance applied to the capacity check.
	Epsilon float64
	// TwoOpt enables a 2-opt improvement pass after construction.
	TwoOpt bool
	// TwoOptIterations bounds the improvement pass. Zero means unbounded.
	TwoOptIterations int
}

// NewSequencer returns a Sequencer with default speed and stop time.
func NewSequencer() *Sequencer {
	return &Sequencer{AvgSpeedKmh: DefaultAvgSpeedKmh, StopMinutes: DefaultStopMinutes, Epsilon: 1e-6}
}

// Sequence visits stops greedily, always moving to the closest unvisited stop
// and breaking ties by first occurrence. Once the next stop would exceed
// vehicleCapacity the remaining stops are returned as unassigned. The route is
// always closed by a leg back to the depot.
func (s *Sequencer) Sequence(stops []model.DeliveryItem, depot model.Location, vehicleCapacity float64) (model.RoutePlan, error) {
	if len(stops) == 0 {
		return model.RoutePlan{}, &model.EmptyInputError{Op: "sequence"}
	}
	if !depot.Valid() {
		return model.RoutePlan{}, &model.InvalidCoordinateError{ItemID: "depot", Lat: depot.Lat, Lon: depot.Lon}
	}
	for _, st := range stops {
		if !st.Location.Valid() {
			return model.RoutePlan{}, &model.InvalidCoordinateError{ItemID: st.ID, Lat: st.Location.Lat, Lon: st.Location.Lon}
		}
	}

	limit := vehicleCapacity + math.Max(0, s.Epsilon)*math.Max(1, math.Abs(vehicleCapacity))
	unvisited := slices.Clone(stops)
	visited := make([]model.DeliveryItem, 0, len(stops))
	current := depot
	load := 0.0
	for len(unvisited) > 0 {
		next := nearest(current, unvisited)
		cand := unvisited[next]
		if load+cand.WeightKg > limit {
			break
		}
		visited = append(visited, cand)
		load += cand.WeightKg
		current = cand.Location
		unvisited = slices.Delete(unvisited, next, next+1)
	}

	if s.TwoOpt {
		visited = Improve2Opt(depot, visited, s.TwoOptIterations)
	}

	plan := s.build(depot, visited)
	if len(unvisited) > 0 {
		plan.Unassigned = unvisited
		plan.UnassignedCount = len(unvisited)
	}
	return plan, nil
}

// nearest returns the index of the stop closest to from. The first of several
// equidistant stops wins.
func nearest(from model.Location, stops []model.DeliveryItem) int {
	best := 0
	bestKm := math.Inf(1)
	for i, st := range stops {
		if d := geo.Distance(from, st.Location); d < bestKm {
			best, bestKm = i, d
		}
	}
	return best
}

// build computes legs and totals for an already ordered list of stops.
func (s *Sequencer) build(depot model.Location, order []model.DeliveryItem) model.RoutePlan {
	plan := model.RoutePlan{Stops: make([]model.RouteStop, 0, len(order))}
	prev := depot
	totalKm, load := 0.0, 0.0
	for i, it := range order {
		leg := geo.Distance(prev, it.Location)
		totalKm += leg
		load += it.WeightKg
		plan.Stops = append(plan.Stops, model.RouteStop{
			Item:               it,
			Sequence:           i + 1,
			DistanceFromPrevKm: model.Round2(leg),
			CumulativeKm:       model.Round2(totalKm),
			CumulativeWeightKg: model.Round2(load),
		})
		prev = it.Location
	}

	returnLeg := 0.0
	if len(order) > 0 {
		returnLeg = geo.Distance(prev, depot)
		for i := 0; i < len(plan.Stops)-1; i++ {
			plan.Stops[i].DistanceToNextKm = plan.Stops[i+1].DistanceFromPrevKm
		}
		plan.Stops[len(plan.Stops)-1].DistanceToNextKm = model.Round2(returnLeg)
	}
	totalKm += returnLeg

	plan.TotalDistanceKm = model.Round2(totalKm)
	plan.ReturnLegKm = model.Round2(returnLeg)
	plan.StopCount = len(plan.Stops)
	plan.TotalWeightKg = model.Round2(load)
	plan.EstimatedMinutes = s.EstimateMinutes(totalKm, plan.StopCount)
	return plan
}

// EstimateMinutes converts a driving distance and a stop count into whole
// minutes, rounding up. A non-positive speed contributes no driving time.
func (s *Sequencer) EstimateMinutes(distanceKm float64, stops int) int {
	driving := 0.0
	if s.AvgSpeedKmh > 0 {
		driving = distanceKm / s.AvgSpeedKmh * 60
	}
	return int(math.Ceil(driving + float64(stops)*s.StopMinutes))
}
