package optimizer

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	plansTotal      *prometheus.CounterVec
	planLatency     *prometheus.HistogramVec
	binsPerPlan     prometheus.Histogram
	overloadedBins  prometheus.Counter
	unassignedStops prometheus.Counter
	routeDistance   prometheus.Histogram
)

func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, prometheus.Histogram, prometheus.Counter, prometheus.Counter, prometheus.Histogram) {
	plans := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "routeplan_plans_total",
		Help: "Number of planning requests by strategy and outcome",
	}, []string{"strategy", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "routeplan_plan_duration_seconds",
		Help:    "Time spent packing and sequencing one batch",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
	}, []string{"strategy"})
	bins := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "routeplan_bins_per_plan",
		Help:    "Number of vehicle loads produced per plan",
		Buckets: prometheus.LinearBuckets(1, 2, 10),
	})
	overloaded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "routeplan_overloaded_bins_total",
		Help: "Single item bins whose item exceeds the effective capacity",
	})
	unassigned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "routeplan_unassigned_stops_total",
		Help: "Stops dropped by the sequencer capacity check",
	})
	distance := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "routeplan_route_distance_km",
		Help:    "Closed circuit length of each route",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
	return plans, latency, bins, overloaded, unassigned, distance
}

func init() {
	plansTotal, planLatency, binsPerPlan, overloadedBins, unassignedStops, routeDistance = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers the optimizer collectors on reg, or on
// prometheus.DefaultRegisterer when reg is nil.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(plansTotal, planLatency, binsPerPlan, overloadedBins, unassignedStops, routeDistance)
}

// ResetMetrics recreates the collectors for tests and registers them on reg
// when it is not nil.
func ResetMetrics(reg prometheus.Registerer) {
	plansTotal, planLatency, binsPerPlan, overloadedBins, unassignedStops, routeDistance = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
