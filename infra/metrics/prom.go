package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/routeplan/core/metrics"
	"github.com/kilianp07/routeplan/core/model"
)

// PromSink exposes per-route figures of the last plans as Prometheus metrics.
type PromSink struct {
	routes      *prometheus.CounterVec
	stops       *prometheus.CounterVec
	utilization *prometheus.HistogramVec
	lastPlan    *prometheus.GaugeVec
	failures    *prometheus.CounterVec
}

// NewPromSink registers the sink collectors on reg, or on
// prometheus.DefaultRegisterer when reg is nil. Collectors that are already
// registered are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		routes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "routeplan_routes_total",
			Help: "Routes produced by strategy and overload state",
		}, []string{"strategy", "overloaded"}),
		stops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "routeplan_stops_total",
			Help: "Stops planned by strategy and assignment state",
		}, []string{"strategy", "state"}),
		utilization: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "routeplan_bin_utilization_percent",
			Help:    "Share of the effective capacity used by each vehicle load",
			Buckets: prometheus.LinearBuckets(10, 10, 11),
		}, []string{"strategy"}),
		lastPlan: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "routeplan_last_plan",
			Help: "Aggregates of the most recent plan",
		}, []string{"figure"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "routeplan_rejected_batches_total",
			Help: "Planning requests rejected before packing",
		}, []string{"strategy"}),
	}
	var err error
	if s.routes, err = register(reg, s.routes); err != nil {
		return nil, err
	}
	if s.stops, err = register(reg, s.stops); err != nil {
		return nil, err
	}
	if s.utilization, err = register(reg, s.utilization); err != nil {
		return nil, err
	}
	if s.lastPlan, err = register(reg, s.lastPlan); err != nil {
		return nil, err
	}
	if s.failures, err = register(reg, s.failures); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the collector already registered under the same
// descriptor when there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordPlan updates the counters with every route of plan.
func (s *PromSink) RecordPlan(plan model.MultiRoutePlan, elapsed time.Duration) error {
	strategy := plan.Strategy.String()
	for _, r := range plan.Routes {
		overloaded := "false"
		if r.Overloaded {
			overloaded = "true"
		}
		s.routes.WithLabelValues(strategy, overloaded).Inc()
		s.stops.WithLabelValues(strategy, "assigned").Add(float64(r.StopCount))
		s.stops.WithLabelValues(strategy, "unassigned").Add(float64(r.UnassignedCount))
		s.utilization.WithLabelValues(strategy).Observe(r.UtilizationPct)
	}
	s.lastPlan.WithLabelValues("bins").Set(float64(plan.BinCount))
	s.lastPlan.WithLabelValues("distance_km").Set(plan.TotalDistanceKm)
	s.lastPlan.WithLabelValues("minutes").Set(float64(plan.TotalMinutes))
	s.lastPlan.WithLabelValues("avg_utilization_pct").Set(plan.AvgUtilizationPct)
	s.lastPlan.WithLabelValues("elapsed_seconds").Set(elapsed.Seconds())
	return nil
}

// RecordFailure counts a rejected batch.
func (s *PromSink) RecordFailure(ev coremetrics.FailureEvent) error {
	s.failures.WithLabelValues(ev.Strategy.String()).Inc()
	return nil
}
