package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/routeplan/core/factory"
	coremetrics "github.com/kilianp07/routeplan/core/metrics"
)

// init registers the built-in plan sinks.
func init() {
	_ = coremetrics.RegisterPlanSink("nop", func(map[string]any) (coremetrics.PlanSink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterPlanSink("prometheus", func(map[string]any) (coremetrics.PlanSink, error) {
		s, err := NewPromSink(prometheus.DefaultRegisterer)
		if err != nil {
			return nil, err
		}
		return s, nil
	})

	_ = coremetrics.RegisterPlanSink("influx", func(conf map[string]any) (coremetrics.PlanSink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c), nil
	})
}
