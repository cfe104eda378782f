package metrics

import (
	"fmt"

	"github.com/kilianp07/routeplan/core/factory"
)

// Config lists the plan sinks to build.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// ListenAddr serves /metrics when set, e.g. ":9100".
	ListenAddr string `json:"listen_addr"`
}

var sinkRegistry = factory.NewRegistry[PlanSink]()

// RegisterPlanSink adds a sink factory identified by name.
func RegisterPlanSink(name string, f factory.Factory[PlanSink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkTypes lists the registered sink names in sorted order.
func SinkTypes() []string { return sinkRegistry.Types() }

// NewPlanSink builds the sinks described by cfgs. No configuration yields a
// NopSink and several yield a MultiSink.
func NewPlanSink(cfgs []factory.ModuleConfig) (PlanSink, error) {
	switch len(cfgs) {
	case 0:
		return NopSink{}, nil
	case 1:
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]PlanSink, 0, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			for _, built := range sinks {
				_ = Close(built)
			}
			return nil, fmt.Errorf("sink %d: %w", i, err)
		}
		sinks = append(sinks, s)
	}
	return NewMultiSink(sinks...), nil
}
