// Package metrics defines where finished plans are reported. Sinks such as
// PromSink and InfluxSink in infra/metrics, or the MQTT publisher, implement
// PlanSink; several of them are combined with NewMultiSink.
package metrics

import (
	"errors"
	"io"
	"time"

	"github.com/kilianp07/routeplan/core/model"
)

// PlanSink records a completed plan together with the time taken to build it.
type PlanSink interface {
	RecordPlan(plan model.MultiRoutePlan, elapsed time.Duration) error
}

// FailureEvent describes a planning request that was rejected.
type FailureEvent struct {
	Strategy model.Strategy
	Items    int
	Reason   string
	Time     time.Time
}

// FailureRecorder records rejected planning requests.
type FailureRecorder interface {
	RecordFailure(ev FailureEvent) error
}

// NopSink implements PlanSink and FailureRecorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordPlan(model.MultiRoutePlan, time.Duration) error { return nil }
func (NopSink) RecordFailure(FailureEvent) error                     { return nil }

// MultiSink fans plans out to several sinks.
type MultiSink struct {
	Sinks []PlanSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...PlanSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPlan forwards the plan to every sink. All sinks are tried; their
// errors are joined.
func (m *MultiSink) RecordPlan(plan model.MultiRoutePlan, elapsed time.Duration) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordPlan(plan, elapsed); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordFailure forwards the event to the sinks that support it.
func (m *MultiSink) RecordFailure(ev FailureEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(FailureRecorder); ok {
			if err := rec.RecordFailure(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds resources.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if err := Close(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases s when it implements io.Closer.
func Close(s PlanSink) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
