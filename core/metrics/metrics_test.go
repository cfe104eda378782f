package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/routeplan/core/factory"
	"github.com/kilianp07/routeplan/core/metrics"
	"github.com/kilianp07/routeplan/core/model"
)

type recordSink struct {
	plans    int
	failures int
	closed   bool
	err      error
}

func (r *recordSink) RecordPlan(model.MultiRoutePlan, time.Duration) error {
	r.plans++
	return r.err
}

func (r *recordSink) RecordFailure(metrics.FailureEvent) error {
	r.failures++
	return nil
}

func (r *recordSink) Close() error {
	r.closed = true
	return nil
}

func TestMultiSinkForwardsToAll(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	m := metrics.NewMultiSink(s1, s2, metrics.NopSink{})

	err := m.RecordPlan(model.MultiRoutePlan{}, time.Millisecond)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s1.plans)
	assert.Equal(t, 1, s2.plans, "a failing sink must not hide the others")

	require.NoError(t, m.RecordFailure(metrics.FailureEvent{Reason: "invalid"}))
	assert.Equal(t, 1, s2.failures)

	require.NoError(t, m.Close())
	assert.True(t, s1.closed)
	assert.True(t, s2.closed)
}

func TestNewPlanSink(t *testing.T) {
	require.NoError(t, metrics.RegisterPlanSink("record-test", func(map[string]any) (metrics.PlanSink, error) {
		return &recordSink{}, nil
	}))

	s, err := metrics.NewPlanSink(nil)
	require.NoError(t, err)
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}

	s, err = metrics.NewPlanSink([]factory.ModuleConfig{{Type: "record-test"}})
	require.NoError(t, err)
	if _, ok := s.(*recordSink); !ok {
		t.Fatalf("expected recordSink, got %T", s)
	}

	s, err = metrics.NewPlanSink([]factory.ModuleConfig{{Type: "record-test"}, {Type: "record-test"}})
	require.NoError(t, err)
	m, ok := s.(*metrics.MultiSink)
	if !ok {
		t.Fatalf("expected MultiSink, got %T", s)
	}
	assert.Len(t, m.Sinks, 2)

	_, err = metrics.NewPlanSink([]factory.ModuleConfig{{Type: "record-test"}, {Type: "missing"}})
	assert.Error(t, err)
	assert.Contains(t, metrics.SinkTypes(), "record-test")
}
