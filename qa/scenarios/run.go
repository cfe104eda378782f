package scenarios

import (
	"context"
	"math"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/routeplan/core/model"
	"github.com/kilianp07/routeplan/core/optimizer"
	"github.com/kilianp07/routeplan/infra/metrics"
	"github.com/kilianp07/routeplan/internal/eventbus"
)

// RunScenario plans the scenario batch and checks the expectations.
func RunScenario(t *testing.T, sc *Scenario) model.MultiRoutePlan {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSink(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	bus := eventbus.New[optimizer.PlanEvent]()
	defer bus.Close()
	events := bus.SubscribeBuffered(64)

	opt, err := optimizer.New(optimizer.Config{
		Depot:        &model.Depot{Name: sc.Depot.ID, Location: model.Location{Lat: sc.Depot.Lat, Lon: sc.Depot.Lon}},
		SafetyMargin: sc.SafetyMargin,
		Strategy:     sc.Strategy,
	}, optimizer.WithSink(sink), optimizer.WithEventBus(bus))
	if err != nil {
		t.Fatalf("optimizer: %v", err)
	}

	plan, err := opt.OptimizeRoutes(context.Background(), sc.Items(), sc.VehicleCapacityKg, "")
	if err != nil {
		t.Fatalf("scenario %s: %v", sc.Name, err)
	}
	check(t, sc, plan)

	select {
	case ev := <-events:
		if ev.Action != optimizer.ActionPlanStarted {
			t.Errorf("scenario %s: first event %s", sc.Name, ev.Action)
		}
	default:
		t.Errorf("scenario %s: no plan event published", sc.Name)
	}
	return plan
}

func check(t *testing.T, sc *Scenario, plan model.MultiRoutePlan) {
	t.Helper()
	exp := sc.Expected
	if plan.BinCount != exp.Bins || len(plan.Routes) != exp.Bins {
		t.Fatalf("scenario %s expected %d bins, got %d", sc.Name, exp.Bins, plan.BinCount)
	}
	for i, want := range exp.BinItems {
		got := plan.Routes[i].ItemIDs()
		slices.Sort(got)
		want = slices.Clone(want)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			t.Errorf("scenario %s bin %d: got %v want %v", sc.Name, i, got, want)
		}
	}
	for i, want := range exp.VisitOrder {
		got := make([]string, 0, len(plan.Routes[i].Stops))
		for _, s := range plan.Routes[i].Stops {
			got = append(got, s.Item.ID)
		}
		if !slices.Equal(got, want) {
			t.Errorf("scenario %s route %d visits %v, want %v", sc.Name, i, got, want)
		}
	}
	if exp.TotalDistanceKm != nil && math.Abs(plan.TotalDistanceKm-*exp.TotalDistanceKm) > 0.01 {
		t.Errorf("scenario %s distance %.2f km, want %.2f", sc.Name, plan.TotalDistanceKm, *exp.TotalDistanceKm)
	}
	if exp.TotalMinutes != nil && plan.TotalMinutes != *exp.TotalMinutes {
		t.Errorf("scenario %s duration %d min, want %d", sc.Name, plan.TotalMinutes, *exp.TotalMinutes)
	}
	if plan.OverloadedCount != exp.Overloaded {
		t.Errorf("scenario %s overloaded %d, want %d", sc.Name, plan.OverloadedCount, exp.Overloaded)
	}
	if plan.UnassignedCount != exp.Unassigned {
		t.Errorf("scenario %s unassigned %d, want %d", sc.Name, plan.UnassignedCount, exp.Unassigned)
	}
}
