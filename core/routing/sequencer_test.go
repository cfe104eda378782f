package routing

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/routeplan/core/geo"
	"github.com/kilianp07/routeplan/core/model"
)

func stop(id string, w, lat, lon float64) model.DeliveryItem {
	return model.DeliveryItem{ID: id, WeightKg: w, Location: model.Location{Lat: lat, Lon: lon}}
}

func ids(plan model.RoutePlan) []string {
	out := make([]string, 0, len(plan.Stops))
	for _, s := range plan.Stops {
		out = append(out, s.Item.ID)
	}
	return out
}

func TestSequence_GreedyOverridesInputOrder(t *testing.T) {
	s := NewSequencer()
	stops := []model.DeliveryItem{
		stop("one", 1, 0, 1),
		stop("three", 1, 0, 3),
		stop("two", 1, 0, 2),
	}
	plan, err := s.Sequence(stops, model.Location{}, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ids(plan); !reflect.DeepEqual(got, []string{"one", "two", "three"}) {
		t.Fatalf("unexpected order %v", got)
	}
	if plan.StopCount != 3 || plan.UnassignedCount != 0 {
		t.Fatalf("unexpected counts %+v", plan)
	}
	if plan.TotalWeightKg != 3 {
		t.Fatalf("total weight %v", plan.TotalWeightKg)
	}
}

func TestSequence_TieGoesToFirstOccurrence(t *testing.T) {
	s := NewSequencer()
	stops := []model.DeliveryItem{
		stop("west", 1, 0, -1),
		stop("east", 1, 0, 1),
	}
	plan, err := s.Sequence(stops, model.Location{}, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"west", "east"}, ids(plan))
}

func TestSequence_RouteClosure(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	depot := model.Location{Lat: 45.75, Lon: 4.85}
	stops := make([]model.DeliveryItem, 25)
	for i := range stops {
		stops[i] = stop(fmt.Sprintf("s%02d", i), 1, 45.5+rng.Float64()/2, 4.6+rng.Float64()/2)
	}
	s := NewSequencer()
	plan, err := s.Sequence(stops, depot, 1000)
	require.NoError(t, err)
	require.Len(t, plan.Stops, len(stops))

	prev := depot
	sum := 0.0
	for i, st := range plan.Stops {
		assert.Equal(t, i+1, st.Sequence)
		leg := geo.Distance(prev, st.Item.Location)
		assert.InDelta(t, leg, st.DistanceFromPrevKm, 0.005)
		sum += leg
		prev = st.Item.Location
	}
	ret := geo.Distance(prev, depot)
	sum += ret
	assert.InDelta(t, sum, plan.TotalDistanceKm, 0.005)
	assert.InDelta(t, ret, plan.ReturnLegKm, 0.005)

	rounded := plan.ReturnLegKm
	for _, st := range plan.Stops {
		rounded += st.DistanceFromPrevKm
	}
	assert.InDelta(t, plan.TotalDistanceKm, rounded, 0.005*float64(len(plan.Stops)+1))
	assert.Equal(t, plan.ReturnLegKm, plan.Stops[len(plan.Stops)-1].DistanceToNextKm)
	for i := 0; i < len(plan.Stops)-1; i++ {
		assert.Equal(t, plan.Stops[i+1].DistanceFromPrevKm, plan.Stops[i].DistanceToNextKm)
	}
}

func TestSequence_Deterministic(t *testing.T) {
	stops := []model.DeliveryItem{
		stop("a", 2, 48.85, 2.35),
		stop("b", 3, 48.80, 2.30),
		stop("c", 1, 48.90, 2.40),
		stop("d", 4, 48.86, 2.29),
	}
	s := NewSequencer()
	first, err := s.Sequence(stops, model.Location{Lat: 48.83, Lon: 2.33}, 50)
	require.NoError(t, err)
	second, err := s.Sequence(stops, model.Location{Lat: 48.83, Lon: 2.33}, 50)
	require.NoError(t, err)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("sequence is not deterministic")
	}
}

func TestSequence_CapacitySafetyNet(t *testing.T) {
	s := NewSequencer()
	stops := []model.DeliveryItem{
		stop("far", 5, 0, 3),
		stop("near", 6, 0, 1),
		stop("mid", 2, 0, 2),
	}
	plan, err := s.Sequence(stops, model.Location{}, 10)
	require.NoError(t, err)
	// near (6) then mid (8); far would bring the load to 13.
	assert.Equal(t, []string{"near", "mid"}, ids(plan))
	require.Len(t, plan.Unassigned, 1)
	assert.Equal(t, "far", plan.Unassigned[0].ID)
	assert.Equal(t, 1, plan.UnassignedCount)
	assert.Equal(t, 8.0, plan.TotalWeightKg)
	assert.ElementsMatch(t, []string{"near", "mid", "far"}, plan.ItemIDs())
}

func TestSequence_ExactCapacityFits(t *testing.T) {
	s := NewSequencer()
	stops := []model.DeliveryItem{stop("a", 0.1, 0, 1), stop("b", 0.2, 0, 2)}
	plan, err := s.Sequence(stops, model.Location{}, 0.3)
	require.NoError(t, err)
	assert.Equal(t, 2, plan.StopCount)
	assert.Zero(t, plan.UnassignedCount)
}

func TestSequence_Errors(t *testing.T) {
	s := NewSequencer()
	_, err := s.Sequence(nil, model.Location{}, 10)
	var empty *model.EmptyInputError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyInputError got %v", err)
	}
	if !errors.Is(err, model.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput")
	}

	_, err = s.Sequence([]model.DeliveryItem{stop("bad", 1, 91, 0)}, model.Location{}, 10)
	var coord *model.InvalidCoordinateError
	require.ErrorAs(t, err, &coord)
	assert.Equal(t, "bad", coord.ItemID)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = s.Sequence([]model.DeliveryItem{stop("ok", 1, 0, 0)}, model.Location{Lon: 200}, 10)
	require.ErrorAs(t, err, &coord)
	assert.Equal(t, "depot", coord.ItemID)
}

func TestEstimateMinutes(t *testing.T) {
	cases := []struct {
		speed, stopMin, km float64
		stops              int
		want               int
	}{
		{60, 5, 30, 2, 40},
		{60, 5, 30.5, 1, 36},
		{30, 0, 10, 4, 20},
		{0, 5, 100, 3, 15},
		{60, 5, 0, 0, 0},
	}
	for _, c := range cases {
		s := &Sequencer{AvgSpeedKmh: c.speed, StopMinutes: c.stopMin}
		if got := s.EstimateMinutes(c.km, c.stops); got != c.want {
			t.Errorf("EstimateMinutes(%v,%d) speed=%v stop=%v: got %d want %d", c.km, c.stops, c.speed, c.stopMin, got, c.want)
		}
	}
}

func TestSequence_EstimatedMinutesUsesUnroundedDistance(t *testing.T) {
	s := &Sequencer{AvgSpeedKmh: 40, StopMinutes: 3}
	stops := []model.DeliveryItem{stop("a", 1, 0, 1), stop("b", 1, 0, 2)}
	plan, err := s.Sequence(stops, model.Location{}, 10)
	require.NoError(t, err)
	km := geo.PathKm(model.Location{}, []model.Location{{Lat: 0, Lon: 1}, {Lat: 0, Lon: 2}})
	want := int(math.Ceil(km/40*60 + 2*3))
	assert.Equal(t, want, plan.EstimatedMinutes)
}

func TestSequence_TwoOptNeverLengthens(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	depot := model.Location{Lat: 50.63, Lon: 3.06}
	for round := 0; round < 20; round++ {
		stops := make([]model.DeliveryItem, 4+rng.Intn(20))
		for i := range stops {
			stops[i] = stop(fmt.Sprintf("p%02d", i), 1, 50.4+rng.Float64()/2, 2.8+rng.Float64()/2)
		}
		base := NewSequencer()
		nn, err := base.Sequence(stops, depot, 1000)
		require.NoError(t, err)

		improved := NewSequencer()
		improved.TwoOpt = true
		opt, err := improved.Sequence(stops, depot, 1000)
		require.NoError(t, err)

		assert.LessOrEqual(t, opt.TotalDistanceKm, nn.TotalDistanceKm)
		assert.ElementsMatch(t, ids(nn), ids(opt))
	}
}

func TestImprove2Opt_UncrossesTour(t *testing.T) {
	depot := model.Location{}
	// visiting the square corners diagonally crosses the tour
	order := []model.DeliveryItem{
		stop("a", 1, 0, 1),
		stop("c", 1, 1, 0),
		stop("b", 1, 1, 1),
	}
	out := Improve2Opt(depot, order, 0)
	locs := func(items []model.DeliveryItem) []model.Location {
		l := make([]model.Location, len(items))
		for i, it := range items {
			l[i] = it.Location
		}
		return l
	}
	assert.Less(t, geo.PathKm(depot, locs(out)), geo.PathKm(depot, locs(order)))
	assert.Equal(t, "c", order[1].ID, "input must not be modified")
}
