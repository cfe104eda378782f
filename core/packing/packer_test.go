package packing

import (
	"fmt"
	"math/rand"
	"reflect"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/routeplan/core/model"
)

func items(weights ...float64) []model.DeliveryItem {
	out := make([]model.DeliveryItem, len(weights))
	for i, w := range weights {
		out[i] = model.DeliveryItem{
			ID:       fmt.Sprintf("i%d", i+1),
			WeightKg: w,
			Location: model.Location{Lat: 45, Lon: 5 + float64(i)*0.01},
		}
	}
	return out
}

func binWeights(bins []model.Bin) [][]float64 {
	out := make([][]float64, len(bins))
	for i, b := range bins {
		for _, it := range b.Items {
			out[i] = append(out[i], it.WeightKg)
		}
	}
	return out
}

func TestPack_FirstFitScenario(t *testing.T) {
	p := NewPacker()
	bins, err := p.Pack(items(10, 8, 5), 12, 1.0, model.StrategyFirstFit)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{10}, {8}, {5}}, binWeights(bins))
	for i, b := range bins {
		assert.Equal(t, i+1, b.Index)
		assert.False(t, b.Overloaded)
	}
}

func TestPack_BestFitScenario(t *testing.T) {
	p := NewPacker()
	bins, err := p.Pack(items(10, 8, 5), 15, 1.0, model.StrategyBestFit)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{10, 5}, {8}}, binWeights(bins))
	assert.Equal(t, 100.0, bins[0].UtilizationPct)
	assert.Equal(t, 0.0, bins[0].RemainingKg)
}

func TestPack_FirstFitDiffersFromBestFit(t *testing.T) {
	// After 8, 6 and 3 are placed bin1 has 2 kg left and bin2 has 1 kg left.
	p := NewPacker()
	ff, err := p.Pack(items(1, 3, 6, 8), 10, 1.0, model.StrategyFirstFit)
	require.NoError(t, err)
	bf, err := p.Pack(items(1, 3, 6, 8), 10, 1.0, model.StrategyBestFit)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{8, 1}, {6, 3}}, binWeights(ff))
	assert.Equal(t, [][]float64{{8}, {6, 3, 1}}, binWeights(bf))
}

func TestPack_BestFitTieGoesToEarliest(t *testing.T) {
	p := NewPacker()
	bins, err := p.Pack(items(6, 6, 3), 10, 1.0, model.StrategyBestFit)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{6, 3}, {6}}, binWeights(bins))
}

func TestPack_StableOnEqualWeights(t *testing.T) {
	p := NewPacker()
	in := items(3, 3, 3, 3)
	bins, err := p.Pack(in, 6, 1.0, model.StrategyFirstFit)
	require.NoError(t, err)
	require.Len(t, bins, 2)
	assert.Equal(t, "i1", bins[0].Items[0].ID)
	assert.Equal(t, "i2", bins[0].Items[1].ID)
	assert.Equal(t, "i3", bins[1].Items[0].ID)
	assert.Equal(t, "i4", bins[1].Items[1].ID)
}

func TestPack_Overload(t *testing.T) {
	p := NewPacker()
	// effective capacity is 9.5: 10 is overloaded, 9.5 fits exactly.
	bins, err := p.Pack(items(10, 9.5, 0.5), 10, 0.95, model.StrategyFirstFit)
	require.NoError(t, err)
	require.Len(t, bins, 3)
	assert.True(t, bins[0].Overloaded)
	assert.Len(t, bins[0].Items, 1)
	assert.Equal(t, "i1", bins[0].Items[0].ID)
	assert.False(t, bins[1].Overloaded)
	assert.Equal(t, 100.0, bins[1].UtilizationPct)
	// 0.5 must not join the overloaded bin even though it is first.
	assert.Equal(t, "i3", bins[2].Items[0].ID)
}

func TestPack_EpsilonAvoidsSpuriousOverload(t *testing.T) {
	p := NewPacker()
	// 0.1+0.2 style rounding: effective = 3 * 0.95 = 2.8499999999999996
	bins, err := p.Pack(items(2.85), 3, 0.95, model.StrategyFirstFit)
	require.NoError(t, err)
	require.Len(t, bins, 1)
	assert.False(t, bins[0].Overloaded)
}

func TestPack_NonPositiveCapacity(t *testing.T) {
	p := NewPacker()
	for _, capacity := range []float64{0, -5} {
		bins, err := p.Pack(items(1, 2, 3), capacity, 0.95, model.StrategyBestFit)
		require.NoError(t, err)
		require.Len(t, bins, 3)
		for _, b := range bins {
			assert.True(t, b.Overloaded)
			assert.Equal(t, 1, b.ItemCount)
			assert.Equal(t, 0.0, b.UtilizationPct)
		}
	}
}

func TestPack_EmptyInput(t *testing.T) {
	p := NewPacker()
	bins, err := p.Pack(nil, 10, 0.95, model.StrategyFirstFit)
	require.NoError(t, err)
	require.NotNil(t, bins)
	assert.Empty(t, bins)
}

func TestPack_UnknownStrategy(t *testing.T) {
	p := NewPacker()
	_, err := p.Pack(items(1), 10, 0.95, model.Strategy("WORST_FIT"))
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestPack_CustomSelectorMustChooseCandidate(t *testing.T) {
	p := NewPacker()
	require.NoError(t, p.Register("BROKEN", SelectorFunc(func([]model.Bin, []int, float64) int { return 99 })))
	_, err := p.Pack(items(1, 1), 10, 1, "BROKEN")
	assert.Error(t, err)
	assert.Error(t, p.Register("NIL", nil))
}

func TestPack_DoesNotMutateInput(t *testing.T) {
	p := NewPacker()
	in := items(1, 5, 3)
	cp := append([]model.DeliveryItem(nil), in...)
	_, err := p.Pack(in, 10, 1, model.StrategyFirstFit)
	require.NoError(t, err)
	assert.Equal(t, cp, in)
}

func randomItems(rng *rand.Rand, n int) []model.DeliveryItem {
	out := make([]model.DeliveryItem, n)
	for i := range out {
		out[i] = model.DeliveryItem{
			ID:       fmt.Sprintf("r%03d", i),
			WeightKg: 0.5 + float64(rng.Intn(400))/10,
			Location: model.Location{Lat: 44 + rng.Float64(), Lon: 4 + rng.Float64()},
		}
	}
	return out
}

func TestPack_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := NewPacker()
	for round := 0; round < 50; round++ {
		in := randomItems(rng, 1+rng.Intn(60))
		capacity := 10 + float64(rng.Intn(60))
		for _, strategy := range []model.Strategy{model.StrategyFirstFit, model.StrategyBestFit} {
			bins, err := p.Pack(in, capacity, DefaultSafetyMargin, strategy)
			require.NoError(t, err)
			effective := capacity * DefaultSafetyMargin

			var got []string
			for _, b := range bins {
				sum := 0.0
				for _, it := range b.Items {
					got = append(got, it.ID)
					sum += it.WeightKg
				}
				if b.Overloaded {
					require.Len(t, b.Items, 1)
					require.Greater(t, b.Items[0].WeightKg, effective)
				} else {
					require.LessOrEqual(t, sum, effective+1e-6*effective)
				}
			}
			want := make([]string, len(in))
			for i, it := range in {
				want[i] = it.ID
			}
			sort.Strings(got)
			sort.Strings(want)
			require.Equal(t, want, got, "partition violated")

			again, err := p.Pack(in, capacity, DefaultSafetyMargin, strategy)
			require.NoError(t, err)
			if !reflect.DeepEqual(bins, again) {
				t.Fatalf("packing is not deterministic for %s", strategy)
			}
		}
	}
}

func TestStats(t *testing.T) {
	p := NewPacker()
	bins, err := p.Pack(items(10, 8, 5, 20), 12, 1.0, model.StrategyFirstFit)
	require.NoError(t, err)
	st := Stats(bins, 12)
	assert.Equal(t, 4, st.BinCount)
	assert.Equal(t, 4, st.TotalItems)
	assert.Equal(t, 43.0, st.TotalWeightKg)
	assert.Equal(t, 1, st.OverloadedCount)
	// utilizations: 166.67, 83.33, 66.67, 41.67
	assert.InDelta(t, 89.59, st.AvgUtilizationPct, 0.011)

	assert.Equal(t, PackStats{}, Stats(nil, 12))
	zero := Stats(bins, 0)
	assert.Equal(t, 0.0, zero.AvgUtilizationPct)
}
