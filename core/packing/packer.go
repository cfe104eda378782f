// Package packing partitions delivery items into vehicle loads.
//
// Items are sorted by decreasing weight and placed one by one; the bin that
// receives an item is chosen by a pluggable Selector (first fit or best fit).
// An item heavier than the effective capacity gets a bin of its own flagged as
// overloaded. That condition is reported, never returned as an error.
package packing

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/kilianp07/routeplan/core/model"
)

const (
	// DefaultSafetyMargin is the fraction of nominal capacity treated as usable.
	DefaultSafetyMargin = 0.95
	// DefaultEpsilon is the relative tolerance of capacity comparisons.
	DefaultEpsilon = 1e-6
)

// Packer runs the decreasing-weight packing heuristic. The zero value is not
// usable; create one with NewPacker.
type Packer struct {
	// Epsilon is relative to the effective capacity.
	Epsilon float64

	mu        sync.RWMutex
	selectors map[model.Strategy]Selector
}

// NewPacker returns a packer knowing the FIRST_FIT and BEST_FIT strategies.
func NewPacker() *Packer {
	return &Packer{Epsilon: DefaultEpsilon, selectors: DefaultSelectors()}
}

// Register adds or replaces the selector used for strategy.
func (p *Packer) Register(strategy model.Strategy, sel Selector) error {
	if sel == nil {
		return fmt.Errorf("selector nil for %s", strategy)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selectors[strategy] = sel
	return nil
}

// Has reports whether a selector is registered under strategy.
func (p *Packer) Has(strategy model.Strategy) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.selectors[strategy]
	return ok
}

func (p *Packer) selector(strategy model.Strategy) (Selector, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sel, ok := p.selectors[strategy]
	if !ok {
		return nil, &model.InvalidInputError{Field: "strategy", Value: strategy, Reason: "unknown packing strategy"}
	}
	return sel, nil
}

// tolerance returns the absolute epsilon for an effective capacity.
func (p *Packer) tolerance(effective float64) float64 {
	eps := p.Epsilon
	if eps < 0 {
		eps = 0
	}
	return eps * math.Max(1, effective)
}

// EffectiveCapacity is capacity scaled by the safety margin. A non-positive
// margin falls back to DefaultSafetyMargin.
func EffectiveCapacity(capacity, safetyMargin float64) float64 {
	if safetyMargin <= 0 {
		safetyMargin = DefaultSafetyMargin
	}
	return capacity * safetyMargin
}

// Pack partitions items into bins using the named strategy. The input slice
// is not modified. An empty input yields an empty, non-nil slice.
func (p *Packer) Pack(items []model.DeliveryItem, capacity, safetyMargin float64, strategy model.Strategy) ([]model.Bin, error) {
	sel, err := p.selector(strategy)
	if err != nil {
		return nil, err
	}
	bins := make([]model.Bin, 0)
	if len(items) == 0 {
		return bins, nil
	}

	effective := EffectiveCapacity(capacity, safetyMargin)
	eps := p.tolerance(effective)

	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b model.DeliveryItem) int {
		return cmp.Compare(b.WeightKg, a.WeightKg)
	})

	candidates := make([]int, 0, 8)
	for _, it := range sorted {
		if effective <= 0 || it.WeightKg > effective+eps {
			bins = append(bins, model.Bin{
				Items:       []model.DeliveryItem{it},
				WeightKg:    it.WeightKg,
				RemainingKg: 0,
				Overloaded:  true,
			})
			continue
		}

		candidates = candidates[:0]
		for i := range bins {
			if bins[i].Overloaded {
				continue
			}
			if bins[i].RemainingKg+eps >= it.WeightKg {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			bins = append(bins, model.Bin{
				Items:       []model.DeliveryItem{it},
				WeightKg:    it.WeightKg,
				RemainingKg: effective - it.WeightKg,
			})
			continue
		}

		idx := sel.Select(bins, candidates, it.WeightKg)
		if !slices.Contains(candidates, idx) {
			return nil, fmt.Errorf("pack: selector for %s chose bin %d without room", strategy, idx)
		}
		bins[idx].Items = append(bins[idx].Items, it)
		bins[idx].WeightKg += it.WeightKg
		bins[idx].RemainingKg = effective - bins[idx].WeightKg
	}

	finalize(bins, effective)
	return bins, nil
}

// finalize assigns sequential indices and computes per-bin utilization.
func finalize(bins []model.Bin, effective float64) {
	for i := range bins {
		bins[i].Index = i + 1
		bins[i].ItemCount = len(bins[i].Items)
		if bins[i].RemainingKg < 0 {
			bins[i].RemainingKg = 0
		}
		bins[i].UtilizationPct = utilization(bins[i].WeightKg, effective)
	}
}

func utilization(weight, effective float64) float64 {
	if effective <= 0 {
		return 0
	}
	return model.Round2(weight / effective * 100)
}
