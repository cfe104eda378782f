package packing

import "github.com/kilianp07/routeplan/core/model"

// Selector picks the bin that receives an item of the given weight.
// candidates holds, in creation order, the indices of the bins that still have
// room for the item. The returned value must be one of candidates.
type Selector interface {
	Select(bins []model.Bin, candidates []int, weight float64) int
}

// SelectorFunc adapts a function to the Selector interface.
type SelectorFunc func(bins []model.Bin, candidates []int, weight float64) int

// Select implements Selector.
func (f SelectorFunc) Select(bins []model.Bin, candidates []int, weight float64) int {
	return f(bins, candidates, weight)
}

// FirstFit takes the earliest created bin with room.
type FirstFit struct{}

// Select implements Selector.
func (FirstFit) Select(_ []model.Bin, candidates []int, _ float64) int {
	return candidates[0]
}

// BestFit takes the bin whose leftover capacity after placement is smallest.
// Ties go to the earliest created bin.
type BestFit struct{}

// Select implements Selector.
func (BestFit) Select(bins []model.Bin, candidates []int, weight float64) int {
	best := candidates[0]
	bestLeft := bins[best].RemainingKg - weight
	for _, idx := range candidates[1:] {
		left := bins[idx].RemainingKg - weight
		if left < bestLeft {
			best = idx
			bestLeft = left
		}
	}
	return best
}

// DefaultSelectors maps each built-in strategy to its selector.
func DefaultSelectors() map[model.Strategy]Selector {
	return map[model.Strategy]Selector{
		model.StrategyFirstFit: FirstFit{},
		model.StrategyBestFit:  BestFit{},
	}
}
