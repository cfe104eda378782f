package packing

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/routeplan/core/model"
)

// PackStats summarises the outcome of a packing run.
type PackStats struct {
	BinCount          int     `json:"bin_count"`
	TotalItems        int     `json:"total_items"`
	TotalWeightKg     float64 `json:"total_weight_kg"`
	AvgUtilizationPct float64 `json:"avg_utilization_pct"`
	OverloadedCount   int     `json:"overloaded_count"`
}

// Stats computes aggregate statistics over bins. capacity is the nominal
// vehicle capacity; when it is not positive the average utilization is 0.
func Stats(bins []model.Bin, capacity float64) PackStats {
	st := PackStats{BinCount: len(bins)}
	if len(bins) == 0 {
		return st
	}
	weights := make([]float64, 0, len(bins))
	utils := make([]float64, 0, len(bins))
	for _, b := range bins {
		st.TotalItems += len(b.Items)
		weights = append(weights, model.TotalWeight(b.Items))
		utils = append(utils, b.UtilizationPct)
		if b.Overloaded {
			st.OverloadedCount++
		}
	}
	st.TotalWeightKg = model.Round2(floats.Sum(weights))
	if capacity > 0 {
		st.AvgUtilizationPct = model.Round2(stat.Mean(utils, nil))
	}
	return st
}
