package routing

import (
	"slices"

	"github.com/kilianp07/routeplan/core/geo"
	"github.com/kilianp07/routeplan/core/model"
)

// minGainKm is the smallest improvement accepted by Improve2Opt.
const minGainKm = 1e-9

// Improve2Opt shortens a closed depot tour by reversing segments while that
// reduces the total distance. iterations bounds the number of full sweeps;
// zero or less means sweep until no reversal helps. The input is not modified.
func Improve2Opt(depot model.Location, order []model.DeliveryItem, iterations int) []model.DeliveryItem {
	best := slices.Clone(order)
	n := len(best)
	if n < 3 {
		return best
	}
	pt := func(i int) model.Location {
		if i < 0 || i >= n {
			return depot
		}
		return best[i].Location
	}
	for sweep := 0; iterations <= 0 || sweep < iterations; sweep++ {
		improved := false
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				// replace edges (i-1,i) and (k,k+1) by (i-1,k) and (i,k+1)
				before := geo.Distance(pt(i-1), pt(i)) + geo.Distance(pt(k), pt(k+1))
				after := geo.Distance(pt(i-1), pt(k)) + geo.Distance(pt(i), pt(k+1))
				if before-after > minGainKm {
					slices.Reverse(best[i : k+1])
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}
