// Package export renders a route plan for other tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kilianp07/routeplan/core/model"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	// FormatHTML renders the routes as a chart.
	FormatHTML Format = "html"
)

// ParseFormat accepts "json", "csv" or "html" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Write encodes plan to w in format f.
func Write(w io.Writer, f Format, plan model.MultiRoutePlan) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, plan)
	case FormatCSV:
		return WriteCSV(w, plan)
	case FormatHTML:
		return WriteHTML(w, plan)
	}
	return fmt.Errorf("unknown export format %q", f)
}

// WriteJSON writes the plan to w as indented JSON.
func WriteJSON(w io.Writer, plan model.MultiRoutePlan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}

// CSVHeader lists the columns written by WriteCSV.
var CSVHeader = []string{
	"plan_id", "bin_index", "sequence", "item_id", "lat", "lon", "weight_kg",
	"distance_from_prev_km", "cumulative_km", "cumulative_weight_kg", "status",
}

// WriteCSV writes one row per stop in visiting order, followed by the
// unassigned items of each route with an empty sequence.
func WriteCSV(w io.Writer, plan model.MultiRoutePlan) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range plan.Routes {
		bin := strconv.Itoa(r.BinIndex)
		for _, s := range r.Stops {
			rec := []string{
				plan.PlanID, bin, strconv.Itoa(s.Sequence), s.Item.ID,
				num(s.Item.Location.Lat), num(s.Item.Location.Lon), num(s.Item.WeightKg),
				num(s.DistanceFromPrevKm), num(s.CumulativeKm), num(s.CumulativeWeightKg),
				"assigned",
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		for _, it := range r.Unassigned {
			rec := []string{
				plan.PlanID, bin, "", it.ID,
				num(it.Location.Lat), num(it.Location.Lon), num(it.WeightKg),
				"", "", "", "unassigned",
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
