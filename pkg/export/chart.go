package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/routeplan/core/model"
)

// WriteHTML renders each route as a closed line from the depot through its
// stops, plotted by longitude and latitude.
func WriteHTML(w io.Writer, plan model.MultiRoutePlan) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Routes " + plan.PlanID,
			Subtitle: fmt.Sprintf("%s, %d vehicles, %.2f km", plan.Strategy, plan.BinCount, plan.TotalDistanceKm),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Longitude", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Latitude", Type: "value"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	for _, r := range plan.Routes {
		line.AddSeries(fmt.Sprintf("Route %d", r.BinIndex), routePoints(plan.Depot.Location, r))
	}
	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// routePoints lists depot, stops, depot as [lon, lat] pairs.
func routePoints(depot model.Location, r model.RoutePlan) []opts.LineData {
	pt := func(name string, l model.Location) opts.LineData {
		return opts.LineData{Name: name, Value: []float64{l.Lon, l.Lat}}
	}
	data := make([]opts.LineData, 0, len(r.Stops)+2)
	data = append(data, pt("depot", depot))
	for _, s := range r.Stops {
		data = append(data, pt(s.Item.ID, s.Item.Location))
	}
	return append(data, pt("depot", depot))
}
