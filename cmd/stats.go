package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/routeplan/app"
	"github.com/kilianp07/routeplan/core/model"
	"github.com/kilianp07/routeplan/core/planlog"
)

var statsOpts struct {
	since    time.Duration
	strategy string
	planID   string
	itemID   string
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "List past plans from the plan log",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	f := statsCmd.Flags()
	f.DurationVar(&statsOpts.since, "since", 0, "only plans newer than this duration, e.g. 24h")
	f.StringVar(&statsOpts.strategy, "strategy", "", "filter by strategy")
	f.StringVar(&statsOpts.planID, "plan", "", "filter by plan id")
	f.StringVar(&statsOpts.itemID, "item", "", "only plans containing this delivery id")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	q := planlog.Query{PlanID: statsOpts.planID, ItemID: statsOpts.itemID}
	if statsOpts.strategy != "" {
		s, err := model.ParseStrategy(statsOpts.strategy)
		if err != nil {
			return err
		}
		q.Strategy = s
	}
	if statsOpts.since > 0 {
		q.Start = time.Now().Add(-statsOpts.since)
	}

	cfg, logCloser, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	recs, err := svc.Query(cmd.Context(), q)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PLAN\tTIME\tSTRATEGY\tITEMS\tBINS\tKM\tMIN\tUTIL%\tOVERLOADED\tUNASSIGNED")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.2f\t%d\t%.2f\t%d\t%d\n",
			r.PlanID, r.Timestamp.Format(time.RFC3339), r.Strategy, r.Items, r.Bins,
			r.TotalDistanceKm, r.TotalMinutes, r.AvgUtilizationPct, r.Overloaded, r.Unassigned)
	}
	return w.Flush()
}
