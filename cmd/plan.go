package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/routeplan/app"
	"github.com/kilianp07/routeplan/core/batch"
	"github.com/kilianp07/routeplan/core/monitoring"
	"github.com/kilianp07/routeplan/infra/logger"
	"github.com/kilianp07/routeplan/pkg/export"
)

var planOpts struct {
	format   string
	output   string
	strategy string
	capacity float64
}

var planCmd = &cobra.Command{
	Use:   "plan <batch.yaml|batch.json>",
	Short: "Plan the routes of a delivery batch",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlan,
}

func init() {
	f := planCmd.Flags()
	f.StringVarP(&planOpts.format, "format", "f", "json", "output format: json, csv or html")
	f.StringVarP(&planOpts.output, "output", "o", "", "output file (stdout when empty)")
	f.StringVarP(&planOpts.strategy, "strategy", "s", "", "override the batch strategy (FIRST_FIT or BEST_FIT)")
	f.Float64Var(&planOpts.capacity, "capacity", 0, "override the batch vehicle capacity in kg")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	format, err := export.ParseFormat(planOpts.format)
	if err != nil {
		return err
	}
	b, err := batch.Load(args[0])
	if err != nil {
		return err
	}
	if planOpts.strategy != "" {
		b.Strategy = planOpts.strategy
	}
	if cmd.Flags().Changed("capacity") {
		b.VehicleCapacityKg = planOpts.capacity
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
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	defer monitoring.Current().Recover()

	plan, err := svc.Plan(ctx, b)
	if err != nil {
		return fmt.Errorf("plan %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if planOpts.output != "" {
		f, err := os.Create(planOpts.output)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	return export.Write(out, format, plan)
}
