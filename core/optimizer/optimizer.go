// Package optimizer turns a batch of deliveries into a multi-vehicle plan:
// the items are packed into vehicle loads, each load is sequenced into a
// closed route from the depot, and the routes are aggregated with statistics.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/routeplan/core/logger"
	"github.com/kilianp07/routeplan/core/metrics"
	"github.com/kilianp07/routeplan/core/model"
	"github.com/kilianp07/routeplan/core/monitoring"
	"github.com/kilianp07/routeplan/core/packing"
	"github.com/kilianp07/routeplan/core/planlog"
	"github.com/kilianp07/routeplan/core/routing"
	"github.com/kilianp07/routeplan/internal/eventbus"
)

// Optimizer runs the packer and the sequencer. It is safe for concurrent use.
type Optimizer struct {
	cfg      Config
	strategy model.Strategy
	packer   *packing.Packer
	seq      routing.Sequencer

	log     logger.Logger
	sink    metrics.PlanSink
	bus     *eventbus.Bus[PlanEvent]
	store   planlog.Store
	monitor monitoring.Monitor
	now     func() time.Time
	newID   func() string
}

// Option customises an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(o *Optimizer) { o.log = logger.OrNop(l) } }

// WithSink reports every completed plan to s.
func WithSink(s metrics.PlanSink) Option {
	return func(o *Optimizer) {
		if s != nil {
			o.sink = s
		}
	}
}

// WithEventBus publishes PlanEvents on b.
func WithEventBus(b *eventbus.Bus[PlanEvent]) Option { return func(o *Optimizer) { o.bus = b } }

// WithPlanLog appends a record of every completed plan to s.
func WithPlanLog(s planlog.Store) Option { return func(o *Optimizer) { o.store = s } }

// WithMonitor reports side channel failures to m.
func WithMonitor(m monitoring.Monitor) Option {
	return func(o *Optimizer) {
		if m != nil {
			o.monitor = m
		}
	}
}

// WithPacker replaces the packer, e.g. to register extra strategies.
func WithPacker(p *packing.Packer) Option {
	return func(o *Optimizer) {
		if p != nil {
			o.packer = p
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(o *Optimizer) { o.now = now } }

// WithIDGenerator overrides how plan IDs are generated.
func WithIDGenerator(f func() string) Option { return func(o *Optimizer) { o.newID = f } }

// New validates cfg and returns an Optimizer.
func New(cfg Config, opts ...Option) (*Optimizer, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("optimizer config: %w", err)
	}
	strategy, _ := model.ParseStrategy(cfg.Strategy)
	o := &Optimizer{
		cfg:      cfg,
		strategy: strategy,
		packer:   packing.NewPacker(),
		seq: routing.Sequencer{
			AvgSpeedKmh:      cfg.AvgSpeedKmh,
			StopMinutes:      cfg.StopMinutes,
			Epsilon:          *cfg.Epsilon,
			TwoOpt:           cfg.TwoOpt,
			TwoOptIterations: cfg.TwoOptIterations,
		},
		log:     logger.NopLogger{},
		sink:    metrics.NopSink{},
		monitor: monitoring.NopMonitor{},
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(o)
	}
	o.packer.Epsilon = *cfg.Epsilon
	return o, nil
}

// Config returns the effective configuration.
func (o *Optimizer) Config() Config { return o.cfg }

// OptimizeRoutes packs deliveries into loads of vehicleCapacity kilograms
// and sequences one route per load. An empty strategy selects the configured
// default. An empty batch yields a plan without routes.
func (o *Optimizer) OptimizeRoutes(ctx context.Context, deliveries []model.DeliveryItem, vehicleCapacity float64, strategy model.Strategy) (model.MultiRoutePlan, error) {
	start := o.now()
	requested := strategy
	strategy, serr := o.resolveStrategy(strategy)
	if serr != nil {
		strategy = requested
	}
	plan := model.MultiRoutePlan{
		PlanID:            o.newID(),
		GeneratedAt:       start.UTC(),
		Strategy:          strategy,
		VehicleCapacityKg: vehicleCapacity,
		SafetyMargin:      o.cfg.SafetyMargin,
		Depot:             *o.cfg.Depot,
		Routes:            []model.RoutePlan{},
	}

	if serr != nil {
		o.fail(plan, len(deliveries), serr)
		return model.MultiRoutePlan{}, serr
	}
	if err := o.validate(deliveries, vehicleCapacity); err != nil {
		o.fail(plan, len(deliveries), err)
		return model.MultiRoutePlan{}, err
	}
	o.publish(PlanEvent{PlanID: plan.PlanID, Action: ActionPlanStarted})
	o.log.Debugw("planning batch", map[string]any{
		"plan_id":     plan.PlanID,
		"items":       len(deliveries),
		"capacity_kg": vehicleCapacity,
		"strategy":    strategy,
	})

	if len(deliveries) == 0 {
		o.complete(ctx, plan, o.now().Sub(start))
		return plan, nil
	}

	bins, err := o.packer.Pack(deliveries, vehicleCapacity, o.cfg.SafetyMargin, strategy)
	if err != nil {
		err = fmt.Errorf("pack: %w", err)
		o.fail(plan, len(deliveries), err)
		return model.MultiRoutePlan{}, err
	}

	routes, err := o.sequenceAll(ctx, bins, vehicleCapacity)
	if err != nil {
		o.fail(plan, len(deliveries), err)
		return model.MultiRoutePlan{}, err
	}
	plan.Routes = routes
	aggregate(&plan, bins, vehicleCapacity)

	o.complete(ctx, plan, o.now().Sub(start))
	return plan, nil
}

// resolveStrategy returns the canonical name of a built-in strategy, or s
// itself when a custom selector is registered under it. Empty selects the
// configured default.
func (o *Optimizer) resolveStrategy(s model.Strategy) (model.Strategy, error) {
	if s == "" {
		return o.strategy, nil
	}
	parsed, err := model.ParseStrategy(string(s))
	if err == nil {
		return parsed, nil
	}
	if o.packer.Has(s) {
		return s, nil
	}
	return "", err
}

func (o *Optimizer) validate(deliveries []model.DeliveryItem, vehicleCapacity float64) error {
	if math.IsNaN(vehicleCapacity) || math.IsInf(vehicleCapacity, 0) || vehicleCapacity <= 0 {
		return &model.InvalidInputError{Field: "vehicle_capacity_kg", Value: vehicleCapacity, Reason: "must be a positive number"}
	}
	return model.ValidateItems(deliveries)
}

// sequenceAll builds one route per bin. With more than one worker the bins
// are sequenced concurrently; results are stored by bin position so the output
// does not depend on scheduling.
func (o *Optimizer) sequenceAll(ctx context.Context, bins []model.Bin, vehicleCapacity float64) ([]model.RoutePlan, error) {
	routes := make([]model.RoutePlan, len(bins))
	errs := make([]error, len(bins))

	run := func(i int) {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			return
		}
		route, err := o.seq.Sequence(bins[i].Items, o.cfg.Depot.Location, vehicleCapacity)
		if err != nil {
			errs[i] = fmt.Errorf("sequence bin %d: %w", bins[i].Index, err)
			return
		}
		attachBin(&route, bins[i])
		routes[i] = route
	}

	workers := min(o.cfg.Workers, len(bins))
	if workers <= 1 {
		for i := range bins {
			run(i)
			if errs[i] != nil {
				return nil, errs[i]
			}
		}
		return routes, nil
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i := range bins {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			defer o.monitor.Recover()
			run(i)
		}(i)
	}
	wg.Wait()
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return routes, nil
}

func attachBin(route *model.RoutePlan, bin model.Bin) {
	route.BinIndex = bin.Index
	route.BinWeightKg = model.Round2(bin.WeightKg)
	route.UtilizationPct = bin.UtilizationPct
	route.Overloaded = bin.Overloaded
}

func aggregate(plan *model.MultiRoutePlan, bins []model.Bin, vehicleCapacity float64) {
	st := packing.Stats(bins, vehicleCapacity)
	plan.BinCount = st.BinCount
	plan.TotalItems = st.TotalItems
	plan.TotalWeightKg = st.TotalWeightKg
	plan.AvgUtilizationPct = st.AvgUtilizationPct
	plan.OverloadedCount = st.OverloadedCount

	distances := make([]float64, len(plan.Routes))
	for i, r := range plan.Routes {
		distances[i] = r.TotalDistanceKm
		plan.TotalMinutes += r.EstimatedMinutes
		plan.UnassignedCount += r.UnassignedCount
	}
	plan.TotalDistanceKm = model.Round2(floats.Sum(distances))
}

// complete reports a finished plan to every side channel. Failures there are
// logged and captured, never returned.
func (o *Optimizer) complete(ctx context.Context, plan model.MultiRoutePlan, elapsed time.Duration) {
	strategy := plan.Strategy.String()
	plansTotal.WithLabelValues(strategy, "ok").Inc()
	planLatency.WithLabelValues(strategy).Observe(elapsed.Seconds())
	binsPerPlan.Observe(float64(plan.BinCount))

	for _, r := range plan.Routes {
		routeDistance.Observe(r.TotalDistanceKm)
		if r.Overloaded {
			overloadedBins.Inc()
			o.log.Warnf("plan %s: bin %d overloaded (%.2f kg)", plan.PlanID, r.BinIndex, r.BinWeightKg)
			o.publish(PlanEvent{PlanID: plan.PlanID, Action: ActionBinOverloaded, BinIndex: r.BinIndex, ItemIDs: r.ItemIDs()})
		}
		if r.UnassignedCount > 0 {
			unassignedStops.Add(float64(r.UnassignedCount))
			ids := make([]string, len(r.Unassigned))
			for i, it := range r.Unassigned {
				ids[i] = it.ID
			}
			o.log.Warnf("plan %s: bin %d left %d stops unassigned", plan.PlanID, r.BinIndex, r.UnassignedCount)
			o.publish(PlanEvent{PlanID: plan.PlanID, Action: ActionStopsUnassigned, BinIndex: r.BinIndex, ItemIDs: ids})
		}
	}

	tags := monitoring.PlanTags(plan.PlanID, plan.Strategy, plan.TotalItems)
	if err := o.sink.RecordPlan(plan, elapsed); err != nil {
		o.log.Errorf("plan %s: record metrics: %v", plan.PlanID, err)
		o.monitor.CaptureException(err, tags)
	}
	if o.store != nil {
		if err := o.store.Append(ctx, planlog.NewRecord(plan, elapsed)); err != nil {
			o.log.Errorf("plan %s: append plan log: %v", plan.PlanID, err)
			o.monitor.CaptureException(err, tags)
		}
	}

	o.log.Infow("plan completed", map[string]any{
		"plan_id":     plan.PlanID,
		"strategy":    strategy,
		"bins":        plan.BinCount,
		"items":       plan.TotalItems,
		"distance_km": plan.TotalDistanceKm,
		"minutes":     plan.TotalMinutes,
		"overloaded":  plan.OverloadedCount,
		"unassigned":  plan.UnassignedCount,
		"elapsed_ms":  float64(elapsed.Microseconds()) / 1000,
	})
	o.publish(PlanEvent{PlanID: plan.PlanID, Action: ActionPlanCompleted})
}

func (o *Optimizer) fail(plan model.MultiRoutePlan, items int, err error) {
	plansTotal.WithLabelValues(plan.Strategy.String(), "rejected").Inc()
	o.log.Warnf("plan %s rejected: %v", plan.PlanID, err)
	if rec, ok := o.sink.(metrics.FailureRecorder); ok {
		ev := metrics.FailureEvent{Strategy: plan.Strategy, Items: items, Reason: err.Error(), Time: o.now()}
		if rerr := rec.RecordFailure(ev); rerr != nil {
			o.log.Errorf("plan %s: record failure: %v", plan.PlanID, rerr)
		}
	}
	// Rejected input is not reported to the monitor.
	if !errors.Is(err, model.ErrInvalidInput) {
		o.monitor.CaptureException(err, monitoring.PlanTags(plan.PlanID, plan.Strategy, items))
	}
	o.publish(PlanEvent{PlanID: plan.PlanID, Action: ActionPlanFailed, Err: err})
}

func (o *Optimizer) publish(ev PlanEvent) {
	if o.bus == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = o.now()
	}
	o.bus.Publish(ev)
}
