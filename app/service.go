// Package app wires the planner with its configured side channels.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/routeplan/config"
	"github.com/kilianp07/routeplan/core/batch"
	coremetrics "github.com/kilianp07/routeplan/core/metrics"
	"github.com/kilianp07/routeplan/core/model"
	coremon "github.com/kilianp07/routeplan/core/monitoring"
	"github.com/kilianp07/routeplan/core/optimizer"
	"github.com/kilianp07/routeplan/core/planlog"
	"github.com/kilianp07/routeplan/infra/logger"
	"github.com/kilianp07/routeplan/infra/metrics"
	infmon "github.com/kilianp07/routeplan/infra/monitoring"
	"github.com/kilianp07/routeplan/infra/mqtt"
	"github.com/kilianp07/routeplan/internal/eventbus"
)

// ErrPlanLogDisabled is returned by Query when no plan log path is configured.
var ErrPlanLogDisabled = errors.New("plan log is disabled")

// Service plans batches and reports them to the configured sinks, plan log
// and monitor.
type Service struct {
	cfg     optimizer.Config
	opts    []optimizer.Option
	planner *optimizer.Optimizer
	sink    coremetrics.PlanSink
	store   planlog.Store
	monitor coremon.Monitor
	server  *metrics.Server
	bus     *eventbus.Bus[optimizer.PlanEvent]
	watched chan struct{}
	log     logger.Logger
}

// New builds a Service from the configuration. Resources opened before a
// failure are released.
func New(cfg *config.Config) (svc *Service, err error) {
	s := &Service{cfg: cfg.Planner, log: logger.New("service")}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	s.bus = eventbus.New[optimizer.PlanEvent]()
	s.watched = make(chan struct{})
	events := s.bus.SubscribeBuffered(eventBuffer)
	go func() {
		defer close(s.watched)
		logEvents(s.log, events)
	}()

	if s.monitor, err = infmon.NewSentryMonitor(cfg.Sentry); err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(s.monitor)

	if s.sink, err = coremetrics.NewPlanSink(cfg.Metrics.Sinks); err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	if cfg.MQTT.Enabled() {
		pub, err := mqtt.NewPlanPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		s.sink = coremetrics.NewMultiSink(s.sink, pub)
	}

	if s.store, err = planlog.Open(cfg.PlanLog); err != nil {
		return nil, fmt.Errorf("plan log: %w", err)
	}

	if cfg.Metrics.ListenAddr != "" {
		s.server = metrics.NewServer(cfg.Metrics.ListenAddr, nil)
		s.server.Start()
	}

	s.opts = []optimizer.Option{
		optimizer.WithLogger(logger.New("optimizer")),
		optimizer.WithSink(s.sink),
		optimizer.WithMonitor(s.monitor),
		optimizer.WithEventBus(s.bus),
	}
	if s.store != nil {
		s.opts = append(s.opts, optimizer.WithPlanLog(s.store))
	}
	if s.planner, err = optimizer.New(s.cfg, s.opts...); err != nil {
		return nil, err
	}
	return s, nil
}

// Plan runs a batch. A depot given in the batch replaces the configured one.
func (s *Service) Plan(ctx context.Context, b *batch.Batch) (model.MultiRoutePlan, error) {
	strategy, err := b.ParsedStrategy()
	if err != nil {
		return model.MultiRoutePlan{}, err
	}
	planner := s.planner
	if b.Depot != nil {
		cfg := s.cfg
		cfg.Depot = b.Depot
		if planner, err = optimizer.New(cfg, s.opts...); err != nil {
			return model.MultiRoutePlan{}, err
		}
	}
	return planner.OptimizeRoutes(ctx, b.Deliveries, b.VehicleCapacityKg, strategy)
}

// Events subscribes to the planner events of this service. The channel is
// closed by Close.
func (s *Service) Events(buffer int) <-chan optimizer.PlanEvent {
	return s.bus.SubscribeBuffered(buffer)
}

// Query searches the plan log.
func (s *Service) Query(ctx context.Context, q planlog.Query) ([]planlog.Record, error) {
	if s.store == nil {
		return nil, ErrPlanLogDisabled
	}
	return s.store.Query(ctx, q)
}

// Close releases every resource held by the service.
func (s *Service) Close() error {
	var errs []error
	if s.bus != nil {
		s.bus.Close()
		<-s.watched
		if n := s.bus.Dropped(); n > 0 {
			s.log.Warnf("%d plan events were dropped", n)
		}
	}
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		errs = append(errs, s.server.Shutdown(ctx))
	}
	if s.sink != nil {
		errs = append(errs, coremetrics.Close(s.sink))
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.monitor != nil {
		s.monitor.Flush(2 * time.Second)
	}
	return errors.Join(errs...)
}
