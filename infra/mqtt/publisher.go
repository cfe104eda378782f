package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/routeplan/core/factory"
	coremetrics "github.com/kilianp07/routeplan/core/metrics"
	"github.com/kilianp07/routeplan/core/model"
	"github.com/kilianp07/routeplan/infra/logger"
)

func init() {
	_ = coremetrics.RegisterPlanSink("mqtt", func(conf map[string]any) (coremetrics.PlanSink, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		p, err := NewPlanPublisher(c)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
}

// RouteTopic is the topic carrying the route of one bin.
func RouteTopic(prefix, planID string, bin int) string {
	return fmt.Sprintf("%s/%s/route/%d", prefix, planID, bin)
}

// SummaryTopic is the topic carrying the plan totals.
func SummaryTopic(prefix, planID string) string {
	return fmt.Sprintf("%s/%s/summary", prefix, planID)
}

// StopMessage is one stop of a published route.
type StopMessage struct {
	Sequence           int               `json:"sequence"`
	ItemID             string            `json:"item_id"`
	Lat                float64           `json:"lat"`
	Lon                float64           `json:"lon"`
	WeightKg           float64           `json:"weight_kg"`
	DistanceFromPrevKm float64           `json:"distance_from_prev_km"`
	Refs               map[string]string `json:"refs,omitempty"`
}

// RouteMessage is the payload published for each route.
type RouteMessage struct {
	PlanID           string         `json:"plan_id"`
	BinIndex         int            `json:"bin_index"`
	Strategy         model.Strategy `json:"strategy"`
	Depot            model.Depot    `json:"depot"`
	Stops            []StopMessage  `json:"stops"`
	Unassigned       []string       `json:"unassigned,omitempty"`
	TotalDistanceKm  float64        `json:"total_distance_km"`
	EstimatedMinutes int            `json:"estimated_minutes"`
	TotalWeightKg    float64        `json:"total_weight_kg"`
	Overloaded       bool           `json:"overloaded"`
}

// SummaryMessage is the payload published once per plan, after its routes.
type SummaryMessage struct {
	PlanID            string         `json:"plan_id"`
	GeneratedAt       time.Time      `json:"generated_at"`
	Strategy          model.Strategy `json:"strategy"`
	BinCount          int            `json:"bin_count"`
	TotalItems        int            `json:"total_items"`
	TotalDistanceKm   float64        `json:"total_distance_km"`
	TotalMinutes      int            `json:"total_minutes"`
	AvgUtilizationPct float64        `json:"avg_utilization_pct"`
	OverloadedCount   int            `json:"overloaded_count"`
	UnassignedCount   int            `json:"unassigned_count"`
	ElapsedMs         int64          `json:"elapsed_ms"`
}

// NewRouteMessage flattens a route for publishing.
func NewRouteMessage(plan model.MultiRoutePlan, r model.RoutePlan) RouteMessage {
	msg := RouteMessage{
		PlanID:           plan.PlanID,
		BinIndex:         r.BinIndex,
		Strategy:         plan.Strategy,
		Depot:            plan.Depot,
		Stops:            make([]StopMessage, 0, len(r.Stops)),
		TotalDistanceKm:  r.TotalDistanceKm,
		EstimatedMinutes: r.EstimatedMinutes,
		TotalWeightKg:    r.TotalWeightKg,
		Overloaded:       r.Overloaded,
	}
	for _, s := range r.Stops {
		msg.Stops = append(msg.Stops, StopMessage{
			Sequence:           s.Sequence,
			ItemID:             s.Item.ID,
			Lat:                s.Item.Location.Lat,
			Lon:                s.Item.Location.Lon,
			WeightKg:           s.Item.WeightKg,
			DistanceFromPrevKm: s.DistanceFromPrevKm,
			Refs:               s.Item.Refs,
		})
	}
	for _, it := range r.Unassigned {
		msg.Unassigned = append(msg.Unassigned, it.ID)
	}
	return msg
}

// PlanPublisher implements metrics.PlanSink by publishing every route of a
// plan, then its summary.
type PlanPublisher struct {
	cli        pahoClient
	prefix     string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	logger     logger.Logger
	sleep      func(time.Duration)
}

// NewPlanPublisher connects to the broker described by cfg.
func NewPlanPublisher(cfg Config) (*PlanPublisher, error) {
	cfg.SetDefaults()
	if !cfg.Enabled() {
		return nil, errors.New("mqtt: broker is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_publisher")
	p := &PlanPublisher{
		prefix:     cfg.TopicPrefix,
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		logger:     log,
		sleep:      time.Sleep,
	}
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(paho.Client, *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	p.cli = c
	return p, nil
}

// RecordPlan publishes each route to RouteTopic and the totals to
// SummaryTopic. A failing route does not stop the others; errors are joined.
func (p *PlanPublisher) RecordPlan(plan model.MultiRoutePlan, elapsed time.Duration) error {
	var errs []error
	for _, r := range plan.Routes {
		topic := RouteTopic(p.prefix, plan.PlanID, r.BinIndex)
		if err := p.publishJSON(topic, NewRouteMessage(plan, r)); err != nil {
			errs = append(errs, err)
		}
	}
	summary := SummaryMessage{
		PlanID:            plan.PlanID,
		GeneratedAt:       plan.GeneratedAt,
		Strategy:          plan.Strategy,
		BinCount:          plan.BinCount,
		TotalItems:        plan.TotalItems,
		TotalDistanceKm:   plan.TotalDistanceKm,
		TotalMinutes:      plan.TotalMinutes,
		AvgUtilizationPct: plan.AvgUtilizationPct,
		OverloadedCount:   plan.OverloadedCount,
		UnassignedCount:   plan.UnassignedCount,
		ElapsedMs:         elapsed.Milliseconds(),
	}
	if err := p.publishJSON(SummaryTopic(p.prefix, plan.PlanID), summary); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (p *PlanPublisher) publishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", topic, err)
	}
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.qos, p.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published %d bytes to %s", len(payload), topic)
			return nil
		}
		p.logger.Errorf("publish to %s attempt %d failed: %v", topic, attempt+1, publishErr)
		if attempt < p.maxRetries {
			p.sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

// Close disconnects from the broker.
func (p *PlanPublisher) Close() error {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
	return nil
}
