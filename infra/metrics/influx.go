package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/routeplan/core/factory"
	coremetrics "github.com/kilianp07/routeplan/core/metrics"
	"github.com/kilianp07/routeplan/core/model"
	"github.com/kilianp07/routeplan/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket plans are written to.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	// TimeoutSeconds bounds each write. Defaults to 5.
	TimeoutSeconds float64 `json:"timeout_seconds"`
}

// InfluxSink writes one point per plan and one per route.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	timeout  time.Duration
	log      logger.Logger
}

// NewInfluxSink creates a sink for cfg without contacting the server.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	timeout := factory.DecodeDuration(cfg.TimeoutSeconds, 5*time.Second)
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: timeout}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		timeout:  timeout,
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback checks the server health and returns a NopSink
// when it is unreachable.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.PlanSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), sink.timeout)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordPlan writes the plan summary followed by its routes.
func (s *InfluxSink) RecordPlan(plan model.MultiRoutePlan, elapsed time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	points := make([]*write.Point, 0, len(plan.Routes)+1)
	points = append(points, planPoint(plan, elapsed))
	for _, r := range plan.Routes {
		points = append(points, routePoint(plan, r))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordFailure writes a rejected batch.
func (s *InfluxSink) RecordFailure(ev coremetrics.FailureEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	p := write.NewPointWithMeasurement("plan_rejected").
		AddTag("strategy", ev.Strategy.String()).
		AddField("items", ev.Items).
		AddField("reason", ev.Reason).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func planPoint(plan model.MultiRoutePlan, elapsed time.Duration) *write.Point {
	return write.NewPointWithMeasurement("plan").
		AddTag("plan_id", plan.PlanID).
		AddTag("strategy", plan.Strategy.String()).
		AddField("bins", plan.BinCount).
		AddField("items", plan.TotalItems).
		AddField("weight_kg", plan.TotalWeightKg).
		AddField("distance_km", plan.TotalDistanceKm).
		AddField("minutes", plan.TotalMinutes).
		AddField("avg_utilization_pct", plan.AvgUtilizationPct).
		AddField("overloaded", plan.OverloadedCount).
		AddField("unassigned", plan.UnassignedCount).
		AddField("elapsed_ms", float64(elapsed.Microseconds())/1000).
		SetTime(plan.GeneratedAt)
}

func routePoint(plan model.MultiRoutePlan, r model.RoutePlan) *write.Point {
	return write.NewPointWithMeasurement("route").
		AddTag("plan_id", plan.PlanID).
		AddTag("strategy", plan.Strategy.String()).
		AddTag("bin", strconv.Itoa(r.BinIndex)).
		AddTag("overloaded", strconv.FormatBool(r.Overloaded)).
		AddField("stops", r.StopCount).
		AddField("unassigned", r.UnassignedCount).
		AddField("weight_kg", r.BinWeightKg).
		AddField("utilization_pct", r.UtilizationPct).
		AddField("distance_km", r.TotalDistanceKm).
		AddField("return_leg_km", r.ReturnLegKm).
		AddField("minutes", r.EstimatedMinutes).
		SetTime(plan.GeneratedAt)
}
