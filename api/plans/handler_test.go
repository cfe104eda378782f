package plans

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kilianp07/routeplan/core/batch"
	"github.com/kilianp07/routeplan/core/model"
	"github.com/kilianp07/routeplan/core/monitoring"
	"github.com/kilianp07/routeplan/core/optimizer"
	"github.com/kilianp07/routeplan/core/planlog"
)

// optimizerPlanner plans with a real optimizer and keeps the records.
type optimizerPlanner struct {
	opt  *optimizer.Optimizer
	recs []planlog.Record
}

func (p *optimizerPlanner) Plan(ctx context.Context, b *batch.Batch) (model.MultiRoutePlan, error) {
	s, err := b.ParsedStrategy()
	if err != nil {
		return model.MultiRoutePlan{}, err
	}
	plan, err := p.opt.OptimizeRoutes(ctx, b.Deliveries, b.VehicleCapacityKg, s)
	if err == nil {
		p.recs = append(p.recs, planlog.NewRecord(plan, time.Millisecond))
	}
	return plan, err
}

func (p *optimizerPlanner) Query(_ context.Context, q planlog.Query) ([]planlog.Record, error) {
	var out []planlog.Record
	for _, r := range p.recs {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func newPlanner(t *testing.T) *optimizerPlanner {
	t.Helper()
	opt, err := optimizer.New(optimizer.Config{Depot: &model.Depot{Location: model.Location{Lat: 48.85, Lon: 2.35}}})
	if err != nil {
		t.Fatalf("optimizer: %v", err)
	}
	return &optimizerPlanner{opt: opt}
}

const body = `{"vehicle_capacity_kg": 20, "strategy": "BEST_FIT", "deliveries": [
  {"id": "a", "weight_kg": 12, "location": {"lat": 48.86, "lon": 2.34}},
  {"id": "b", "weight_kg": 7, "location": {"lat": 48.84, "lon": 2.37}}]}`

func do(h http.Handler, method, target, payload, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(payload))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestPlanAndLogs(t *testing.T) {
	p := newPlanner(t)
	h := NewHandler(p, p, "tok")

	rr := do(h, http.MethodPost, "/api/plans", body, "tok")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	var plan model.MultiRoutePlan
	if err := json.Unmarshal(rr.Body.Bytes(), &plan); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if plan.BinCount != 1 || plan.Strategy != model.StrategyBestFit {
		t.Fatalf("unexpected plan %+v", plan)
	}

	rr = do(h, http.MethodGet, "/api/plans/logs?item_id=b&strategy=best-fit", "", "tok")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var recs []planlog.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &recs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(recs) != 1 || recs[0].PlanID != plan.PlanID {
		t.Fatalf("expected the posted plan, got %+v", recs)
	}

	rr = do(h, http.MethodGet, "/api/plans/logs?item_id=zzz", "", "tok")
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %s", rr.Body.String())
	}
}

func TestPlanCSV(t *testing.T) {
	p := newPlanner(t)
	rr := do(NewHandler(p, p, ""), http.MethodPost, "/api/plans?format=csv", body, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content type %s", ct)
	}
	if n := strings.Count(rr.Body.String(), "\n"); n != 3 {
		t.Fatalf("expected header and two stops, got %d lines", n)
	}
}

func TestErrors(t *testing.T) {
	p := newPlanner(t)
	h := NewHandler(p, p, "tok")
	cases := []struct {
		name, method, target, payload, token string
		want                                 int
	}{
		{"unauthorized", http.MethodPost, "/api/plans", body, "", http.StatusUnauthorized},
		{"wrong token", http.MethodGet, "/api/plans/logs", "", "nope", http.StatusUnauthorized},
		{"bad json", http.MethodPost, "/api/plans", "{", "tok", http.StatusBadRequest},
		{"bad format", http.MethodPost, "/api/plans?format=pdf", body, "tok", http.StatusBadRequest},
		{"invalid capacity", http.MethodPost, "/api/plans", `{"vehicle_capacity_kg": -1, "deliveries": []}`, "tok", http.StatusUnprocessableEntity},
		{"bad start", http.MethodGet, "/api/plans/logs?start=yesterday", "", "tok", http.StatusBadRequest},
		{"bad strategy", http.MethodGet, "/api/plans/logs?strategy=worst", "", "tok", http.StatusBadRequest},
		{"wrong method", http.MethodGet, "/api/plans", "", "tok", http.StatusMethodNotAllowed},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rr := do(h, c.method, c.target, c.payload, c.token)
			if rr.Code != c.want {
				t.Fatalf("expected %d got %d: %s", c.want, rr.Code, rr.Body.String())
			}
		})
	}
}

type failingQuerier struct{}

func (failingQuerier) Query(context.Context, planlog.Query) ([]planlog.Record, error) {
	return nil, errors.New("disk full")
}

type recordMonitor struct {
	monitoring.NopMonitor
	errs []error
	tags []map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}

func TestLogQueryFailureIsReported(t *testing.T) {
	prev := monitoring.Current()
	defer monitoring.Init(prev)
	rec := &recordMonitor{}
	monitoring.Init(rec)

	p := newPlanner(t)
	rr := do(NewHandler(p, failingQuerier{}, ""), http.MethodGet, "/api/plans/logs", "", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rr.Code)
	}
	if len(rec.errs) != 1 || rec.errs[0].Error() != "disk full" {
		t.Fatalf("expected the query error to be captured, got %v", rec.errs)
	}
	if rec.tags[0]["path"] != "/api/plans/logs" {
		t.Fatalf("unexpected tags %v", rec.tags[0])
	}

	// rejected input is not reported
	rr = do(NewHandler(p, p, ""), http.MethodPost, "/api/plans", `{"vehicle_capacity_kg": -1, "deliveries": []}`, "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rr.Code)
	}
	if len(rec.errs) != 1 {
		t.Fatalf("unexpected captures %v", rec.errs)
	}
}
