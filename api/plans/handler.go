// Package plans exposes the planner over HTTP.
//
//	POST /api/plans        plans the batch in the body (JSON), ?format=csv|html
//	GET  /api/plans/logs   lists plan log records
package plans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/routeplan/core/batch"
	"github.com/kilianp07/routeplan/core/model"
	"github.com/kilianp07/routeplan/core/monitoring"
	"github.com/kilianp07/routeplan/core/planlog"
	"github.com/kilianp07/routeplan/pkg/export"
)

// maxBodyBytes bounds the size of a posted batch.
const maxBodyBytes = 8 << 20

// Planner plans a batch.
type Planner interface {
	Plan(ctx context.Context, b *batch.Batch) (model.MultiRoutePlan, error)
}

// Querier searches past plans.
type Querier interface {
	Query(ctx context.Context, q planlog.Query) ([]planlog.Record, error)
}

// NewHandler mounts both endpoints. Requests must carry
// "Authorization: Bearer <token>" when token is non-empty.
func NewHandler(p Planner, q Querier, token string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /api/plans", requireToken(token, NewPlanHandler(p)))
	mux.Handle("GET /api/plans/logs", requireToken(token, NewLogHandler(q)))
	return mux
}

func requireToken(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewPlanHandler decodes a JSON batch and answers with the plan.
func NewPlanHandler(p Planner) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := export.FormatJSON
		if s := r.URL.Query().Get("format"); s != "" {
			f, err := export.ParseFormat(s)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			format = f
		}
		b, err := batch.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes), "json")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		plan, err := p.Plan(r.Context(), b)
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		switch format {
		case export.FormatCSV:
			w.Header().Set("Content-Type", "text/csv")
		case export.FormatHTML:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		default:
			w.Header().Set("Content-Type", "application/json")
		}
		if err := export.Write(w, format, plan); err != nil {
			internalError(w, r, err)
		}
	})
}

// internalError answers 500 and reports err to the process monitor. Planning
// failures are not passed here; the optimizer reports those itself.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	monitoring.CaptureException(err, map[string]string{"method": r.Method, "path": r.URL.Path})
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, model.ErrEmptyInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// NewLogHandler lists plan records filtered by the start, end (RFC3339),
// strategy, plan_id and item_id query parameters.
func NewLogHandler(q Querier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		records, err := q.Query(r.Context(), query)
		if err != nil {
			internalError(w, r, err)
			return
		}
		if records == nil {
			records = []planlog.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			internalError(w, r, err)
		}
	})
}

func parseQuery(r *http.Request) (planlog.Query, error) {
	v := r.URL.Query()
	q := planlog.Query{PlanID: v.Get("plan_id"), ItemID: v.Get("item_id")}
	for name, dst := range map[string]*time.Time{"start": &q.Start, "end": &q.End} {
		if s := v.Get(name); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return q, fmt.Errorf("%s: %w", name, err)
			}
			*dst = t
		}
	}
	if s := v.Get("strategy"); s != "" {
		st, err := model.ParseStrategy(s)
		if err != nil {
			return q, err
		}
		q.Strategy = st
	}
	return q, nil
}
