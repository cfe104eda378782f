// Package monitoring reports planner failures to an error tracker.
package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/kilianp07/routeplan/core/model"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

// NopMonitor drops every report.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the process wide monitor. A nil monitor is ignored.
func Init(m Monitor) {
	if m == nil {
		return
	}
	mu.Lock()
	current = m
	mu.Unlock()
}

// Current returns the process wide monitor.
func Current() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records err with optional tags on the current monitor.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	Current().CaptureException(err, tags)
}


// PlanTags describes a planning request for error reports.
func PlanTags(planID string, strategy model.Strategy, items int) map[string]string {
	tags := map[string]string{
		"strategy": strategy.String(),
		"items":    strconv.Itoa(items),
	}
	if planID != "" {
		tags["plan_id"] = planID
	}
	return tags
}
