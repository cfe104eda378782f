package app

import (
	"strings"

	"github.com/kilianp07/routeplan/core/optimizer"
	"github.com/kilianp07/routeplan/infra/logger"
)

// eventBuffer sizes the service's own subscription. Plans with many
// overloaded bins publish one event per bin.
const eventBuffer = 256

// logEvents reports the planner events operators need to act on until the
// channel is closed.
func logEvents(log logger.Logger, events <-chan optimizer.PlanEvent) {
	for ev := range events {
		switch ev.Action {
		case optimizer.ActionBinOverloaded:
			log.Warnf("plan %s: bin %d overloaded by %s", ev.PlanID, ev.BinIndex, strings.Join(ev.ItemIDs, ","))
		case optimizer.ActionStopsUnassigned:
			log.Warnf("plan %s: bin %d needs manual handling for %s", ev.PlanID, ev.BinIndex, strings.Join(ev.ItemIDs, ","))
		case optimizer.ActionPlanFailed:
			log.Errorf("plan %s failed: %v", ev.PlanID, ev.Err)
		default:
			log.Debugw("plan event", map[string]any{"plan_id": ev.PlanID, "action": string(ev.Action)})
		}
	}
}
