package optimizer

import "time"

// Action names the stage of a planning run reported on the event bus.
type Action string

const (
	ActionPlanStarted     Action = "plan_started"
	ActionBinOverloaded   Action = "bin_overloaded"
	ActionStopsUnassigned Action = "stops_unassigned"
	ActionPlanCompleted   Action = "plan_completed"
	ActionPlanFailed      Action = "plan_failed"
)

// PlanEvent is published on the optimizer's event bus.
type PlanEvent struct {
	PlanID string
	Action Action
	// BinIndex is set for bin level actions.
	BinIndex int
	ItemIDs  []string
	Err      error
	Time     time.Time
}
